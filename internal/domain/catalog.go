package domain

import (
	"fmt"
	"slices"
)

// Catalog is the immutable, ordered universe of items being ranked.
// Items are addressed by their index 0…N-1, which never changes for the
// lifetime of the process.
type Catalog struct {
	// names holds the item names in index order. It is unexported so the
	// universe cannot change after construction.
	names []string
	// index maps a name back to its position.
	index map[string]int
}

// NewCatalog creates a Catalog from the given names. Names must be non-empty
// and distinct; the caller is expected to have normalized them already.
func NewCatalog(names []string) (Catalog, error) {
	if len(names) == 0 {
		return Catalog{}, fmt.Errorf("%w: catalog has no items", ErrEmptyValue)
	}

	index := make(map[string]int, len(names))
	for i, name := range names {
		if name == "" {
			return Catalog{}, fmt.Errorf("%w: item %d has an empty name", ErrEmptyValue, i)
		}
		if prev, exists := index[name]; exists {
			return Catalog{}, fmt.Errorf("%w: item %q appears at %d and %d", ErrInvalidConfiguration, name, prev, i)
		}
		index[name] = i
	}

	return Catalog{names: slices.Clone(names), index: index}, nil
}

// Len returns N, the number of items in the universe.
func (c Catalog) Len() int { return len(c.names) }

// Contains reports whether i is a valid item index.
func (c Catalog) Contains(i int) bool { return i >= 0 && i < len(c.names) }

// Name returns the name of item i, or an empty string if i is out of range.
func (c Catalog) Name(i int) string {
	if !c.Contains(i) {
		return ""
	}
	return c.names[i]
}

// Index returns the index of the named item.
func (c Catalog) Index(name string) (int, bool) {
	i, ok := c.index[name]
	return i, ok
}

// Names returns a copy of the item names in index order.
func (c Catalog) Names() []string { return slices.Clone(c.names) }

// Item is a catalog entry as presented to collaborators.
type Item struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// Items returns every catalog entry in index order.
func (c Catalog) Items() []Item {
	items := make([]Item, len(c.names))
	for i, name := range c.names {
		items[i] = Item{Index: i, Name: name}
	}
	return items
}
