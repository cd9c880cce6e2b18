package codec

import (
	"fmt"

	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/ports"
)

// snapshotRecord is the versioned wire schema of an engine state. The
// field list is fixed; a new layout must bump domain.SnapshotVersion.
type snapshotRecord struct {
	Version   int     `cbor:"version"`
	N         int     `cbor:"n"`
	Parent    []int   `cbor:"parent"`
	Adjacency [][]int `cbor:"adjacency"`
}

// EncodeSnapshot serializes s as {version, n, parent, adjacency}.
func EncodeSnapshot(s domain.Snapshot) ([]byte, error) {
	if s.IsZero() {
		return nil, fmt.Errorf("encode snapshot: %w", domain.ErrNoState)
	}
	return Marshal(snapshotRecord{
		Version:   domain.SnapshotVersion,
		N:         s.N(),
		Parent:    s.Parent(),
		Adjacency: s.Adjacency(),
	})
}

// DecodeSnapshot rebuilds a Snapshot from bytes produced by EncodeSnapshot.
// It rejects unknown schema versions with ports.ErrSchemaVersion and any
// record whose arrays disagree with n, or do not form a valid state, with
// domain.ErrCorruptState.
func DecodeSnapshot(data []byte) (domain.Snapshot, error) {
	var rec snapshotRecord
	if err := Unmarshal(data, &rec); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: %w", domain.ErrCorruptState, err)
	}
	if rec.Version != domain.SnapshotVersion {
		return domain.Snapshot{}, fmt.Errorf("%w: snapshot version %d", ports.ErrSchemaVersion, rec.Version)
	}
	if rec.N <= 0 || len(rec.Parent) != rec.N {
		return domain.Snapshot{}, fmt.Errorf("%w: n=%d but parent has %d entries", domain.ErrCorruptState, rec.N, len(rec.Parent))
	}
	return domain.RestoreSnapshot(rec.Parent, rec.Adjacency)
}
