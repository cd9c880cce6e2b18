package main

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/agnivade/levenshtein"
	"github.com/spf13/cobra"
	"golang.org/x/text/unicode/norm"

	"github.com/ahrav/go-ballot/infrastructure/httpapi"
	"github.com/ahrav/go-ballot/internal/application"
	"github.com/ahrav/go-ballot/internal/domain"
)

// maxSuggestions bounds the names offered for an unknown item.
const maxSuggestions = 3

func newResultsCmd(root *rootOptions) *cobra.Command {
	var item string

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Print aggregate rank statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResults(cmd.Context(), root, item, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&item, "item", "", "show a single item by name")
	return cmd
}

func runResults(ctx context.Context, root *rootOptions, item string, out, logOut io.Writer) error {
	a, err := openApp(ctx, root, logOut)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.aggregationService(nil)
	if err != nil {
		return err
	}
	summary, err := results.Summary(ctx)
	if err != nil {
		return err
	}

	stats := summary.Stats
	if item != "" {
		idx, err := lookupItem(a.loaded.Catalog, item)
		if err != nil {
			return err
		}
		stat, _ := summary.Stat(idx)
		stats = []domain.AggregateStat{stat}
	}

	return printSummary(out, summary, stats)
}

func printSummary(out io.Writer, summary application.Summary, stats []domain.AggregateStat) error {
	fmt.Fprintf(out, "%d respondents, %s rank\n\n", summary.Respondents, summary.Method)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tAVERAGE\tSUM\tVOTES")
	for _, stat := range stats {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", stat.Name, httpapi.FormatAverage(stat.Average), stat.SumOfRanks, stat.VoteCount)
	}
	return tw.Flush()
}

// lookupItem resolves name to a catalog index. Unknown names fail with the
// closest catalog names as suggestions.
func lookupItem(catalog domain.Catalog, name string) (int, error) {
	name = strings.TrimSpace(norm.NFC.String(name))
	if idx, ok := catalog.Index(name); ok {
		return idx, nil
	}

	suggestions := suggestItems(catalog.Names(), name)
	if len(suggestions) == 0 {
		return 0, fmt.Errorf("unknown item %q", name)
	}
	return 0, fmt.Errorf("unknown item %q, did you mean %s?", name, quoteAll(suggestions))
}

// suggestItems returns up to maxSuggestions names within edit distance of
// query, closest first.
func suggestItems(names []string, query string) []string {
	type candidate struct {
		name     string
		distance int
	}

	limit := max(2, len([]rune(query))/2)
	var candidates []candidate
	for _, name := range names {
		d := levenshtein.ComputeDistance(query, name)
		if d <= limit {
			candidates = append(candidates, candidate{name: name, distance: d})
		}
	}
	slices.SortStableFunc(candidates, func(x, y candidate) int {
		return cmp.Compare(x.distance, y.distance)
	})

	out := make([]string, 0, min(len(candidates), maxSuggestions))
	for _, c := range candidates[:min(len(candidates), maxSuggestions)] {
		out = append(out, c.name)
	}
	return out
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, " or ")
}
