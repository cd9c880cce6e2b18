package application

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/ports"
)

// AggregationDeps holds the collaborators of an AggregationService.
// Catalog, Respondents, and Aggregator are required.
type AggregationDeps struct {
	Catalog     domain.Catalog
	Respondents ports.RespondentStore
	Aggregator  domain.Aggregator

	// Aggregates receives the computed statistics when PersistStats is set.
	Aggregates   ports.AggregateStore
	PersistStats bool

	// Gate authorizes the detailed view. Without a gate the view is closed.
	Gate ports.AccessGate

	Observer ports.SurveyObserver
	Logger   *slog.Logger
	Clock    func() time.Time
}

// AggregationService computes the summary of every finalized ranking.
// Each run starts from zero, reads all rankings in one consistent read,
// and optionally writes the result back, so repeated runs over the same
// data return the same statistics.
type AggregationService struct {
	catalog     domain.Catalog
	respondents ports.RespondentStore
	aggregator  domain.Aggregator
	aggregates  ports.AggregateStore
	persist     bool
	gate        ports.AccessGate
	observer    ports.SurveyObserver
	logger      *slog.Logger
	now         func() time.Time

	// sf coalesces concurrent summary requests into one run.
	sf singleflight.Group
	// mu keeps runs from interleaving their read and write-back.
	mu sync.Mutex
}

// NewAggregationService creates an AggregationService from its dependencies.
func NewAggregationService(deps AggregationDeps) (*AggregationService, error) {
	switch {
	case deps.Catalog.Len() == 0:
		return nil, fmt.Errorf("%w: catalog", domain.ErrEmptyValue)
	case deps.Respondents == nil:
		return nil, fmt.Errorf("%w: respondent store", domain.ErrEmptyValue)
	case deps.Aggregator == nil:
		return nil, fmt.Errorf("%w: aggregator", domain.ErrEmptyValue)
	case deps.PersistStats && deps.Aggregates == nil:
		return nil, fmt.Errorf("%w: aggregate store required to persist stats", domain.ErrInvalidConfiguration)
	}

	a := &AggregationService{
		catalog:     deps.Catalog,
		respondents: deps.Respondents,
		aggregator:  deps.Aggregator,
		aggregates:  deps.Aggregates,
		persist:     deps.PersistStats,
		gate:        deps.Gate,
		observer:    deps.Observer,
		logger:      deps.Logger,
		now:         deps.Clock,
	}
	if a.observer == nil {
		a.observer = noopObserver{}
	}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a, nil
}

// Summary is the aggregate view over all finalized respondents.
type Summary struct {
	Method      string                 `json:"method"`
	Respondents int                    `json:"respondents"`
	Stats       []domain.AggregateStat `json:"stats"`
	ComputedAt  time.Time              `json:"computed_at"`
}

// Stat returns the statistics of one item.
func (s Summary) Stat(item int) (domain.AggregateStat, bool) {
	if item < 0 || item >= len(s.Stats) {
		return domain.AggregateStat{}, false
	}
	return s.Stats[item], true
}

// Summary aggregates every finalized ranking. With zero respondents every
// item reports no data; that is not an error. A stored ranking that names
// an item outside the catalog yields a DataConsistencyError.
//
// Concurrent calls share one run. The shared run ignores cancellation of
// whichever caller started it; each caller still gets its own ctx error
// when its context ends first.
func (a *AggregationService) Summary(ctx context.Context) (Summary, error) {
	ch := a.sf.DoChan("summary", func() (any, error) {
		return a.compute(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Summary{}, res.Err
		}
		summary := res.Val.(Summary)
		summary.Stats = cloneStats(summary.Stats)
		return summary, nil
	}
}

// cloneStats copies stats together with the values behind their pointers,
// so callers sharing one run never alias each other's results.
func cloneStats(stats []domain.AggregateStat) []domain.AggregateStat {
	out := slices.Clone(stats)
	for i := range out {
		if v := out[i].Average; v != nil {
			avg := *v
			out[i].Average = &avg
		}
		if v := out[i].Median; v != nil {
			med := *v
			out[i].Median = &med
		}
	}
	return out
}

func (a *AggregationService) compute(ctx context.Context) (summary Summary, err error) {
	ctx = a.observer.OperationStarted(ctx, ports.OpAggregate, "")
	report := ports.OperationReport{OpenSessions: -1}
	started := time.Now()
	defer func() {
		a.observer.OperationFinished(ctx, ports.OpAggregate, report, time.Since(started), err)
	}()

	a.mu.Lock()
	defer a.mu.Unlock()

	finalized, err := a.respondents.ListFinalized(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list rankings: %w", err)
	}
	report.Respondents = len(finalized)

	rankings := make([]domain.RankAssignment, len(finalized))
	for i, r := range finalized {
		rankings[i] = r.Ranking
	}

	stats, err := a.aggregator.Aggregate(a.catalog, rankings)
	if err != nil {
		var dce *domain.DataConsistencyError
		if errors.As(err, &dce) {
			a.logger.ErrorContext(ctx, "aggregation found inconsistent ranking", "error", err)
		}
		return Summary{}, fmt.Errorf("failed to aggregate: %w", err)
	}

	if a.persist {
		if err := a.aggregates.ReplaceAggregates(ctx, stats); err != nil {
			return Summary{}, fmt.Errorf("failed to persist aggregates: %w", err)
		}
	}

	a.logger.DebugContext(ctx, "aggregation complete",
		"method", a.aggregator.Method(),
		"respondents", len(finalized),
		"persisted", a.persist,
	)

	return Summary{
		Method:      a.aggregator.Method(),
		Respondents: len(finalized),
		Stats:       stats,
		ComputedAt:  a.now().UTC(),
	}, nil
}

// RespondentRanking is one row of the detailed view.
type RespondentRanking struct {
	RespondentID string                `json:"respondent_id"`
	CreatedAt    time.Time             `json:"created_at"`
	FinalizedAt  *time.Time            `json:"finalized_at,omitempty"`
	Ranking      domain.RankAssignment `json:"ranking"`
}

// Detail returns every finalized respondent's ranking, ordered by creation
// time. The credential must be accepted by the access gate; otherwise the
// error wraps domain.ErrAccessDenied.
func (a *AggregationService) Detail(ctx context.Context, credential string) ([]RespondentRanking, error) {
	if a.gate == nil || !a.gate.Authorize(credential) {
		return nil, domain.ErrAccessDenied
	}

	finalized, err := a.respondents.ListFinalized(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rankings: %w", err)
	}

	rows := make([]RespondentRanking, len(finalized))
	for i, r := range finalized {
		rows[i] = RespondentRanking{
			RespondentID: r.ID,
			CreatedAt:    r.CreatedAt,
			FinalizedAt:  r.FinalizedAt,
			Ranking:      r.Ranking.Clone(),
		}
	}
	slices.SortStableFunc(rows, func(x, y RespondentRanking) int {
		return cmp.Or(
			x.CreatedAt.Compare(y.CreatedAt),
			strings.Compare(x.RespondentID, y.RespondentID),
		)
	})
	return rows, nil
}

// Stored returns the statistics last written back by Summary.
func (a *AggregationService) Stored(ctx context.Context) ([]domain.AggregateStat, error) {
	if a.aggregates == nil {
		return nil, fmt.Errorf("%w: no aggregate store", domain.ErrInvalidConfiguration)
	}
	return a.aggregates.ListAggregates(ctx)
}
