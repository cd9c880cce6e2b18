// Package ports defines the interfaces between the ranking engine and the
// infrastructure it depends on: storage, session transport, access gating,
// and metrics.
package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-ballot/internal/domain"
)

// JudgmentLog is the append-only record of every judgment submitted.
// Entries are never updated or deleted; the log is the audit trail from
// which any respondent's engine state can be replayed.
type JudgmentLog interface {
	// AppendJudgment durably records j and returns its position in the
	// log. Positions increase monotonically across all respondents.
	AppendJudgment(ctx context.Context, j domain.Judgment) (uint64, error)

	// ListJudgments returns the judgments of one respondent in the order
	// they were appended. An unknown respondent yields an empty slice.
	ListJudgments(ctx context.Context, respondentID string) ([]domain.Judgment, error)
}

// RespondentStore persists respondent records and their finalized rankings.
type RespondentStore interface {
	// CreateRespondent stores a new respondent. The ID must be unique.
	CreateRespondent(ctx context.Context, r domain.Respondent) error

	// GetRespondent returns the respondent with the given ID, or an error
	// wrapping domain.ErrRespondentNotFound.
	GetRespondent(ctx context.Context, id string) (domain.Respondent, error)

	// RespondentExistsForIP reports whether any respondent was created
	// from the given remote address.
	RespondentExistsForIP(ctx context.Context, ip string) (bool, error)

	// SaveRanking attaches the finalized ranking to a respondent. A
	// ranking is written once; saving over an existing one is an error.
	SaveRanking(ctx context.Context, id string, ranking domain.RankAssignment, at time.Time) error

	// ListFinalized returns every respondent holding a ranking, read from
	// a single consistent snapshot of the store.
	ListFinalized(ctx context.Context) ([]domain.Respondent, error)
}

// SessionStore carries a respondent's engine state between requests.
// At most one snapshot exists per respondent.
type SessionStore interface {
	// SaveSession replaces the respondent's snapshot.
	SaveSession(ctx context.Context, respondentID string, s domain.Snapshot) error

	// LoadSession returns the respondent's snapshot. The boolean is false
	// when no session exists.
	LoadSession(ctx context.Context, respondentID string) (domain.Snapshot, bool, error)

	// DeleteSession removes the respondent's snapshot. Deleting a missing
	// session is not an error.
	DeleteSession(ctx context.Context, respondentID string) error

	// CountSessions returns the number of open sessions.
	CountSessions(ctx context.Context) (int, error)
}

// AggregateStore persists the most recently computed aggregate statistics.
type AggregateStore interface {
	// ReplaceAggregates discards every stored statistic and writes stats
	// in their place, atomically.
	ReplaceAggregates(ctx context.Context, stats []domain.AggregateStat) error

	// ListAggregates returns the stored statistics in item order.
	ListAggregates(ctx context.Context) ([]domain.AggregateStat, error)
}

// AccessGate decides whether a caller may see per-respondent detail.
type AccessGate interface {
	// Authorize reports whether the presented credential grants access.
	Authorize(credential string) bool
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus, OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like judgments by result,
	// finalized rankings, or rejected participations.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	// This is useful for tracking values like open sessions.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like judgments per
	// respondent or rank levels per ranking.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
