package ports

import (
	"context"
	"time"
)

// Operation names reported to a SurveyObserver.
const (
	OpStart     = "start"
	OpSubmit    = "submit"
	OpFinalize  = "finalize"
	OpAggregate = "aggregate"
	OpReplay    = "replay"
)

// OperationReport describes the outcome of one observed operation. Only the
// fields relevant to the operation are set.
type OperationReport struct {
	// RespondentID identifies the respondent, when the operation has one.
	RespondentID string

	// Result is the judgment outcome for submit operations.
	Result string

	// Clusters and Unresolved describe the engine state after a submit.
	Clusters   int
	Unresolved int

	// Finalized is true when the operation stored a ranking.
	Finalized bool

	// Judgments is the number of judgments the respondent needed.
	Judgments int

	// Levels is the number of distinct ranks in a stored ranking.
	Levels int

	// Respondents is the number of rankings an aggregation read.
	Respondents int

	// OpenSessions is the number of sessions open after the operation,
	// or -1 when unknown.
	OpenSessions int
}

// SurveyObserver provides observability hooks for survey and aggregation
// operations. Implementations can add tracing, metrics, and logging without
// coupling those concerns to the services.
type SurveyObserver interface {
	// OperationStarted is called before an operation runs. The returned
	// context carries anything the observer attached, such as a span, and
	// is used for the rest of the operation.
	OperationStarted(ctx context.Context, operation, respondentID string) context.Context

	// OperationFinished is called exactly once after the operation, with
	// the context returned by OperationStarted.
	OperationFinished(ctx context.Context, operation string, report OperationReport, elapsed time.Duration, err error)
}
