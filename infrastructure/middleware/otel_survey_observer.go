package middleware

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/ports"
)

// TracerName is the instrumentation name of survey spans.
const TracerName = "github.com/ahrav/go-ballot/survey"

// Operation statuses used as metric labels.
const (
	StatusOK               = "ok"
	StatusInputError       = "input_error"
	StatusStateError       = "state_error"
	StatusConsistencyError = "consistency_error"
	StatusDuplicate        = "duplicate"
	StatusForbidden        = "forbidden"
	StatusError            = "error"
)

var _ ports.SurveyObserver = (*OTelSurveyObserver)(nil)

// OTelSurveyObserver implements observability for survey operations using
// OpenTelemetry tracing. It opens a span per operation, annotates it with
// the operation report, and records the outcome through a MetricsCollector.
// A single observer serves every request; per-operation state travels in
// the context.
type OTelSurveyObserver struct {
	tracer  trace.Tracer
	metrics ports.MetricsCollector
}

// ObserverOption configures an OTelSurveyObserver.
type ObserverOption func(*OTelSurveyObserver)

// WithTracerProvider takes spans from tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) ObserverOption {
	return func(o *OTelSurveyObserver) { o.tracer = tp.Tracer(TracerName) }
}

// NewOTelSurveyObserver creates a new OpenTelemetry survey observer. The
// tracer comes from the global provider unless an option replaces it;
// metrics may be nil.
func NewOTelSurveyObserver(metrics ports.MetricsCollector, opts ...ObserverOption) *OTelSurveyObserver {
	o := &OTelSurveyObserver{
		tracer:  otel.Tracer(TracerName),
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OperationStarted implements the SurveyObserver interface. It starts a
// span named after the operation.
func (o *OTelSurveyObserver) OperationStarted(ctx context.Context, operation, respondentID string) context.Context {
	attrs := []attribute.KeyValue{attribute.String("survey.operation", operation)}
	if respondentID != "" {
		attrs = append(attrs, attribute.String("survey.respondent_id", respondentID))
	}
	ctx, _ = o.tracer.Start(ctx, "Survey."+operation, trace.WithAttributes(attrs...))
	return ctx
}

// OperationFinished implements the SurveyObserver interface. It finalizes
// the span, records metrics, and handles any error conditions that
// occurred.
func (o *OTelSurveyObserver) OperationFinished(
	ctx context.Context,
	operation string,
	report ports.OperationReport,
	elapsed time.Duration,
	err error,
) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	o.addSpanAttributes(span, report)
	status := Classify(err)

	if o.metrics != nil {
		labels := map[string]string{"status": status}
		o.metrics.RecordLatency(operation, elapsed, labels)
		o.metrics.RecordCounter(operation, 1, labels)
		if report.OpenSessions >= 0 {
			o.metrics.RecordGauge(MetricOpenSessions, float64(report.OpenSessions), nil)
		}
	}

	if err != nil {
		o.recordFailure(span, operation, report, status, err)
		return
	}

	switch operation {
	case ports.OpSubmit:
		span.AddEvent("judgment.recorded", trace.WithAttributes(
			attribute.String("result", report.Result),
			attribute.Int("unresolved_pairs", report.Unresolved),
		))
		o.count(MetricJudgments, map[string]string{"result": report.Result})
	case ports.OpFinalize:
		span.AddEvent("ranking.finalized", trace.WithAttributes(
			attribute.Int("levels", report.Levels),
			attribute.Int("judgments", report.Judgments),
		))
		if o.metrics != nil {
			o.metrics.RecordCounter(MetricRankingsFinalized, 1, nil)
			o.metrics.RecordHistogram(MetricJudgmentsPerRanking, float64(report.Judgments), nil)
			o.metrics.RecordHistogram(MetricRankLevels, float64(report.Levels), nil)
		}
	case ports.OpAggregate:
		if o.metrics != nil {
			o.metrics.RecordGauge(MetricAggregatedRespondents, float64(report.Respondents), nil)
		}
	}

	span.SetStatus(codes.Ok, "")
}

func (o *OTelSurveyObserver) recordFailure(span trace.Span, operation string, report ports.OperationReport, status string, err error) {
	span.RecordError(err)

	var dce *domain.DataConsistencyError
	switch {
	case errors.As(err, &dce):
		unranked := make([]int64, len(dce.Unranked))
		for i, item := range dce.Unranked {
			unranked[i] = int64(item)
		}
		span.AddEvent("ranking.inconsistent", trace.WithAttributes(
			attribute.Int64Slice("unranked_items", unranked),
		))
		// The judgment that triggered finalization was logged before the
		// failure surfaced.
		if operation == ports.OpSubmit {
			o.count(MetricJudgments, map[string]string{"result": report.Result})
		}
		if operation == ports.OpFinalize {
			o.count(MetricConsistencyFailures, nil)
		}
	case status == StatusDuplicate:
		span.AddEvent("participation.rejected")
		o.count(MetricParticipationRejected, map[string]string{"reason": "duplicate"})
	}

	span.SetStatus(codes.Error, err.Error())
}

func (o *OTelSurveyObserver) count(metric string, labels map[string]string) {
	if o.metrics != nil {
		o.metrics.RecordCounter(metric, 1, labels)
	}
}

// addSpanAttributes sets span attributes describing the survey state.
func (o *OTelSurveyObserver) addSpanAttributes(span trace.Span, report ports.OperationReport) {
	if report.RespondentID != "" {
		span.SetAttributes(attribute.String("survey.respondent_id", report.RespondentID))
	}
	if report.Clusters > 0 {
		span.SetAttributes(
			attribute.Int("survey.clusters", report.Clusters),
			attribute.Int("survey.unresolved_pairs", report.Unresolved),
		)
	}
	if report.Respondents > 0 {
		span.SetAttributes(attribute.Int("aggregation.respondents", report.Respondents))
	}
	span.SetAttributes(attribute.Bool("survey.finalized", report.Finalized))
}

// Classify maps an operation error to a status label.
func Classify(err error) string {
	if err == nil {
		return StatusOK
	}

	var (
		inputErr *domain.InputError
		stateErr *domain.StateError
		dce      *domain.DataConsistencyError
	)
	switch {
	case errors.As(err, &inputErr):
		return StatusInputError
	case errors.As(err, &dce):
		return StatusConsistencyError
	case errors.As(err, &stateErr):
		return StatusStateError
	case errors.Is(err, domain.ErrAlreadyParticipated):
		return StatusDuplicate
	case errors.Is(err, domain.ErrAccessDenied):
		return StatusForbidden
	default:
		return StatusError
	}
}
