package application

import (
	"context"
	"time"

	"github.com/ahrav/go-ballot/internal/ports"
)

// noopObserver is used when no observer is configured.
type noopObserver struct{}

func (noopObserver) OperationStarted(ctx context.Context, _, _ string) context.Context {
	return ctx
}

func (noopObserver) OperationFinished(context.Context, string, ports.OperationReport, time.Duration, error) {
}

var _ ports.SurveyObserver = noopObserver{}
