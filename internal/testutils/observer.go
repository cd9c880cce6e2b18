package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/ahrav/go-ballot/internal/ports"
)

// ObservedOperation is one finished operation seen by a RecordingObserver.
type ObservedOperation struct {
	Operation string
	Report    ports.OperationReport
	Err       error
}

// RecordingObserver implements ports.SurveyObserver by recording every
// finished operation.
type RecordingObserver struct {
	mu      sync.Mutex
	started int
	ops     []ObservedOperation
}

// OperationStarted counts the start and returns ctx unchanged.
func (o *RecordingObserver) OperationStarted(ctx context.Context, _, _ string) context.Context {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
	return ctx
}

// OperationFinished records the operation.
func (o *RecordingObserver) OperationFinished(_ context.Context, operation string, report ports.OperationReport, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, ObservedOperation{Operation: operation, Report: report, Err: err})
}

// Started returns how many operations began.
func (o *RecordingObserver) Started() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.started
}

// Operations returns the finished operations with the given name, or all of
// them when name is empty.
func (o *RecordingObserver) Operations(name string) []ObservedOperation {
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []ObservedOperation
	for _, op := range o.ops {
		if name == "" || op.Operation == name {
			out = append(out, op)
		}
	}
	return out
}

// StaticGate implements ports.AccessGate by comparing against one token.
type StaticGate struct{ Token string }

// Authorize reports whether credential equals the token.
func (g StaticGate) Authorize(credential string) bool {
	return g.Token != "" && credential == g.Token
}

var (
	_ ports.SurveyObserver = (*RecordingObserver)(nil)
	_ ports.AccessGate     = StaticGate{}
)
