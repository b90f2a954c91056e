package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ExecutionRecorder receives one record per completed execution. It is the
// consumer-side seam between the engine and a metrics backend.
type ExecutionRecorder interface {
	RecordExecution(name, kind string, status Status, duration time.Duration)
}

// Instrumented is a transparent decorator: it keeps the inner workflow's
// identity and traversal and records every execution outcome with the
// configured recorder.
type Instrumented struct {
	inner Workflow
	rec   ExecutionRecorder
}

// NewInstrumented decorates inner with rec.
func NewInstrumented(inner Workflow, rec ExecutionRecorder) (*Instrumented, error) {
	if inner == nil {
		return nil, errors.New("instrumented: inner workflow is required")
	}
	if rec == nil {
		return nil, errors.New("instrumented: recorder is required")
	}
	return &Instrumented{inner: inner, rec: rec}, nil
}

// Name forwards the inner workflow's name.
func (w *Instrumented) Name() string { return w.inner.Name() }

// Type forwards the inner workflow's type tag.
func (w *Instrumented) Type() string { return w.inner.Type() }

// SubWorkflows forwards traversal when the inner workflow is a Container.
func (w *Instrumented) SubWorkflows() []Workflow {
	if c, ok := w.inner.(Container); ok {
		return c.SubWorkflows()
	}
	return nil
}

// Execute delegates and records the outcome, measuring with the result's
// own execution duration.
func (w *Instrumented) Execute(ctx context.Context, wctx *Context) *Result {
	started := time.Now()
	res := safeExecute(ctx, wctx, w.inner)
	if res == nil {
		res = newExecution(started).Failure(fmt.Errorf("workflow %q returned nil result", w.inner.Name()))
	}
	w.rec.RecordExecution(w.Name(), w.Type(), res.Status(), res.Duration())
	return res
}
