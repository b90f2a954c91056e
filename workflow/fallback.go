package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Fallback runs a primary workflow and, on anything but a clean success,
// runs a fallback against the same already-mutated context, so the fallback
// observes every write the primary made before failing. A panicking primary
// is contained and triggers the fallback; a panicking fallback is not
// shielded and surfaces through the usual template recovery.
type Fallback struct {
	Base
	primary  Workflow
	fallback Workflow
}

// NewFallback builds a "[Fallback]" around the primary/fallback pair.
func NewFallback(name string, primary, fallback Workflow) (*Fallback, error) {
	if primary == nil {
		return nil, fmt.Errorf("fallback %q: primary workflow is required", name)
	}
	if fallback == nil {
		return nil, fmt.Errorf("fallback %q: fallback workflow is required", name)
	}
	return &Fallback{Base: NewBase(name, "[Fallback]"), primary: primary, fallback: fallback}, nil
}

// SubWorkflows returns the primary and fallback workflows in that order.
func (f *Fallback) SubWorkflows() []Workflow {
	return []Workflow{f.primary, f.fallback}
}

// Execute runs the primary and falls back on failure, skip, panic or a nil
// result.
func (f *Fallback) Execute(ctx context.Context, wctx *Context) *Result {
	return f.Run(ctx, wctx, func(ctx context.Context, wctx *Context, exec *Execution) *Result {
		pres := safeExecute(ctx, wctx, f.primary)
		if pres != nil && pres.IsSuccess() {
			return pres
		}
		if pres != nil && pres.Err() != nil {
			f.Logger().Debug("primary failed, running fallback",
				zap.String("workflow", f.Name()),
				zap.String("primary", f.primary.Name()),
				zap.Error(pres.Err()),
			)
		}
		fres := f.fallback.Execute(ctx, wctx)
		if fres == nil || (!fres.IsSuccess() && fres.Err() == nil) {
			return exec.Failure(fmt.Errorf("fallback workflow %q failed with no error details", f.fallback.Name()))
		}
		return fres
	})
}
