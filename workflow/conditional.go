package workflow

import (
	"context"
	"fmt"
)

// Predicate decides which Conditional branch runs. It may read and write
// the workflow context. An error return means the condition itself could
// not be evaluated; it is not treated as false.
type Predicate func(ctx context.Context, wctx *Context) (bool, error)

// Conditional evaluates a predicate once per execution and delegates to the
// matching branch. An absent branch yields SKIPPED, never an error.
type Conditional struct {
	Base
	pred    Predicate
	onTrue  Workflow
	onFalse Workflow
}

// NewConditional builds a "[Conditional]" around pred. Either branch may be
// nil, but not both.
func NewConditional(name string, pred Predicate, onTrue, onFalse Workflow) (*Conditional, error) {
	if pred == nil {
		return nil, fmt.Errorf("conditional %q: predicate is required", name)
	}
	if onTrue == nil && onFalse == nil {
		return nil, fmt.Errorf("conditional %q: at least one branch is required", name)
	}
	return &Conditional{
		Base:    NewBase(name, "[Conditional]"),
		pred:    pred,
		onTrue:  onTrue,
		onFalse: onFalse,
	}, nil
}

// SubWorkflows returns the configured branches, true branch first.
func (c *Conditional) SubWorkflows() []Workflow {
	subs := make([]Workflow, 0, 2)
	if c.onTrue != nil {
		subs = append(subs, c.onTrue)
	}
	if c.onFalse != nil {
		subs = append(subs, c.onFalse)
	}
	return subs
}

// Execute evaluates the predicate and runs the selected branch, returning
// its result verbatim.
func (c *Conditional) Execute(ctx context.Context, wctx *Context) *Result {
	return c.Run(ctx, wctx, func(ctx context.Context, wctx *Context, exec *Execution) *Result {
		ok, err := c.pred(ctx, wctx)
		if err != nil {
			return exec.Failure(fmt.Errorf("condition evaluation failed: %w", err))
		}
		branch := c.onFalse
		if ok {
			branch = c.onTrue
		}
		if branch == nil {
			return exec.Skipped()
		}
		res := branch.Execute(ctx, wctx)
		if res == nil {
			return nilResultFailure(exec, branch)
		}
		return res
	})
}
