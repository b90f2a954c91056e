package workflow

import (
	"context"
	"fmt"
	"strings"
)

// defaultIndexVar is the context key Repeat publishes the iteration index
// under when none is configured.
const defaultIndexVar = "iteration"

// Repeat runs its body a fixed number of times, publishing the zero-based
// iteration index to the context before each run. A count of zero or below
// succeeds without running the body. Iteration is fail-fast and the index
// entry from the final iteration remains in the context.
type Repeat struct {
	Base
	times    int
	indexVar string
	body     Workflow
}

// NewRepeat builds a "[Repeat]" running body times times.
func NewRepeat(name string, times int, body Workflow) (*Repeat, error) {
	if body == nil {
		return nil, fmt.Errorf("repeat %q: body workflow is required", name)
	}
	return &Repeat{
		Base:     NewBase(name, "[Repeat]"),
		times:    times,
		indexVar: defaultIndexVar,
		body:     body,
	}, nil
}

// WithIndexVar publishes the iteration index under v instead of
// "iteration". Configure before the first Execute.
func (r *Repeat) WithIndexVar(v string) *Repeat {
	if strings.TrimSpace(v) != "" {
		r.indexVar = v
	}
	return r
}

// Times returns the configured iteration count.
func (r *Repeat) Times() int { return r.times }

// SubWorkflows returns the body workflow.
func (r *Repeat) SubWorkflows() []Workflow {
	return []Workflow{r.body}
}

// Execute runs the body the configured number of times, fail-fast.
func (r *Repeat) Execute(ctx context.Context, wctx *Context) *Result {
	return r.Run(ctx, wctx, func(ctx context.Context, wctx *Context, exec *Execution) *Result {
		for i := 0; i < r.times; i++ {
			wctx.Put(r.indexVar, i)
			res := r.body.Execute(ctx, wctx)
			if res == nil {
				return nilResultFailure(exec, r.body)
			}
			if !res.IsSuccess() {
				return res
			}
		}
		return exec.Success()
	})
}
