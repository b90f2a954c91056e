package workflow

import (
	"context"
	"fmt"
)

// Sequential runs its children in registration order against the shared
// context, stopping at the first child that does not succeed. That child's
// result is returned verbatim; when every child succeeds the combinator
// reports its own SUCCESS.
type Sequential struct {
	Base
	children []Workflow
}

// NewSequential composes children into a "[Sequence]". An empty child list
// is valid and succeeds immediately.
func NewSequential(name string, children ...Workflow) (*Sequential, error) {
	for i, c := range children {
		if c == nil {
			return nil, fmt.Errorf("sequential %q: child %d is nil", name, i)
		}
	}
	return &Sequential{
		Base:     NewBase(name, "[Sequence]"),
		children: append([]Workflow(nil), children...),
	}, nil
}

// SubWorkflows returns the children in registration order.
func (s *Sequential) SubWorkflows() []Workflow {
	return append([]Workflow(nil), s.children...)
}

// Execute runs the children one after another, fail-fast.
func (s *Sequential) Execute(ctx context.Context, wctx *Context) *Result {
	return s.Run(ctx, wctx, func(ctx context.Context, wctx *Context, exec *Execution) *Result {
		for _, child := range s.children {
			res := child.Execute(ctx, wctx)
			if res == nil {
				return nilResultFailure(exec, child)
			}
			if !res.IsSuccess() {
				return res
			}
		}
		return exec.Success()
	})
}
