package workflow

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// IsolationMode selects how Parallel exposes the workflow context to its
// branches.
type IsolationMode int

const (
	// IsolateAndMerge gives each branch a clone of the context and merges
	// the clones of successful branches back after the join. This is the
	// default.
	IsolateAndMerge IsolationMode = iota
	// IsolateAndDiscard gives each branch a clone and drops every branch
	// write after the join.
	IsolateAndDiscard
	// ShareContext hands every branch the same context handle. Writes
	// interleave; the context's own locking keeps access race-free.
	ShareContext
)

func (m IsolationMode) String() string {
	switch m {
	case IsolateAndMerge:
		return "isolate_and_merge"
	case IsolateAndDiscard:
		return "isolate_and_discard"
	case ShareContext:
		return "share_context"
	default:
		return "unknown"
	}
}

// Parallel runs its branches concurrently and joins before returning. Every
// branch runs to completion even when a sibling fails; the combinator then
// reports the first non-success branch result in registration order, or its
// own SUCCESS. An empty branch list succeeds immediately.
type Parallel struct {
	Base
	branches []Workflow
	mode     IsolationMode
	merge    MergeStrategy
}

// NewParallel composes branches into a "[Parallel]" with IsolateAndMerge
// semantics and overwrite-on-collision merging.
func NewParallel(name string, branches ...Workflow) (*Parallel, error) {
	for i, b := range branches {
		if b == nil {
			return nil, fmt.Errorf("parallel %q: branch %d is nil", name, i)
		}
	}
	return &Parallel{
		Base:     NewBase(name, "[Parallel]"),
		branches: append([]Workflow(nil), branches...),
		mode:     IsolateAndMerge,
		merge:    MergeOverwrite,
	}, nil
}

// WithIsolation selects the context isolation mode. Configure before the
// first Execute.
func (p *Parallel) WithIsolation(mode IsolationMode) *Parallel {
	p.mode = mode
	return p
}

// WithMergeStrategy selects collision handling for IsolateAndMerge.
// Configure before the first Execute.
func (p *Parallel) WithMergeStrategy(s MergeStrategy) *Parallel {
	p.merge = s
	return p
}

// SubWorkflows returns the branches in registration order.
func (p *Parallel) SubWorkflows() []Workflow {
	return append([]Workflow(nil), p.branches...)
}

// Execute fans the branches out, joins, merges per the isolation mode and
// aggregates the outcome.
func (p *Parallel) Execute(ctx context.Context, wctx *Context) *Result {
	return p.Run(ctx, wctx, func(ctx context.Context, wctx *Context, exec *Execution) *Result {
		if len(p.branches) == 0 {
			return exec.Success()
		}

		results := make([]*Result, len(p.branches))
		contexts := make([]*Context, len(p.branches))

		g, gctx := errgroup.WithContext(ctx)
		for i, branch := range p.branches {
			i, branch := i, branch
			branchCtx := wctx
			if p.mode != ShareContext {
				branchCtx = wctx.Clone()
			}
			contexts[i] = branchCtx
			g.Go(func() error {
				// Every branch result is collected; aggregation below
				// decides the combinator outcome.
				results[i] = safeExecute(gctx, branchCtx, branch)
				return nil
			})
		}
		_ = g.Wait()

		if p.mode == IsolateAndMerge {
			for i, branch := range p.branches {
				res := results[i]
				if res == nil || !res.IsSuccess() {
					continue
				}
				if _, err := wctx.Merge(contexts[i], p.merge); err != nil {
					return exec.Failure(fmt.Errorf("merging branch %q: %w", branch.Name(), err))
				}
			}
		}

		for i, branch := range p.branches {
			res := results[i]
			if res == nil {
				return nilResultFailure(exec, branch)
			}
			if !res.IsSuccess() {
				return res
			}
		}
		return exec.Success()
	})
}
