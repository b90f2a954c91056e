package workflow

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Selector computes the branch key for a Switch from the live context. An
// error return means the key could not be determined.
type Selector func(ctx context.Context, wctx *Context) (string, error)

// Case binds one branch key to a workflow. Keys are matched
// case-insensitively; when two cases fold to the same key the later
// registration wins.
type Case struct {
	Key      string
	Workflow Workflow
}

// Switch routes each execution to the branch whose key matches the
// selector output, falling back to an optional default branch. No match
// and no default yields SKIPPED.
type Switch struct {
	Base
	selector Selector
	branches map[string]Workflow
	cases    []Case
	fallback Workflow
}

// NewSwitch builds a "[Switch]" over the given cases. The default branch
// may be nil.
func NewSwitch(name string, selector Selector, cases []Case, defaultBranch Workflow) (*Switch, error) {
	if selector == nil {
		return nil, fmt.Errorf("switch %q: selector is required", name)
	}
	branches := make(map[string]Workflow, len(cases))
	for i, cs := range cases {
		if cs.Workflow == nil {
			return nil, fmt.Errorf("switch %q: case %d (%q) has no workflow", name, i, cs.Key)
		}
		branches[foldKey(cs.Key)] = cs.Workflow
	}
	return &Switch{
		Base:     NewBase(name, "[Switch]"),
		selector: selector,
		branches: branches,
		cases:    append([]Case(nil), cases...),
		fallback: defaultBranch,
	}, nil
}

// foldKey normalizes a branch key for case-insensitive matching.
func foldKey(key string) string {
	return strings.ToLower(key)
}

// SubWorkflows returns the effective branches in registration order,
// followed by the default branch when present. Cases shadowed by a later
// registration of the same folded key are omitted.
func (s *Switch) SubWorkflows() []Workflow {
	subs := make([]Workflow, 0, len(s.cases)+1)
	for _, cs := range s.cases {
		if s.branches[foldKey(cs.Key)] == cs.Workflow {
			subs = append(subs, cs.Workflow)
		}
	}
	if s.fallback != nil {
		subs = append(subs, s.fallback)
	}
	return subs
}

// Execute evaluates the selector and runs the matching branch, returning
// its result verbatim.
func (s *Switch) Execute(ctx context.Context, wctx *Context) *Result {
	return s.Run(ctx, wctx, func(ctx context.Context, wctx *Context, exec *Execution) *Result {
		key, err := s.selector(ctx, wctx)
		if err != nil {
			return exec.Failure(fmt.Errorf("branch selector evaluation failed: %w", err))
		}
		branch, ok := s.branches[foldKey(key)]
		if !ok {
			branch = s.fallback
		}
		if branch == nil {
			s.Logger().Debug("no branch matched",
				zap.String("workflow", s.Name()),
				zap.String("key", key),
			)
			return exec.Skipped()
		}
		res := branch.Execute(ctx, wctx)
		if res == nil {
			return nilResultFailure(exec, branch)
		}
		return res
	})
}
