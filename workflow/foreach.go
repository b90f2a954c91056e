package workflow

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// ForEach iterates a slice or array stored in the workflow context, running
// the body once per element. Before each iteration the current element is
// published under the item variable, and optionally the zero-based index
// under the index variable; the entries from the final iteration remain in
// the context afterwards.
//
// A missing, nil or empty collection succeeds without running the body. A
// value of any other type fails. Iteration is fail-fast: the first
// non-success body result is returned verbatim.
type ForEach struct {
	Base
	itemsKey string
	itemVar  string
	indexVar string
	body     Workflow
}

// NewForEach builds a "[ForEach]" iterating the collection under itemsKey,
// exposing each element as itemVar to body.
func NewForEach(name, itemsKey, itemVar string, body Workflow) (*ForEach, error) {
	if strings.TrimSpace(itemsKey) == "" {
		return nil, fmt.Errorf("foreach %q: items key is required", name)
	}
	if strings.TrimSpace(itemVar) == "" {
		return nil, fmt.Errorf("foreach %q: item variable is required", name)
	}
	if body == nil {
		return nil, fmt.Errorf("foreach %q: body workflow is required", name)
	}
	return &ForEach{
		Base:     NewBase(name, "[ForEach]"),
		itemsKey: itemsKey,
		itemVar:  itemVar,
		body:     body,
	}, nil
}

// WithIndexVar additionally publishes the element index under v. Configure
// before the first Execute.
func (f *ForEach) WithIndexVar(v string) *ForEach {
	if strings.TrimSpace(v) != "" {
		f.indexVar = v
	}
	return f
}

// SubWorkflows returns the body workflow.
func (f *ForEach) SubWorkflows() []Workflow {
	return []Workflow{f.body}
}

// Execute iterates the collection, publishing the loop variables before
// each body run.
func (f *ForEach) Execute(ctx context.Context, wctx *Context) *Result {
	return f.Run(ctx, wctx, func(ctx context.Context, wctx *Context, exec *Execution) *Result {
		raw, ok := wctx.Get(f.itemsKey)
		if !ok || raw == nil {
			return exec.Success()
		}
		rv := reflect.ValueOf(raw)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return exec.Failure(fmt.Errorf("context key %q holds %T, want slice or array", f.itemsKey, raw))
		}
		for i := 0; i < rv.Len(); i++ {
			wctx.Put(f.itemVar, rv.Index(i).Interface())
			if f.indexVar != "" {
				wctx.Put(f.indexVar, i)
			}
			res := f.body.Execute(ctx, wctx)
			if res == nil {
				return nilResultFailure(exec, f.body)
			}
			if !res.IsSuccess() {
				return res
			}
		}
		return exec.Success()
	})
}
