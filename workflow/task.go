package workflow

import (
	"context"
	"errors"
	"fmt"
)

// Task is a bare unit of work operating on the shared workflow context.
// A nil return means success.
type Task func(ctx context.Context, wctx *Context) error

// TaskWorkflow adapts a Task into a workflow leaf.
type TaskWorkflow struct {
	Base
	fn Task
}

// NewTask wraps fn as a "[Task]" leaf under the given name.
func NewTask(name string, fn Task) (*TaskWorkflow, error) {
	if fn == nil {
		return nil, errors.New("new task: function is required")
	}
	return &TaskWorkflow{Base: NewBase(name, "[Task]"), fn: fn}, nil
}

// Execute runs the wrapped function and maps a nil error to SUCCESS.
func (t *TaskWorkflow) Execute(ctx context.Context, wctx *Context) *Result {
	return t.Run(ctx, wctx, func(ctx context.Context, wctx *Context, exec *Execution) *Result {
		if err := t.fn(ctx, wctx); err != nil {
			return exec.Failure(err)
		}
		return exec.Success()
	})
}

// runTask invokes t directly, converting an escaping panic into an error.
// Saga uses it for actions and compensations that are Tasks rather than
// full workflows.
func runTask(ctx context.Context, wctx *Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if perr, ok := r.(error); ok {
				err = perr
				return
			}
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return t(ctx, wctx)
}
