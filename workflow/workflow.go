package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Workflow is the single capability every node in a tree exposes. Execute
// runs the node synchronously against the shared workflow context and
// returns exactly one non-nil Result; failures travel inside the Result,
// never as a Go error or a panic.
type Workflow interface {
	// Execute runs the node. ctx carries cancellation and deadlines, wctx
	// is the shared mutable state and must not be nil.
	Execute(ctx context.Context, wctx *Context) *Result
	// Name returns the human-readable identity used in logs and errors.
	Name() string
	// Type returns the bracketed structural tag, such as "[Sequence]".
	Type() string
}

// Container is implemented by composite workflows. It exposes the ordered
// children so trees can be traversed without executing them.
type Container interface {
	Workflow
	// SubWorkflows returns the immediate children in registration order.
	SubWorkflows() []Workflow
}

// Body is the per-node execution hook run under the Base template.
type Body func(ctx context.Context, wctx *Context, exec *Execution) *Result

// Base is the execution template embedded by every node. It owns naming,
// debug logging and the conversion of anything escaping the body into a
// FAILED result, so Execute implementations reduce to one Run call.
type Base struct {
	name   string
	kind   string
	logger *zap.Logger
}

// NewBase builds a template with the given name and bracketed type tag.
// A blank or whitespace name defaults to "<kind>:<token>" with a unique
// token.
func NewBase(name, kind string) Base {
	if strings.TrimSpace(name) == "" {
		name = strings.ToLower(strings.Trim(kind, "[]")) + ":" + shortID()
	}
	return Base{name: name, kind: kind, logger: zap.NewNop()}
}

// Name returns the node's identity.
func (b *Base) Name() string { return b.name }

// Type returns the node's bracketed type tag.
func (b *Base) Type() string { return b.kind }

// SetLogger replaces the template logger. Configure before the first
// Execute; the default is a nop logger.
func (b *Base) SetLogger(logger *zap.Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// Logger returns the configured logger.
func (b *Base) Logger() *zap.Logger { return b.logger }

// Run executes body under the template. It panics on a nil workflow
// context, captures the start time for the Execution factory, and converts
// a panicking or nil-returning body into a FAILED result. A panic carrying
// an error keeps that error as the cause, unwrapped.
func (b *Base) Run(ctx context.Context, wctx *Context, body Body) (res *Result) {
	if wctx == nil {
		panic(fmt.Sprintf("workflow %q: nil workflow context", b.name))
	}
	exec := newExecution(time.Now())
	runID := shortID()
	b.logger.Debug("workflow started",
		zap.String("workflow", b.name),
		zap.String("type", b.kind),
		zap.String("run_id", runID),
	)
	defer func() {
		if r := recover(); r != nil {
			res = exec.Failure(recoveredError(b.name, r))
		}
		if res == nil {
			res = exec.Failure(fmt.Errorf("workflow %q produced no result", b.name))
		}
		fields := []zap.Field{
			zap.String("workflow", b.name),
			zap.String("type", b.kind),
			zap.String("run_id", runID),
			zap.String("status", string(res.Status())),
			zap.Duration("duration", res.Duration()),
		}
		if err := res.Err(); err != nil {
			fields = append(fields, zap.Error(err))
		}
		b.logger.Debug("workflow finished", fields...)
	}()
	res = body(ctx, wctx, exec)
	return res
}

// recoveredError converts a recovered panic value into a failure cause. An
// error value passes through unchanged so callers can inspect it with
// errors.Is and errors.As.
func recoveredError(name string, r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("workflow %q panicked: %v", name, r)
}

// safeExecute runs w and converts an escaping panic into a FAILED result,
// so a misbehaving implementation cannot unwind a combinator loop or leak
// out of a goroutine. It returns nil only when w itself returned nil.
func safeExecute(ctx context.Context, wctx *Context, w Workflow) (res *Result) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = newExecution(started).Failure(recoveredError(w.Name(), r))
		}
	}()
	return w.Execute(ctx, wctx)
}

// nilResultFailure is the synthesized failure for a child that returned a
// nil Result in violation of the Workflow contract.
func nilResultFailure(exec *Execution, w Workflow) *Result {
	return exec.Failure(fmt.Errorf("workflow %q returned nil result", w.Name()))
}

func shortID() string {
	return uuid.NewString()[:8]
}

// Must panics when err is non-nil and otherwise returns v. It keeps tree
// assembly terse when the inputs are known to be valid.
func Must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
