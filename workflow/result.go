package workflow

import "time"

// Result is the immutable outcome of one workflow execution. Fields are
// fixed at construction; combinators that propagate a child outcome hand
// the child's Result through verbatim rather than rebuilding it.
type Result struct {
	status      Status
	err         error
	startedAt   time.Time
	completedAt time.Time
}

// Status returns the terminal outcome.
func (r *Result) Status() Status { return r.status }

// Err returns the failure cause. It may be nil even for a failed result.
func (r *Result) Err() error { return r.err }

// StartedAt returns when the producing execution began.
func (r *Result) StartedAt() time.Time { return r.startedAt }

// CompletedAt returns when the producing execution finished.
func (r *Result) CompletedAt() time.Time { return r.completedAt }

// Duration returns the wall-clock span of the producing execution.
func (r *Result) Duration() time.Duration { return r.completedAt.Sub(r.startedAt) }

// IsSuccess reports whether the execution succeeded.
func (r *Result) IsSuccess() bool { return r.status == StatusSuccess }

// IsFailure reports whether the execution failed.
func (r *Result) IsFailure() bool { return r.status == StatusFailed }

// IsSkipped reports whether the execution was skipped.
func (r *Result) IsSkipped() bool { return r.status == StatusSkipped }

// Execution builds Results stamped against the start time of the current
// call. Base hands one factory to each body invocation so every result a
// node produces shares that call's startedAt.
type Execution struct {
	startedAt time.Time
}

func newExecution(startedAt time.Time) *Execution {
	return &Execution{startedAt: startedAt}
}

// NewExecution returns a factory stamping results against startedAt. It is
// intended for decorators outside this package that must synthesize a
// result for a misbehaving inner workflow.
func NewExecution(startedAt time.Time) *Execution {
	return newExecution(startedAt)
}

// StartedAt returns the capture time of the current call.
func (e *Execution) StartedAt() time.Time { return e.startedAt }

// Success builds a SUCCESS result completed now.
func (e *Execution) Success() *Result { return e.Complete(StatusSuccess, nil) }

// Failure builds a FAILED result completed now, carrying err as the cause.
func (e *Execution) Failure(err error) *Result { return e.Complete(StatusFailed, err) }

// Skipped builds a SKIPPED result completed now.
func (e *Execution) Skipped() *Result { return e.Complete(StatusSkipped, nil) }

// Complete builds a result with an explicit status and optional cause.
func (e *Execution) Complete(status Status, err error) *Result {
	return &Result{
		status:      status,
		err:         err,
		startedAt:   e.startedAt,
		completedAt: time.Now(),
	}
}
