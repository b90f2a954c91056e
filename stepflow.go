// Package stepflow provides a top-level convenience entry point for building
// and executing workflows with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/stepflow"
//
//	charge, err := stepflow.NewTask("charge", chargeFn)
//	flow, err := stepflow.NewSequential("checkout", reserve, charge)
//	res := flow.Execute(ctx, stepflow.NewContext())
//
// This is a thin re-export of the [workflow] package; both produce identical
// results. Use this package when you prefer the shorter import path. Retry
// and timeout policies live in [policy], declarative YAML loading in
// [definition].
package stepflow

import (
	"github.com/BaSui01/stepflow/workflow"
)

// Version is the library version.
const Version = "0.1.0"

// Core capability aliases so callers never need to import workflow/.
type (
	// Workflow is the executable capability every combinator implements.
	Workflow = workflow.Workflow
	// Container exposes traversal over composed sub-workflows.
	Container = workflow.Container
	// Context is the shared mutable state of one execution.
	Context = workflow.Context
	// Result is the terminal outcome of one execution.
	Result = workflow.Result
	// Status is the outcome classification of a Result.
	Status = workflow.Status
	// Task is a bare unit of work operating on the context.
	Task = workflow.Task
	// Predicate decides a Conditional branch.
	Predicate = workflow.Predicate
	// Selector picks a Switch case key.
	Selector = workflow.Selector
)

// Status values.
const (
	StatusSuccess = workflow.StatusSuccess
	StatusFailed  = workflow.StatusFailed
	StatusSkipped = workflow.StatusSkipped
)

// NewContext creates an empty execution context.
var NewContext = workflow.NewContext

// NewContextFrom creates a context seeded from a map.
var NewContextFrom = workflow.NewContextFrom

// NewTask wraps a function into a workflow leaf.
var NewTask = workflow.NewTask

// NewSequential runs children in order, stopping at the first failure.
var NewSequential = workflow.NewSequential

// NewConditional branches on a predicate.
var NewConditional = workflow.NewConditional

// NewSwitch branches on a selector key.
var NewSwitch = workflow.NewSwitch

// NewForEach runs a body once per item of a context slice.
var NewForEach = workflow.NewForEach

// NewRepeat runs a body a fixed number of times.
var NewRepeat = workflow.NewRepeat

// NewFallback tries a primary workflow and falls back on failure.
var NewFallback = workflow.NewFallback

// NewParallel runs branches concurrently.
var NewParallel = workflow.NewParallel

// NewRetry re-executes a workflow under a retry policy.
var NewRetry = workflow.NewRetry

// NewTimeout bounds a workflow with a time budget.
var NewTimeout = workflow.NewTimeout

// NewRateLimited throttles executions through a limiter.
var NewRateLimited = workflow.NewRateLimited

// NewSaga runs steps with reverse-order compensation on failure.
var NewSaga = workflow.NewSaga

// NewCircuitBreaker sheds load after consecutive failures.
var NewCircuitBreaker = workflow.NewCircuitBreaker

// NewChaos injects configured faults around a workflow.
var NewChaos = workflow.NewChaos
