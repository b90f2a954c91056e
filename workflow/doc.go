// Copyright (c) StepFlow Authors.
// Licensed under the MIT License.

// Package workflow provides the execution engine core: the Workflow
// capability, the shared mutable Context, immutable Results and the
// combinators that compose leaf steps into trees.
//
// Every node implements the same three-method Workflow interface, so any
// composition nests inside any other. Execution is synchronous: Execute
// blocks until the node and everything it delegated to has finished, and
// always returns exactly one non-nil Result. Failures travel inside the
// Result; Execute itself never returns a Go error and never panics once
// its preconditions hold.
//
// Combinators share one mutable Context by reference. Writes made by an
// earlier step are visible to every later step, which is the engine's
// data-passing mechanism. The concurrent combinators (Parallel, Timeout)
// either isolate the context per branch or document that they share it.
package workflow
