// Copyright (c) StepFlow Authors.
// Licensed under the MIT License.

// Package definition loads declarative YAML workflow definitions and builds
// executable workflow trees from them. The schema mirrors the engine's closed
// combinator set with one node kind per combinator. Caller code plugs in
// through registered tasks, predicates and selectors, while key-based
// decisions read directly from the workflow context.
package definition
