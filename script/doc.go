// Copyright (c) StepFlow Authors.
// Licensed under the MIT License.

// Package script provides a workflow leaf backed by the yaegi Go
// interpreter. Scripts are plain Go source evaluated in a fresh interpreter
// per execution with standard-library symbols only; they exchange data with
// the workflow context through a map snapshot.
package script
