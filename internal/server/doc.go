// Copyright (c) StepFlow Authors.
// Licensed under the MIT License.

// Package server manages the lifecycle of operational HTTP endpoints such
// as the Prometheus metrics listener: non-blocking start, graceful shutdown
// and asynchronous error reporting. This package is internal and should not
// be imported by external projects.
package server
