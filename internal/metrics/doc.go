// Copyright (c) StepFlow Authors.
// Licensed under the MIT License.

// Package metrics provides the Prometheus collector for workflow execution
// metrics. This package is internal and should not be imported by external
// projects.
package metrics
