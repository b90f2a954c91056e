// Copyright (c) StepFlow Authors.
// Licensed under the MIT License.

// Package interpolate renders text templates against workflow data. It
// wraps text/template with the Sprig function map, minus the functions that
// would let a template reach the process environment or filesystem layout,
// and treats missing keys as errors.
package interpolate
