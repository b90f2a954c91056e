// Copyright (c) StepFlow Authors.
// Licensed under the MIT License.

/*
Package policy provides the pure, immutable policy values consumed by the
workflow combinators: retry policies, backoff strategies and timeout budgets.

Policies perform computation only. They never sleep, block or touch the
execution context; the combinators that consume them own all side effects.

	pol := policy.LimitedRetries(3)
	bo := policy.ExponentialBackoffWithJitter(100*time.Millisecond, 10*time.Second)
	budget := policy.OfMillis(2500)
*/
package policy
