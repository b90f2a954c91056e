package policy

import "errors"

// RetryPolicy decides whether a failed attempt may be retried.
// The zero value never retries; construct policies through NoRetries,
// LimitedRetries or LimitedRetriesFor.
type RetryPolicy struct {
	maxRetries int
	targets    []error
}

// NoRetries returns a policy that never retries.
func NoRetries() RetryPolicy {
	return RetryPolicy{}
}

// LimitedRetries returns a policy that permits up to max retries
// regardless of the error that caused the attempt to fail.
func LimitedRetries(max int) RetryPolicy {
	if max < 0 {
		max = 0
	}
	return RetryPolicy{maxRetries: max}
}

// LimitedRetriesFor returns a policy that permits up to max retries, but
// only when the failing error matches one of targets via errors.Is. Any
// other error stops retrying regardless of the attempt count.
func LimitedRetriesFor(max int, targets ...error) RetryPolicy {
	p := LimitedRetries(max)
	p.targets = append([]error(nil), targets...)
	return p
}

// MaxRetries returns the retry budget of the policy.
func (p RetryPolicy) MaxRetries() int {
	return p.maxRetries
}

// ShouldRetry reports whether the attempt-th retry (1-indexed) may proceed
// for the given error.
func (p RetryPolicy) ShouldRetry(attempt int, err error) bool {
	if attempt < 1 || attempt > p.maxRetries {
		return false
	}
	if len(p.targets) == 0 {
		return true
	}
	for _, target := range p.targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
