package policy

import (
	"fmt"
	"time"
)

// TimeoutPolicy is an immutable millisecond budget for bounded execution.
// A budget of zero or below disables the timeout.
type TimeoutPolicy struct {
	millis int64
}

// NoTimeout returns the disabled policy (zero milliseconds).
func NoTimeout() TimeoutPolicy {
	return TimeoutPolicy{}
}

// OfMillis builds a policy from a millisecond count. Any value is accepted,
// including zero and negatives: a disabled or instant budget is valid.
func OfMillis(ms int64) TimeoutPolicy {
	return TimeoutPolicy{millis: ms}
}

// OfSeconds builds a policy from whole seconds. The value must be strictly
// positive.
func OfSeconds(s int64) (TimeoutPolicy, error) {
	if s <= 0 {
		return TimeoutPolicy{}, fmt.Errorf("timeout seconds must be positive, got %d", s)
	}
	return TimeoutPolicy{millis: s * 1000}, nil
}

// OfMinutes builds a policy from whole minutes. The value must be strictly
// positive.
func OfMinutes(m int64) (TimeoutPolicy, error) {
	if m <= 0 {
		return TimeoutPolicy{}, fmt.Errorf("timeout minutes must be positive, got %d", m)
	}
	return TimeoutPolicy{millis: m * 60_000}, nil
}

// Millis returns the raw millisecond budget.
func (p TimeoutPolicy) Millis() int64 {
	return p.millis
}

// Duration reinterprets the millisecond budget as a time.Duration,
// possibly zero or negative.
func (p TimeoutPolicy) Duration() time.Duration {
	return time.Duration(p.millis) * time.Millisecond
}

// String renders the budget for logs.
func (p TimeoutPolicy) String() string {
	return fmt.Sprintf("%dms", p.millis)
}
