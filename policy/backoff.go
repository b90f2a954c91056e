package policy

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy computes the delay to wait before a retry attempt.
// Attempts are 1-indexed; attempt values below 1 yield no delay.
type BackoffStrategy interface {
	Delay(attempt int) time.Duration
}

type noBackoff struct{}

func (noBackoff) Delay(int) time.Duration { return 0 }

// NoBackoff returns a strategy with zero delay for every attempt.
func NoBackoff() BackoffStrategy {
	return noBackoff{}
}

type constantBackoff struct {
	d time.Duration
}

func (b constantBackoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return b.d
}

// ConstantBackoff returns a strategy with the same delay for every attempt.
func ConstantBackoff(d time.Duration) BackoffStrategy {
	return constantBackoff{d: d}
}

type linearBackoff struct {
	base time.Duration
}

func (b linearBackoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return time.Duration(attempt) * b.base
}

// LinearBackoff returns a strategy whose delay grows linearly: base*attempt.
func LinearBackoff(base time.Duration) BackoffStrategy {
	return linearBackoff{base: base}
}

type exponentialBackoff struct {
	base time.Duration
}

func (b exponentialBackoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return exponentialDelay(b.base, attempt, math.MaxInt64)
}

// ExponentialBackoff returns a strategy whose delay doubles each attempt:
// base*2^(attempt-1).
func ExponentialBackoff(base time.Duration) BackoffStrategy {
	return exponentialBackoff{base: base}
}

// defaultJitterFactor is the fraction of base used as the jitter window
// when none is given.
const defaultJitterFactor = 0.2

type jitterBackoff struct {
	base   time.Duration
	max    time.Duration
	factor float64
	rnd    func() float64
}

func (b jitterBackoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}

	// The jitter window is fixed at base*factor. It does not grow with the
	// attempt; only the exponential midpoint does.
	mid := float64(b.base) * math.Pow(2, float64(attempt-1))
	window := float64(b.base) * b.factor
	d := mid + (b.rnd()*2-1)*window

	if d < 0 {
		return 0
	}
	if d > float64(b.max) {
		return b.max
	}
	return time.Duration(d)
}

// ExponentialBackoffWithJitter returns an exponential strategy capped at max
// with a fixed random jitter window of base*0.2 around the midpoint. The
// perturbation avoids synchronized retry storms across callers.
func ExponentialBackoffWithJitter(base, max time.Duration) BackoffStrategy {
	return ExponentialBackoffWithJitterFactor(base, max, defaultJitterFactor)
}

// ExponentialBackoffWithJitterFactor is ExponentialBackoffWithJitter with an
// explicit jitter factor. Delays are clamped to [0, max].
func ExponentialBackoffWithJitterFactor(base, max time.Duration, factor float64) BackoffStrategy {
	if factor < 0 {
		factor = 0
	}
	return jitterBackoff{base: base, max: max, factor: factor, rnd: rand.Float64}
}

// exponentialDelay computes base*2^(attempt-1) in float space to avoid
// overflow, saturating at max.
func exponentialDelay(base time.Duration, attempt int, max time.Duration) time.Duration {
	d := float64(base) * math.Pow(2, float64(attempt-1))
	if d > float64(max) {
		return max
	}
	return time.Duration(d)
}
