package policy

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestNoBackoff_AlwaysZero(t *testing.T) {
	b := NoBackoff()

	assert.Equal(t, time.Duration(0), b.Delay(1))
	assert.Equal(t, time.Duration(0), b.Delay(10))
	assert.Equal(t, time.Duration(0), b.Delay(0))
}

func TestConstantBackoff(t *testing.T) {
	b := ConstantBackoff(250 * time.Millisecond)

	assert.Equal(t, 250*time.Millisecond, b.Delay(1))
	assert.Equal(t, 250*time.Millisecond, b.Delay(7))
	assert.Equal(t, time.Duration(0), b.Delay(0))
}

func TestLinearBackoff(t *testing.T) {
	b := LinearBackoff(100 * time.Millisecond)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{5, 500 * time.Millisecond},
		{0, 0},
		{-3, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, b.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoff(t *testing.T) {
	b := ExponentialBackoff(100 * time.Millisecond)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{0, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, b.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffWithJitter_FixedWindow(t *testing.T) {
	b := ExponentialBackoffWithJitter(100*time.Millisecond, 10*time.Second)

	// The window stays base*0.2 wide around the growing midpoint.
	for i := 0; i < 200; i++ {
		d1 := b.Delay(1)
		assert.GreaterOrEqual(t, d1, 80*time.Millisecond)
		assert.LessOrEqual(t, d1, 120*time.Millisecond)

		d2 := b.Delay(2)
		assert.GreaterOrEqual(t, d2, 180*time.Millisecond)
		assert.LessOrEqual(t, d2, 220*time.Millisecond)

		assert.LessOrEqual(t, b.Delay(20), 10*time.Second)
	}
}

func TestExponentialBackoffWithJitter_DeterministicBounds(t *testing.T) {
	lo := jitterBackoff{base: 100 * time.Millisecond, max: 10 * time.Second, factor: 0.2, rnd: func() float64 { return 0 }}
	hi := jitterBackoff{base: 100 * time.Millisecond, max: 10 * time.Second, factor: 0.2, rnd: func() float64 { return 1 }}

	assert.Equal(t, 80*time.Millisecond, lo.Delay(1))
	assert.Equal(t, 120*time.Millisecond, hi.Delay(1))
	assert.Equal(t, 180*time.Millisecond, lo.Delay(2))
	assert.Equal(t, 220*time.Millisecond, hi.Delay(2))

	// Far past the cap both extremes clamp to max.
	assert.Equal(t, 10*time.Second, lo.Delay(20))
	assert.Equal(t, 10*time.Second, hi.Delay(20))
}

func TestExponentialBackoffWithJitter_ClampsToZero(t *testing.T) {
	// A window wider than the midpoint would go negative; it must clamp to 0.
	b := jitterBackoff{base: 10 * time.Millisecond, max: time.Second, factor: 5, rnd: func() float64 { return 0 }}

	assert.Equal(t, time.Duration(0), b.Delay(1))
}

func TestProperty_JitterDelayAlwaysWithinClamp(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	b := ExponentialBackoffWithJitter(100*time.Millisecond, 10*time.Second)

	properties.Property("delay stays within [0, max] for any attempt", prop.ForAll(
		func(attempt int) bool {
			d := b.Delay(attempt)
			return d >= 0 && d <= 10*time.Second
		},
		gen.IntRange(1, 64),
	))

	properties.Property("delay stays within the fixed jitter window below the cap", prop.ForAll(
		func(attempt int) bool {
			d := b.Delay(attempt)
			mid := 100 * time.Millisecond * time.Duration(1<<(attempt-1))
			return d >= mid-20*time.Millisecond && d <= mid+20*time.Millisecond
		},
		gen.IntRange(1, 6),
	))

	properties.TestingRun(t)
}
