package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfMillis_AcceptsAnyValue(t *testing.T) {
	tests := []struct {
		name string
		ms   int64
	}{
		{"positive", 1500},
		{"zero disables", 0},
		{"negative is a valid instant budget", -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := OfMillis(tt.ms)
			assert.Equal(t, tt.ms, p.Millis())
			assert.Equal(t, time.Duration(tt.ms)*time.Millisecond, p.Duration())
		})
	}
}

func TestOfSeconds_RequiresPositive(t *testing.T) {
	p, err := OfSeconds(2)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), p.Millis())

	_, err = OfSeconds(0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 0")

	_, err = OfSeconds(-3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got -3")
}

func TestOfMinutes_RequiresPositive(t *testing.T) {
	p, err := OfMinutes(1)
	require.NoError(t, err)
	assert.Equal(t, int64(60_000), p.Millis())
	assert.Equal(t, time.Minute, p.Duration())

	_, err = OfMinutes(0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 0")
}

func TestNoTimeout_IsZero(t *testing.T) {
	p := NoTimeout()

	assert.Equal(t, int64(0), p.Millis())
	assert.Equal(t, time.Duration(0), p.Duration())
	assert.Equal(t, "0ms", p.String())
}
