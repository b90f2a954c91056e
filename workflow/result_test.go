package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	assert.Equal(t, "SUCCESS", StatusSuccess.String())
	assert.Equal(t, "FAILED", StatusFailed.String())
	assert.Equal(t, "SKIPPED", StatusSkipped.String())

	assert.True(t, StatusSuccess.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusSkipped.IsTerminal())
	assert.False(t, Status("PENDING").IsTerminal())
}

func TestExecutionFactory(t *testing.T) {
	t.Run("success round trip", func(t *testing.T) {
		exec := newExecution(time.Now())
		res := exec.Success()

		require.NotNil(t, res)
		assert.Equal(t, StatusSuccess, res.Status())
		assert.True(t, res.IsSuccess())
		assert.False(t, res.IsFailure())
		assert.False(t, res.IsSkipped())
		assert.NoError(t, res.Err())
		assert.Equal(t, exec.StartedAt(), res.StartedAt())
		assert.False(t, res.CompletedAt().Before(res.StartedAt()))
		assert.GreaterOrEqual(t, res.Duration(), time.Duration(0))
	})

	t.Run("failure carries cause", func(t *testing.T) {
		cause := errors.New("it broke")
		res := newExecution(time.Now()).Failure(cause)

		assert.Equal(t, StatusFailed, res.Status())
		assert.True(t, res.IsFailure())
		assert.ErrorIs(t, res.Err(), cause)
	})

	t.Run("failure without cause is valid", func(t *testing.T) {
		res := newExecution(time.Now()).Failure(nil)

		assert.True(t, res.IsFailure())
		assert.NoError(t, res.Err())
	})

	t.Run("skipped is neither success nor failure", func(t *testing.T) {
		res := newExecution(time.Now()).Skipped()

		assert.Equal(t, StatusSkipped, res.Status())
		assert.True(t, res.IsSkipped())
		assert.False(t, res.IsSuccess())
		assert.False(t, res.IsFailure())
		assert.NoError(t, res.Err())
	})

	t.Run("complete stamps explicit status", func(t *testing.T) {
		cause := errors.New("custom")
		res := newExecution(time.Now()).Complete(StatusFailed, cause)

		assert.Equal(t, StatusFailed, res.Status())
		assert.ErrorIs(t, res.Err(), cause)
	})

	t.Run("duration grows with elapsed time", func(t *testing.T) {
		exec := newExecution(time.Now())
		time.Sleep(5 * time.Millisecond)
		res := exec.Success()

		assert.GreaterOrEqual(t, res.Duration(), 5*time.Millisecond)
	})
}
