package application_test

import (
	"errors"
	"testing"
	"time"

	"invoicehub-sync/internal/application"
	"invoicehub-sync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrySchedule(t *testing.T) {
	transient := domain.TransientError("timeout", "gateway timed out", nil)

	t.Run("no retry before any failure", func(t *testing.T) {
		schedule := application.NewRetrySchedule()
		_, retry := schedule.Next()
		assert.False(t, retry)
	})

	t.Run("delays follow the fixed table and cap at the last entry", func(t *testing.T) {
		schedule := application.NewRetrySchedule()
		expected := []time.Duration{
			1 * time.Second,
			60 * time.Second,
			300 * time.Second,
			900 * time.Second,
			3600 * time.Second,
			14400 * time.Second,
			14400 * time.Second,
			14400 * time.Second,
		}

		for i, want := range expected {
			schedule.Observe(transient)
			delay, retry := schedule.Next()
			require.True(t, retry, "attempt %d", i+1)
			assert.Equal(t, want, delay, "attempt %d", i+1)
		}
	})

	t.Run("success resets to the start of the table", func(t *testing.T) {
		schedule := application.NewRetrySchedule()
		schedule.Observe(transient)
		schedule.Observe(transient)
		schedule.Observe(transient)

		schedule.Observe(nil)
		_, retry := schedule.Next()
		assert.False(t, retry)

		schedule.Observe(transient)
		delay, retry := schedule.Next()
		require.True(t, retry)
		assert.Equal(t, 1*time.Second, delay)
	})

	t.Run("auth failure short-circuits until reset", func(t *testing.T) {
		schedule := application.NewRetrySchedule()
		schedule.Observe(transient)
		schedule.Observe(domain.AuthError("bad_token", "token revoked", nil))

		_, retry := schedule.Next()
		assert.False(t, retry)

		// Further transient failures do not resurrect the schedule.
		schedule.Observe(transient)
		_, retry = schedule.Next()
		assert.False(t, retry)

		schedule.Reset()
		schedule.Observe(transient)
		delay, retry := schedule.Next()
		require.True(t, retry)
		assert.Equal(t, 1*time.Second, delay)
	})

	t.Run("unclassified errors count as transient", func(t *testing.T) {
		schedule := application.NewRetrySchedule()
		schedule.Observe(errors.New("boom"))
		delay, retry := schedule.Next()
		require.True(t, retry)
		assert.Equal(t, 1*time.Second, delay)
	})
}
