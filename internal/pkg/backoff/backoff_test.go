package backoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyFixedThenExponential(t *testing.T) {
	p := NewPolicy()
	p.exp.RandomizationFactor = 0

	for attempt := 1; attempt <= p.FixedAttempts; attempt++ {
		delay, exceeded := p.Next(attempt)
		assert.Equal(t, p.FixedDelay, delay)
		assert.False(t, exceeded)
	}

	delay, exceeded := p.Next(p.FixedAttempts + 1)
	assert.True(t, exceeded)
	assert.Equal(t, 10*time.Second, delay)

	// Exponential waits grow across reconnect cycles until the cap.
	delay2, _ := p.Next(p.FixedAttempts + 1)
	assert.Greater(t, delay2, delay)
}

func TestPolicyResetRestartsSchedule(t *testing.T) {
	p := NewPolicy()
	p.exp.RandomizationFactor = 0

	first, _ := p.Next(p.FixedAttempts + 1)
	_, _ = p.Next(p.FixedAttempts + 1)
	p.Reset()
	again, _ := p.Next(p.FixedAttempts + 1)
	assert.Equal(t, first, again)
}

func TestSleepCompletes(t *testing.T) {
	start := time.Now()
	require.NoError(t, Sleep(context.Background(), 10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestSleepInterruptedByCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
