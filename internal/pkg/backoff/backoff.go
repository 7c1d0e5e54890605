// Package backoff maps reconnect attempt counts to delays: a short fixed
// delay for the first few attempts, then a capped exponential wait, after
// which the caller resets its attempt counter and tries again indefinitely.
package backoff

import (
	"context"
	"time"

	expbackoff "github.com/cenkalti/backoff/v5"
)

// Policy decides how long to wait before the next connection attempt.
// It is not safe for concurrent use; each worker owns its own Policy.
type Policy struct {
	// FixedAttempts is the number of attempts that get FixedDelay before
	// the exponential schedule kicks in.
	FixedAttempts int
	FixedDelay    time.Duration

	exp *expbackoff.ExponentialBackOff
}

// NewPolicy builds the default reconnect policy: 5 attempts at 5s, then
// exponential waits starting at 10s and capped at 5 minutes.
func NewPolicy() *Policy {
	exp := expbackoff.NewExponentialBackOff()
	exp.InitialInterval = 10 * time.Second
	exp.MaxInterval = 5 * time.Minute
	return &Policy{
		FixedAttempts: 5,
		FixedDelay:    5 * time.Second,
		exp:           exp,
	}
}

// Next returns the delay before the given attempt (1-based). Attempts past
// FixedAttempts draw from the exponential schedule; the caller is expected
// to reset its counter after such a wait. Exceeded reports that case.
func (p *Policy) Next(attempt int) (delay time.Duration, exceeded bool) {
	if attempt <= p.FixedAttempts {
		return p.FixedDelay, false
	}
	return p.exp.NextBackOff(), true
}

// Reset clears the exponential schedule after a successful connection.
func (p *Policy) Reset() {
	p.exp.Reset()
}

// Sleep waits for d or until ctx is cancelled, whichever comes first, so a
// shutdown can interrupt a pending retry promptly.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
