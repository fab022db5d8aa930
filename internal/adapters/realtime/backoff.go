package realtime

import (
	"context"
	"math/rand/v2"
	"time"
)

// Reconnect delay bounds used when Config leaves them zero.
const (
	DefaultBackoffInitial = 500 * time.Millisecond
	DefaultBackoffMax     = 10 * time.Second
)

// retryPolicy doubles the reconnect delay per failed attempt up to max.
type retryPolicy struct {
	initial, max time.Duration
	attempt      int
}

// delay is the wait before the next attempt, without jitter.
func (p *retryPolicy) delay() time.Duration {
	d := p.initial
	for i := 0; i < p.attempt && d < p.max; i++ {
		d *= 2
	}
	return min(d, p.max)
}

// sleep waits out the current delay with 20% jitter and advances the policy.
// It reports false when ctx ends first.
func (p *retryPolicy) sleep(ctx context.Context) bool {
	d := p.delay()
	d += time.Duration(float64(d) * 0.2 * (rand.Float64()*2 - 1))
	p.attempt++

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// connected resets the policy after a successful dial.
func (p *retryPolicy) connected() { p.attempt = 0 }
