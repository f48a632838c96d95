package aviationweather

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// rateLimiter waits a full interval before every call except the first. The
// pause starts when Wait is called, not when the previous call started.
type rateLimiter struct {
	interval time.Duration
	clock    clockwork.Clock

	mu      sync.Mutex
	started bool
}

func newRateLimiter(interval time.Duration, clock clockwork.Clock) *rateLimiter {
	return &rateLimiter{interval: interval, clock: clock}
}

// Wait blocks until the next call is allowed or ctx is done.
func (r *rateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if !r.started {
		r.started = true
		return nil
	}
	if r.interval <= 0 {
		return nil
	}

	timer := r.clock.NewTimer(r.interval)
	defer timer.Stop()
	select {
	case <-timer.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
