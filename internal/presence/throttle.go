package presence

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle bounds the rate of cursor and status updates sent for one
// connection. Flush conditions are explicit: an update arriving while the
// rate limiter has a token is delivered immediately; otherwise it is parked
// and the newest parked update is delivered once on a trailing timer when
// the limiter window reopens. Intermediate updates inside a window are
// dropped, last write wins.
type Throttle struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	flush   func(Record)
	pending *Record
	timer   *time.Timer
	stopped bool
}

// NewThrottle creates a throttle delivering at most one update per interval.
func NewThrottle(interval time.Duration, flush func(Record)) *Throttle {
	return &Throttle{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		flush:   flush,
	}
}

// Offer submits an update for delivery.
func (t *Throttle) Offer(rec Record) {
	t.mu.Lock()

	if t.stopped {
		t.mu.Unlock()

		return
	}

	if t.pending == nil && t.limiter.Allow() {
		t.mu.Unlock()
		t.flush(rec)

		return
	}

	t.pending = &rec

	if t.timer == nil {
		delay := t.limiter.Reserve().Delay()
		t.timer = time.AfterFunc(delay, t.drain)
	}

	t.mu.Unlock()
}

// drain delivers the parked update, if any.
func (t *Throttle) drain() {
	t.mu.Lock()
	rec := t.pending
	t.pending = nil
	t.timer = nil
	stopped := t.stopped
	t.mu.Unlock()

	if rec != nil && !stopped {
		t.flush(*rec)
	}
}

// Stop discards any parked update and prevents further deliveries.
func (t *Throttle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	t.pending = nil

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
