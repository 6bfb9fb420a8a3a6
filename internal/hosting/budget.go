package hosting

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateBudget paces listing requests against the rate limit the hosting service
// reports. GitHub sends X-RateLimit-Remaining / X-RateLimit-Reset (epoch
// seconds); reverse proxies in front of Gitea commonly send the IETF
// RateLimit-Remaining / RateLimit-Reset (delta seconds) pair or Retry-After.
// Hosts that send none of these never block: the request countdown only
// starts once a response has carried a remaining count or reset time.
type RateBudget struct {
	mu        sync.Mutex
	limited   bool
	remaining int
	reset     time.Time
	cooldown  time.Time
	probed    bool
	now       func() time.Time
	notifyCh  chan struct{}
}

func NewRateBudget() *RateBudget {
	return &RateBudget{
		remaining: 5000, // starting allowance once the host reports a limit
		reset:     time.Now().Add(time.Hour),
		now:       time.Now,
		notifyCh:  make(chan struct{}),
	}
}

func (b *RateBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

// Wait blocks until one request may be sent or ctx is done.
func (b *RateBudget) Wait(ctx context.Context) error {
	if ctx == nil {
		return errors.New("rate budget: nil context")
	}
	if b == nil {
		return nil
	}

	for {
		b.mu.Lock()
		now := b.now()
		notify := b.notifyCh

		var until time.Time
		switch {
		case now.Before(b.cooldown):
			until = b.cooldown
		case !b.limited:
			b.mu.Unlock()
			return nil
		case b.remaining > 0:
			b.remaining--
			b.mu.Unlock()
			return nil
		case !now.Before(b.reset):
			// Reset passed but no fresh numbers yet: let exactly one probe through,
			// then wait for Observe to report the new window.
			if !b.probed {
				b.probed = true
				b.mu.Unlock()
				return nil
			}
		default:
			until = b.reset
		}
		b.mu.Unlock()

		if err := waitFor(ctx, notify, until.Sub(now), !until.IsZero()); err != nil {
			return err
		}
	}
}

// waitFor sleeps until d elapses (when timed), notify is closed, or ctx is done.
func waitFor(ctx context.Context, notify <-chan struct{}, d time.Duration, timed bool) error {
	if !timed {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-notify:
			return nil
		}
	}
	if d < 0 {
		d = 0
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-notify:
		return nil
	case <-timer.C:
		return nil
	}
}

// Observe updates the budget from response headers and wakes waiters when
// anything changed.
func (b *RateBudget) Observe(resp *http.Response) {
	if b == nil || resp == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	changed := false

	if seconds, ok := positiveInt(resp.Header.Get("Retry-After")); ok {
		if until := now.Add(time.Duration(seconds) * time.Second); until.After(b.cooldown) {
			b.cooldown = until
			changed = true
		}
	}

	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		remaining = resp.Header.Get("RateLimit-Remaining")
	}
	if val, err := strconv.Atoi(remaining); err == nil && val >= 0 {
		if !b.limited || val != b.remaining {
			changed = true
		}
		b.limited = true
		b.remaining = val
	}

	var newReset time.Time
	if epoch, ok := positiveInt(resp.Header.Get("X-RateLimit-Reset")); ok {
		newReset = time.Unix(int64(epoch), 0)
	} else if delta, ok := positiveInt(resp.Header.Get("RateLimit-Reset")); ok {
		newReset = now.Add(time.Duration(delta) * time.Second)
	}
	if !newReset.IsZero() {
		if !b.limited || !b.reset.Equal(newReset) {
			changed = true
		}
		b.limited = true
		b.reset = newReset
	}

	if changed {
		b.probed = false
		close(b.notifyCh)
		b.notifyCh = make(chan struct{})
	}
}

func positiveInt(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
