package backup

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// pushThrottle spaces pushes per identity. Each subject gets its own limiter
// with a burst of one, so one identity's pushes never delay another's.
type pushThrottle struct {
	mu       sync.RWMutex
	interval time.Duration
	limiters map[string]*rate.Limiter
}

func newPushThrottle(interval time.Duration) *pushThrottle {
	return &pushThrottle{
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until subject may push again or ctx is done.
func (t *pushThrottle) Wait(ctx context.Context, subject string) error {
	if t.interval <= 0 {
		return ctx.Err()
	}
	return t.limiter(subject).Wait(ctx)
}

func (t *pushThrottle) limiter(subject string) *rate.Limiter {
	t.mu.RLock()
	l, ok := t.limiters[subject]
	t.mu.RUnlock()
	if ok {
		return l
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double-check after acquiring write lock
	if l, ok := t.limiters[subject]; ok {
		return l
	}
	l = rate.NewLimiter(rate.Every(t.interval), 1)
	t.limiters[subject] = l
	return l
}
