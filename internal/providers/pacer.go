package providers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultPhotoDelay is the minimum spacing between item requests.
const DefaultPhotoDelay = 500 * time.Millisecond

// pacerIdleAfter is how long a limiter may go unused before it is dropped.
// It must stay above any photo delay: an idle limiter has its token back,
// so replacing it with a fresh one changes nothing.
const pacerIdleAfter = 10 * time.Minute

type pacedLimiter struct {
	*rate.Limiter
	lastUsed time.Time
}

// Pacer spaces requests per (user, provider). Concurrent import runs for
// the same pair share one limiter. Limiters unused for pacerIdleAfter are
// dropped, so the map only holds pairs with recent imports.
type Pacer struct {
	mu        sync.Mutex
	delay     time.Duration
	limiters  map[string]*pacedLimiter
	lastSweep time.Time
	now       func() time.Time
}

// NewPacer creates a Pacer. A zero delay disables pacing.
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{delay: delay, limiters: make(map[string]*pacedLimiter), now: time.Now}
}

// Wait blocks until the next request for (userID, provider) may proceed or
// ctx is done.
func (p *Pacer) Wait(ctx context.Context, userID uint, provider string) error {
	return p.limiter(userID, provider).Wait(ctx)
}

func (p *Pacer) limiter(userID uint, provider string) *rate.Limiter {
	key := fmt.Sprintf("%d:%s", userID, provider)

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	p.sweep(now)

	if l, ok := p.limiters[key]; ok {
		l.lastUsed = now
		return l.Limiter
	}
	limit := rate.Inf
	if p.delay > 0 {
		limit = rate.Every(p.delay)
	}
	l := &pacedLimiter{Limiter: rate.NewLimiter(limit, 1), lastUsed: now}
	p.limiters[key] = l
	return l.Limiter
}

// sweep drops idle limiters, at most once per pacerIdleAfter. Callers hold mu.
func (p *Pacer) sweep(now time.Time) {
	if now.Sub(p.lastSweep) < pacerIdleAfter {
		return
	}
	p.lastSweep = now
	for key, l := range p.limiters {
		if now.Sub(l.lastUsed) >= pacerIdleAfter {
			delete(p.limiters, key)
		}
	}
}
