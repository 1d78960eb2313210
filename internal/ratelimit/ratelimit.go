// Package ratelimit throttles outbound chat-platform calls with a
// per-chat token bucket, replacing the teacher's sliding-window
// WebhookRateLimiter with golang.org/x/time/rate per the domain stack.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// maxTrackedChats bounds memory growth the same way the teacher's
// WebhookRateLimiter bounds its tracked-key map, since a long-running
// bridge sees a small, bounded set of chat ids in practice (one
// operator, one allowlisted chat, occasionally a handful during
// migration) but should never grow unbounded on bad input.
const maxTrackedChats = 256

// Limiter hands out a golang.org/x/time/rate.Limiter per chat id,
// creating it lazily on first use.
type Limiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[string]*rate.Limiter
}

// New builds a Limiter allowing ratePerSecond sustained calls per chat
// with a burst of burst.
func New(ratePerSecond float64, burst int) *Limiter {
	return &Limiter{
		limit:   rate.Limit(ratePerSecond),
		burst:   burst,
		buckets: make(map[string]*rate.Limiter),
	}
}

func (l *Limiter) bucket(chatID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[chatID]; ok {
		return b
	}
	if len(l.buckets) >= maxTrackedChats {
		for k := range l.buckets {
			delete(l.buckets, k)
			break
		}
	}
	b := rate.NewLimiter(l.limit, l.burst)
	l.buckets[chatID] = b
	return b
}

// Wait blocks until chatID's bucket has a token, or ctx is cancelled.
// Callers wait rather than drop, per the domain stack's fairness rule.
func (l *Limiter) Wait(ctx context.Context, chatID string) error {
	return l.bucket(chatID).Wait(ctx)
}
