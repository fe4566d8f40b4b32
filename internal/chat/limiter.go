package chat

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// ReplyLimiter is a per-chat token bucket bounding how often the bot answers
// one chat. Each chat gets burst replies per window, refilled continuously.
type ReplyLimiter struct {
	mu      sync.Mutex
	buckets map[int64]*bucket
	burst   int
	window  time.Duration
	now     func() time.Time
}

func NewReplyLimiter(burst int, window time.Duration) *ReplyLimiter {
	return &ReplyLimiter{
		buckets: make(map[int64]*bucket),
		burst:   burst,
		window:  window,
		now:     time.Now,
	}
}

// Allow consumes one token for chatID, reporting false when the chat has used
// its budget.
func (l *ReplyLimiter) Allow(chatID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[chatID]
	if !ok {
		l.buckets[chatID] = &bucket{tokens: float64(l.burst - 1), lastCheck: now}
		return true
	}

	rate := float64(l.burst) / l.window.Seconds()
	b.tokens += now.Sub(b.lastCheck).Seconds() * rate
	b.lastCheck = now
	if b.tokens > float64(l.burst) {
		b.tokens = float64(l.burst)
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Run drops buckets idle for two windows until ctx is cancelled.
func (l *ReplyLimiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.prune()
		}
	}
}

func (l *ReplyLimiter) prune() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-2 * l.window)
	for id, b := range l.buckets {
		if b.lastCheck.Before(cutoff) {
			delete(l.buckets, id)
		}
	}
}
