package limiter

import (
	"context"
	"sync"
	"time"
)

// Giới hạn số lượng request trong 1 giây
type RateLimiter struct {
	requestTimes []time.Time
	maxRequests  int
	pollInterval time.Duration
	now          func() time.Time
	mu           sync.Mutex
}

// NewRateLimiter with maxRequests <= 0 returns a limiter that never blocks.
func NewRateLimiter(maxRequests int) *RateLimiter {
	return &RateLimiter{
		requestTimes: make([]time.Time, 0, max(maxRequests, 0)),
		maxRequests:  maxRequests,
		pollInterval: 50 * time.Millisecond,
		now:          time.Now,
	}
}

// Check tra xem có thể thực hiện request mới hay không
func (r *RateLimiter) Allow() bool {
	if r == nil || r.maxRequests <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	oneSecondAgo := now.Add(-1 * time.Second)

	// Xóa các request cũ hơn 1 giây
	validTimes := r.requestTimes[:0]
	for _, t := range r.requestTimes {
		if t.After(oneSecondAgo) {
			validTimes = append(validTimes, t)
		}
	}
	r.requestTimes = validTimes

	// Nếu số lượng request trong 1 giây vừa qua nhỏ hơn giới hạn thì add request mới và cho phép thực hiện
	if len(r.requestTimes) < r.maxRequests {
		r.requestTimes = append(r.requestTimes, now)
		return true
	}

	return false
}

// Wait blocks until Allow succeeds or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for !r.Allow() {
		timer := time.NewTimer(r.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}
