package chem_resolver

import (
	"context"
	"sync"
	"time"
)

// rateLimiter is a token bucket refilled by a ticker.  The bucket starts full
// so that the first rps calls do not wait.
type rateLimiter struct {
	tokens   chan struct{}
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
}

func newRateLimiter(rps int) *rateLimiter {
	rl := &rateLimiter{
		tokens:   make(chan struct{}, rps),
		interval: time.Second / time.Duration(rps),
		stop:     make(chan struct{}),
	}
	for i := 0; i < rps; i++ {
		rl.tokens <- struct{}{}
	}
	go rl.refill()
	return rl
}

func (rl *rateLimiter) refill() {
	ticker := time.NewTicker(rl.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			select {
			case rl.tokens <- struct{}{}:
			default:
			}
		case <-rl.stop:
			return
		}
	}
}

// Acquire blocks until a token is available or ctx is done.
func (rl *rateLimiter) Acquire(ctx context.Context) error {
	select {
	case <-rl.tokens:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (rl *rateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

//Personal.AI order the ending
