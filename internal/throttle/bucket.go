package throttle

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrTerminated      = errors.New("token bucket terminated")
	ErrExceedsCapacity = errors.New("request exceeds bucket capacity")
	ErrNegativeRequest = errors.New("negative token request")
)

// TokenBucket is a byte-token counter shared by every fetcher of an attempt.
// Takers block on a condition variable and are woken by Add, Set and
// Terminate.
type TokenBucket struct {
	mu         sync.Mutex
	cond       *sync.Cond
	tokens     int64
	capacity   int64 // 0 means no upper bound
	unlimited  bool
	terminated bool
	done       chan struct{}
}

// NewTokenBucket returns a bucket holding initial tokens. A positive
// capacity caps the counter; zero leaves it unbounded.
func NewTokenBucket(capacity, initial int64) *TokenBucket {
	b := &TokenBucket{
		capacity: capacity,
		done:     make(chan struct{}),
	}
	b.cond = sync.NewCond(&b.mu)
	b.tokens = b.clamp(initial)
	return b
}

// NewUnlimitedBucket returns a bucket whose Take never blocks.
func NewUnlimitedBucket() *TokenBucket {
	b := NewTokenBucket(0, 0)
	b.unlimited = true
	return b
}

func (b *TokenBucket) clamp(n int64) int64 {
	if n < 0 {
		return 0
	}
	if b.capacity > 0 && n > b.capacity {
		return b.capacity
	}
	return n
}

// Take blocks until n tokens are available and withdraws all of them at
// once. It fails without withdrawing anything if the bucket is terminated
// while the caller is still waiting.
func (b *TokenBucket) Take(n int64) error {
	if n < 0 {
		return ErrNegativeRequest
	}
	if b.unlimited || n == 0 {
		return nil
	}
	if b.capacity > 0 && n > b.capacity {
		return fmt.Errorf("%w: %d > %d", ErrExceedsCapacity, n, b.capacity)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.tokens < n {
		if b.terminated {
			return ErrTerminated
		}
		b.cond.Wait()
	}
	b.tokens -= n
	return nil
}

// Add tops the bucket up by n tokens, up to capacity.
func (b *TokenBucket) Add(n int64) {
	if b.unlimited || n <= 0 {
		return
	}
	b.mu.Lock()
	b.tokens = b.clamp(b.tokens + n)
	b.mu.Unlock()
	b.cond.Broadcast()
}

// Set resets the counter to n, clamped to capacity.
func (b *TokenBucket) Set(n int64) {
	if b.unlimited {
		return
	}
	b.mu.Lock()
	b.tokens = b.clamp(n)
	b.mu.Unlock()
	b.cond.Broadcast()
}

func (b *TokenBucket) Available() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}

func (b *TokenBucket) Unlimited() bool {
	return b.unlimited
}

func (b *TokenBucket) Terminate() {
	b.mu.Lock()
	if !b.terminated {
		b.terminated = true
		close(b.done)
	}
	b.mu.Unlock()
	b.cond.Broadcast()
}

func (b *TokenBucket) Terminated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.terminated
}

// Done is closed once the bucket is terminated.
func (b *TokenBucket) Done() <-chan struct{} {
	return b.done
}
