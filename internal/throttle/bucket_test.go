package throttle

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTakeAvailable(t *testing.T) {
	b := NewTokenBucket(0, 100)
	require.NoError(t, b.Take(60))
	assert.Equal(t, int64(40), b.Available())
}

func TestTakeBlocksUntilAdd(t *testing.T) {
	b := NewTokenBucket(0, 10)
	taken := make(chan error, 1)
	go func() { taken <- b.Take(50) }()

	select {
	case <-taken:
		t.Fatal("take returned before enough tokens were added")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, int64(10), b.Available(), "a waiting take must not partially withdraw")

	b.Add(40)
	select {
	case err := <-taken:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("take was not woken by add")
	}
	assert.Equal(t, int64(0), b.Available())
}

func TestTerminateWakesTakers(t *testing.T) {
	b := NewTokenBucket(0, 0)
	taken := make(chan error, 1)
	go func() { taken <- b.Take(1) }()
	time.Sleep(20 * time.Millisecond)
	b.Terminate()
	select {
	case err := <-taken:
		assert.ErrorIs(t, err, ErrTerminated)
	case <-time.After(time.Second):
		t.Fatal("take was not woken by terminate")
	}
	assert.True(t, b.Terminated())
	b.Terminate()
}

func TestTakeAfterTerminateStillDrainsBalance(t *testing.T) {
	b := NewTokenBucket(0, 5)
	b.Terminate()
	require.NoError(t, b.Take(5))
	assert.ErrorIs(t, b.Take(1), ErrTerminated)
}

func TestUnlimitedNeverBlocks(t *testing.T) {
	b := NewUnlimitedBucket()
	for i := 0; i < 1000; i++ {
		require.NoError(t, b.Take(1<<20))
	}
	assert.Equal(t, int64(0), b.Available())
}

func TestCapacityClamps(t *testing.T) {
	b := NewTokenBucket(100, 500)
	assert.Equal(t, int64(100), b.Available())
	b.Set(30)
	assert.Equal(t, int64(30), b.Available())
	b.Add(1000)
	assert.Equal(t, int64(100), b.Available())
	assert.ErrorIs(t, b.Take(101), ErrExceedsCapacity)
	assert.ErrorIs(t, b.Take(-1), ErrNegativeRequest)
}

// Concurrent takers can never withdraw more than was supplied.
func TestConcurrentAccounting(t *testing.T) {
	const (
		takers   = 16
		perTake  = 7
		supplied = 1000
	)
	b := NewTokenBucket(0, 0)
	var withdrawn atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < takers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if err := b.Take(perTake); err != nil {
					return
				}
				withdrawn.Add(perTake)
			}
		}()
	}
	for i := 0; i < supplied/10; i++ {
		b.Add(10)
	}
	time.Sleep(100 * time.Millisecond)
	b.Terminate()
	wg.Wait()

	assert.LessOrEqual(t, withdrawn.Load(), int64(supplied))
	assert.Equal(t, int64(supplied), withdrawn.Load()+b.Available())
	assert.Less(t, b.Available(), int64(perTake))
}

func TestReplenisherAddsUntilTerminated(t *testing.T) {
	b := NewTokenBucket(0, 0)
	r := NewReplenisher(b, 100, 10*time.Millisecond, false)
	done := make(chan struct{})
	go func() {
		r.Run()
		close(done)
	}()
	require.Eventually(t, func() bool { return b.Available() >= 300 }, time.Second, 5*time.Millisecond)
	b.Terminate()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("replenisher did not stop")
	}
	after := b.Available()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, b.Available())
}

func TestReplenisherUnlimitedWaitsForTermination(t *testing.T) {
	b := NewUnlimitedBucket()
	done := make(chan struct{})
	go func() {
		NewReplenisher(b, 0, 0, false).Run()
		close(done)
	}()
	b.Terminate()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("replenisher did not stop")
	}
}

func TestHardReplenisherResets(t *testing.T) {
	b := NewTokenBucket(0, 0)
	r := NewReplenisher(b, 100, 5*time.Millisecond, true)
	go r.Run()
	defer b.Terminate()
	require.Eventually(t, func() bool { return b.Available() == 100 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int64(100), b.Available(), "hard limit must not accumulate")
}
