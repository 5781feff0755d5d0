package services

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccountLocks_SerialisesWritersPerAccount(t *testing.T) {
	locks := NewAccountLocks()
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(1)
			defer unlock()
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestAccountLocks_IndependentAccounts(t *testing.T) {
	locks := NewAccountLocks()
	unlock := locks.Lock(1)
	defer unlock()

	done := make(chan struct{})
	go func() {
		release := locks.Lock(2)
		release()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on account 2 blocked behind account 1")
	}
}

func TestAccountLocks_RLockManyDeduplicates(t *testing.T) {
	locks := NewAccountLocks()
	release := locks.RLockMany([]uint{3, 1, 3, 2})
	release()

	// every lock must be free again
	for _, id := range []uint{1, 2, 3} {
		unlock := locks.Lock(id)
		unlock()
	}
}
