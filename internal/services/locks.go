package services

import (
	"sort"
	"sync"
)

// AccountLocks serialises writers per account. Readers of one account share
// its lock; different accounts never contend.
type AccountLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.RWMutex
}

func NewAccountLocks() *AccountLocks {
	return &AccountLocks{locks: make(map[uint]*sync.RWMutex)}
}

func (l *AccountLocks) get(accountID uint) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[accountID]
	if !ok {
		m = &sync.RWMutex{}
		l.locks[accountID] = m
	}
	return m
}

// Lock takes the account's write lock and returns its release func.
func (l *AccountLocks) Lock(accountID uint) func() {
	m := l.get(accountID)
	m.Lock()
	return m.Unlock
}

// RLock takes the account's read lock and returns its release func.
func (l *AccountLocks) RLock(accountID uint) func() {
	m := l.get(accountID)
	m.RLock()
	return m.RUnlock
}

// RLockMany read-locks several accounts in id order.
func (l *AccountLocks) RLockMany(accountIDs []uint) func() {
	ids := append([]uint(nil), accountIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	releases := make([]func(), 0, len(ids))
	var last uint
	for i, id := range ids {
		if i > 0 && id == last {
			continue
		}
		releases = append(releases, l.RLock(id))
		last = id
	}
	return func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
}
