package services

import (
	"sort"
	"sync"
)

// HostLockManager serializes concurrent check-ins touching the same
// hypervisors. Locks are always acquired in sorted key order so two batches
// sharing hosts cannot deadlock against each other.
type HostLockManager struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewHostLockManager() *HostLockManager {
	return &HostLockManager{locks: make(map[string]*sync.Mutex)}
}

func (m *HostLockManager) lockFor(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

// LockAll acquires the locks for all keys in sorted order and returns the
// release function. Duplicate keys are collapsed.
func (m *HostLockManager) LockAll(keys []string) func() {
	unique := make(map[string]bool, len(keys))
	for _, k := range keys {
		unique[k] = true
	}
	ordered := make([]string, 0, len(unique))
	for k := range unique {
		ordered = append(ordered, k)
	}
	sort.Strings(ordered)

	held := make([]*sync.Mutex, 0, len(ordered))
	for _, k := range ordered {
		l := m.lockFor(k)
		l.Lock()
		held = append(held, l)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
