package dblock

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
)

// MemoryManager serializes keys inside a single process. It stands in for
// advisory locks on sqlite-backed runs, where all stations share one process.
type MemoryManager struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	ch   chan struct{}
	refs int
}

func NewMemoryManager() *MemoryManager {
	return &MemoryManager{entries: map[string]*memoryEntry{}}
}

func (m *MemoryManager) Acquire(ctx context.Context, key string, timeout time.Duration) (*Handle, error) {
	start := time.Now()
	entry := m.checkout(key)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case entry.ch <- struct{}{}:
		return &Handle{
			key:      key,
			waitTime: time.Since(start),
			release: func(context.Context) error {
				<-entry.ch
				m.checkin(key)
				return nil
			},
		}, nil
	case <-timer.C:
		m.checkin(key)
		return nil, lockTimeoutError(key, timeout)
	case <-ctx.Done():
		m.checkin(key)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "lock wait canceled")
	}
}

func (m *MemoryManager) checkout(key string) *memoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		entry = &memoryEntry{ch: make(chan struct{}, 1)}
		m.entries[key] = entry
	}
	entry.refs++
	return entry
}

func (m *MemoryManager) checkin(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.entries, key)
	}
}
