// Package dblock provides named, timed, mutually exclusive locks for
// serializing scan and completion work across stations. Production runs on
// Postgres advisory locks; sqlite-backed runs use the in-process manager.
package dblock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
)

// Manager acquires a named exclusive lock, blocking up to timeout. A timeout
// returns a typed lock-timeout error and is never retried here; the caller
// decides whether to retry.
type Manager interface {
	Acquire(ctx context.Context, key string, timeout time.Duration) (*Handle, error)
}

// Handle represents one held lock. Release is idempotent so it can sit in a
// defer alongside an explicit release on the happy path.
type Handle struct {
	key      string
	waitTime time.Duration
	release  func(ctx context.Context) error
	once     sync.Once
}

// Key returns the lock key the handle was acquired for.
func (h *Handle) Key() string {
	return h.key
}

// WaitTime reports how long acquisition blocked, for the audit trail.
func (h *Handle) WaitTime() time.Duration {
	return h.waitTime
}

// Release frees the lock. Only the first call does work.
func (h *Handle) Release(ctx context.Context) error {
	var err error
	h.once.Do(func() {
		err = h.release(ctx)
	})
	return err
}

// ScanKey names the per-line lock. Scan keys and completion keys live in
// disjoint key spaces and never contend with each other.
func ScanKey(orderID uuid.UUID, itemCode string) string {
	return "SCAN:" + orderID.String() + ":" + itemCode
}

// CompletionKey names the order-level completion lock.
func CompletionKey(orderID uuid.UUID) string {
	return "COMPLETE:" + orderID.String()
}

// BackorderKey names the lock serializing out-of-band backorder scans.
func BackorderKey(backorderID uuid.UUID) string {
	return "BACKORDER:" + backorderID.String()
}

func lockTimeoutError(key string, timeout time.Duration) error {
	return pkgerrors.New(pkgerrors.CodeLockTimeout, fmt.Sprintf("lock not acquired within %s", timeout)).
		WithDetails(map[string]any{"key": key, "timeout_ms": timeout.Milliseconds()})
}
