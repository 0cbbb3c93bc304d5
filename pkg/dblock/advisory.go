package dblock

import (
	"context"
	"database/sql"
	"database/sql/driver"
	stdErrors "errors"
	"fmt"
	"hash/fnv"
	"time"

	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
	"github.com/okanvural/pickflow-backend/pkg/logger"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	releaseTimeout      = 5 * time.Second
	borrowAttempts      = 2
)

// AdvisoryManager backs locks with Postgres session advisory locks. Each
// acquisition pins one pooled connection for the lifetime of the handle; the
// server releases the lock implicitly if that session dies.
type AdvisoryManager struct {
	db            *sql.DB
	borrowTimeout time.Duration
	pollInterval  time.Duration
	logg          *logger.Logger
}

func NewAdvisoryManager(sqlDB *sql.DB, borrowTimeout time.Duration, logg *logger.Logger) *AdvisoryManager {
	return &AdvisoryManager{
		db:            sqlDB,
		borrowTimeout: borrowTimeout,
		pollInterval:  defaultPollInterval,
		logg:          logg,
	}
}

func (m *AdvisoryManager) Acquire(ctx context.Context, key string, timeout time.Duration) (*Handle, error) {
	start := time.Now()

	conn, err := m.borrow(ctx)
	if err != nil {
		return nil, err
	}

	keyHash := hashKey(key)
	deadline := time.Now().Add(timeout)
	for {
		var locked bool
		if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", keyHash).Scan(&locked); err != nil {
			_ = conn.Close()
			return nil, pkgerrors.Wrap(pkgerrors.CodeConnectionLost, err, "acquiring advisory lock")
		}
		if locked {
			break
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			_ = conn.Close()
			return nil, lockTimeoutError(key, timeout)
		}
		wait := m.pollInterval
		if remaining < wait {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			_ = conn.Close()
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "lock wait canceled")
		case <-time.After(wait):
		}
	}

	return &Handle{
		key:      key,
		waitTime: time.Since(start),
		release: func(releaseCtx context.Context) error {
			return m.releaseLock(releaseCtx, conn, keyHash, key)
		},
	}, nil
}

// borrow takes a pooled connection, validating it with a ping before use.
// A dead connection is closed so the pool replaces it, and the borrow is
// attempted once more.
func (m *AdvisoryManager) borrow(ctx context.Context) (*sql.Conn, error) {
	borrowCtx, cancel := context.WithTimeout(ctx, m.borrowTimeout)
	defer cancel()

	for attempt := 0; attempt < borrowAttempts; attempt++ {
		conn, err := m.db.Conn(borrowCtx)
		if err != nil {
			if stdErrors.Is(borrowCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodePoolExhausted, err, "borrowing lock connection")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "borrowing lock connection")
		}
		if err := conn.PingContext(borrowCtx); err != nil {
			_ = conn.Close()
			continue
		}
		return conn, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeConnectionLost, "no live connection after validation retries")
}

// releaseLock unlocks on the same session that acquired. The release context
// is detached from request cancellation so a canceled request still unlocks.
func (m *AdvisoryManager) releaseLock(ctx context.Context, conn *sql.Conn, keyHash int64, key string) error {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	var unlocked bool
	if err := conn.QueryRowContext(releaseCtx, "SELECT pg_advisory_unlock($1)", keyHash).Scan(&unlocked); err != nil {
		// Session state is unknown; mark the connection bad so the pool
		// discards it and the server drops the lock with the session.
		_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		_ = conn.Close()
		if m.logg != nil {
			m.logg.Warn(m.logg.WithField(ctx, "lock_key", key), "advisory unlock failed, connection discarded")
		}
		return pkgerrors.Wrap(pkgerrors.CodeConnectionLost, err, "releasing advisory lock")
	}

	closeErr := conn.Close()
	if !unlocked {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("lock %q was not held at release", key))
	}
	return closeErr
}

// hashKey folds the string key into the bigint advisory lock space.
func hashKey(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}
