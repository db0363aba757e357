package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// unlockTimeout bounds the release query; a connection that cannot release is closed instead.
const unlockTimeout = 5 * time.Second

// AdvisoryLocker serializes corpus writes across processes with PostgreSQL session
// advisory locks keyed by hashtext(key). Each held lock pins one pool connection.
type AdvisoryLocker struct {
	db *DB
}

// NewAdvisoryLocker returns a locker backed by db's pool.
func NewAdvisoryLocker(db *DB) *AdvisoryLocker {
	return &AdvisoryLocker{db: db}
}

// Lock blocks until the advisory lock for key is held or ctx is done.
func (l *AdvisoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	conn, err := l.db.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection for lock %q: %w", key, err)
	}
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtext($1))`, key); err != nil {
		// a cancelled wait may leave the lock request behind on the session
		_ = conn.Conn().Close(context.Background())
		conn.Release()
		return nil, fmt.Errorf("failed to take lock %q: %w", key, err)
	}

	var once sync.Once
	return func() { once.Do(func() { l.release(conn, key) }) }, nil
}

func (l *AdvisoryLocker) release(conn *pgxpool.Conn, key string) {
	unlockCtx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
	defer cancel()
	if _, err := conn.Exec(unlockCtx, `SELECT pg_advisory_unlock(hashtext($1))`, key); err != nil {
		// closing the session drops every lock it holds
		_ = conn.Conn().Close(unlockCtx)
	}
	conn.Release()
}
