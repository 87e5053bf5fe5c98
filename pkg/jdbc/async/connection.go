package async

import (
	"context"
	"sync"

	"github.com/leapstack-labs/jbridge/pkg/jdbc"
)

// handleLock serializes native calls on one connection and everything
// derived from it.
type handleLock struct {
	mu sync.Mutex
}

// Connection is a concurrency-safe wrapper around jdbc.Connection. All
// calls on the connection and its cursors serialize through one mutex,
// held by the worker for the duration of the native call.
type Connection struct {
	conn *jdbc.Connection
	pool *WorkerPool
	lock *handleLock
}

// Connect opens a connection through the pool. When ctx finishes before
// the native open completes, the open is abandoned, not cancelled: it may
// still succeed later on its worker, which then logs and discards the
// connection without closing it.
func Connect(ctx context.Context, pool *WorkerPool, opts jdbc.Options) (*Connection, error) {
	lock := &handleLock{}
	conn, err := dispatch(ctx, pool, lock, "connect", func() (*jdbc.Connection, error) {
		return jdbc.Connect(context.WithoutCancel(ctx), opts)
	})
	if err != nil {
		return nil, err
	}
	return &Connection{conn: conn, pool: pool, lock: lock}, nil
}

// Wrap adapts an existing connection (e.g. one borrowed from a pool) for
// concurrent use.
func Wrap(conn *jdbc.Connection, pool *WorkerPool) *Connection {
	return &Connection{conn: conn, pool: pool, lock: &handleLock{}}
}

// Cursor creates a cursor sharing this connection's serialization.
func (c *Connection) Cursor(ctx context.Context) (*Cursor, error) {
	cur, err := dispatch(ctx, c.pool, c.lock, "cursor", func() (*jdbc.Cursor, error) {
		return c.conn.Cursor()
	})
	if err != nil {
		return nil, err
	}
	return &Cursor{cur: cur, conn: c}, nil
}

// Commit commits the current transaction.
func (c *Connection) Commit(ctx context.Context) error {
	_, err := dispatch(ctx, c.pool, c.lock, "commit", func() (struct{}, error) {
		return struct{}{}, c.conn.Commit(context.WithoutCancel(ctx))
	})
	return err
}

// Rollback rolls back the current transaction.
func (c *Connection) Rollback(ctx context.Context) error {
	_, err := dispatch(ctx, c.pool, c.lock, "rollback", func() (struct{}, error) {
		return struct{}{}, c.conn.Rollback(context.WithoutCancel(ctx))
	})
	return err
}

// SetAutoCommit toggles auto-commit mode.
func (c *Connection) SetAutoCommit(ctx context.Context, on bool) error {
	_, err := dispatch(ctx, c.pool, c.lock, "set-autocommit", func() (struct{}, error) {
		return struct{}{}, c.conn.SetAutoCommit(context.WithoutCancel(ctx), on)
	})
	return err
}

// AutoCommit reports auto-commit mode.
func (c *Connection) AutoCommit(ctx context.Context) (bool, error) {
	return dispatch(ctx, c.pool, c.lock, "autocommit", func() (bool, error) {
		return c.conn.AutoCommit(context.WithoutCancel(ctx))
	})
}

// Close closes the underlying connection. Idempotent.
func (c *Connection) Close(ctx context.Context) error {
	_, err := dispatch(ctx, c.pool, c.lock, "close", func() (struct{}, error) {
		return struct{}{}, c.conn.Close(context.WithoutCancel(ctx))
	})
	return err
}

// Unwrap returns the underlying synchronous connection. Callers must not
// use it concurrently with the wrapper.
func (c *Connection) Unwrap() *jdbc.Connection {
	return c.conn
}
