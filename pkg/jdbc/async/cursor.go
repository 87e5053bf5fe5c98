package async

import (
	"context"

	"github.com/leapstack-labs/jbridge/pkg/jdbc"
)

// Cursor is a concurrency-safe wrapper around jdbc.Cursor, serialized
// with its parent connection.
type Cursor struct {
	cur  *jdbc.Cursor
	conn *Connection
}

// Execute runs one statement with optional positional parameters.
func (c *Cursor) Execute(ctx context.Context, sql string, args ...any) error {
	_, err := dispatch(ctx, c.conn.pool, c.conn.lock, "execute", func() (struct{}, error) {
		return struct{}{}, c.cur.Execute(context.WithoutCancel(ctx), sql, args...)
	})
	return err
}

// ExecuteMany runs one statement once per parameter row.
func (c *Cursor) ExecuteMany(ctx context.Context, sql string, rows [][]any) error {
	_, err := dispatch(ctx, c.conn.pool, c.conn.lock, "executemany", func() (struct{}, error) {
		return struct{}{}, c.cur.ExecuteMany(context.WithoutCancel(ctx), sql, rows)
	})
	return err
}

// FetchOne returns the next row, or nil at exhaustion.
func (c *Cursor) FetchOne(ctx context.Context) ([]any, error) {
	return dispatch(ctx, c.conn.pool, c.conn.lock, "fetchone", func() ([]any, error) {
		return c.cur.FetchOne(context.WithoutCancel(ctx))
	})
}

// FetchMany returns up to n rows.
func (c *Cursor) FetchMany(ctx context.Context, n int) ([][]any, error) {
	return dispatch(ctx, c.conn.pool, c.conn.lock, "fetchmany", func() ([][]any, error) {
		return c.cur.FetchMany(context.WithoutCancel(ctx), n)
	})
}

// FetchAll drains the remaining rows.
func (c *Cursor) FetchAll(ctx context.Context) ([][]any, error) {
	return dispatch(ctx, c.conn.pool, c.conn.lock, "fetchall", func() ([][]any, error) {
		return c.cur.FetchAll(context.WithoutCancel(ctx))
	})
}

// Description returns the current result's column descriptors.
func (c *Cursor) Description() []jdbc.ColumnDescription {
	return c.cur.Description()
}

// RowCount returns the update count of the last execution.
func (c *Cursor) RowCount() int64 {
	return c.cur.RowCount()
}

// Close releases the cursor. Idempotent.
func (c *Cursor) Close(ctx context.Context) error {
	_, err := dispatch(ctx, c.conn.pool, c.conn.lock, "cursor-close", func() (struct{}, error) {
		return struct{}{}, c.cur.Close(context.WithoutCancel(ctx))
	})
	return err
}
