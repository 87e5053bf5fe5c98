package sqldriver

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/leapstack-labs/jbridge/pkg/jdbc"
)

// conn adapts jdbc.Connection to driver.Conn. database/sql serializes use
// of one driver.Conn, so no extra locking is needed here.
type conn struct {
	conn *jdbc.Connection
	inTx bool
}

var (
	_ driver.Conn               = (*conn)(nil)
	_ driver.ConnPrepareContext = (*conn)(nil)
	_ driver.ConnBeginTx        = (*conn)(nil)
	_ driver.ExecerContext      = (*conn)(nil)
	_ driver.QueryerContext     = (*conn)(nil)
	_ driver.Pinger             = (*conn)(nil)
	_ driver.Validator          = (*conn)(nil)
)

func (c *conn) Prepare(sql string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), sql)
}

func (c *conn) PrepareContext(ctx context.Context, sql string) (driver.Stmt, error) {
	cur, err := c.conn.Cursor()
	if err != nil {
		return nil, err
	}
	return &stmt{cur: cur, sql: sql}, nil
}

func (c *conn) Close() error {
	return c.conn.Close(context.Background())
}

func (c *conn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if opts.ReadOnly {
		return nil, errors.New("sqldriver: read-only transactions are not supported")
	}
	if err := c.conn.SetAutoCommit(ctx, false); err != nil {
		return nil, err
	}
	c.inTx = true
	return &tx{conn: c}, nil
}

func (c *conn) ExecContext(ctx context.Context, sql string, args []driver.NamedValue) (driver.Result, error) {
	cur, err := c.conn.Cursor()
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	params, err := namedToArgs(args)
	if err != nil {
		return nil, err
	}
	if err := cur.Execute(ctx, sql, params...); err != nil {
		return nil, err
	}
	return execResult{rows: cur.RowCount()}, nil
}

func (c *conn) QueryContext(ctx context.Context, sql string, args []driver.NamedValue) (driver.Rows, error) {
	cur, err := c.conn.Cursor()
	if err != nil {
		return nil, err
	}
	params, err := namedToArgs(args)
	if err != nil {
		cur.Close(ctx)
		return nil, err
	}
	if err := cur.Execute(ctx, sql, params...); err != nil {
		cur.Close(ctx)
		return nil, err
	}
	return newRows(cur), nil
}

func (c *conn) Ping(ctx context.Context) error {
	// Auto-commit state is the cheapest native round trip available.
	_, err := c.conn.AutoCommit(ctx)
	if err != nil && jdbc.IsDisconnect(err) {
		return driver.ErrBadConn
	}
	return err
}

func (c *conn) IsValid() bool {
	return !c.inTx
}

type tx struct {
	conn *conn
}

func (t *tx) Commit() error {
	ctx := context.Background()
	if err := t.conn.conn.Commit(ctx); err != nil {
		return err
	}
	t.conn.inTx = false
	return t.conn.conn.SetAutoCommit(ctx, true)
}

func (t *tx) Rollback() error {
	ctx := context.Background()
	if err := t.conn.conn.Rollback(ctx); err != nil {
		return err
	}
	t.conn.inTx = false
	return t.conn.conn.SetAutoCommit(ctx, true)
}

type execResult struct {
	rows int64
}

func (r execResult) LastInsertId() (int64, error) {
	return 0, errors.New("sqldriver: last insert id is not reported; query it explicitly")
}

func (r execResult) RowsAffected() (int64, error) {
	if r.rows < 0 {
		return 0, errors.New("sqldriver: rows affected is unknown")
	}
	return r.rows, nil
}

func namedToArgs(args []driver.NamedValue) ([]any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]any, len(args))
	for i, a := range args {
		if a.Name != "" {
			return nil, fmt.Errorf("sqldriver: named parameter %q is not supported", a.Name)
		}
		out[i] = a.Value
	}
	return out, nil
}
