package sqldriver

import (
	"context"
	"database/sql/driver"
	"io"

	"github.com/leapstack-labs/jbridge/pkg/jdbc"
)

// stmt adapts a cursor plus SQL text to driver.Stmt. The cursor prepares
// on each execution, so the statement is just a binding of text to a
// dedicated cursor.
type stmt struct {
	cur *jdbc.Cursor
	sql string
}

var (
	_ driver.Stmt             = (*stmt)(nil)
	_ driver.StmtExecContext  = (*stmt)(nil)
	_ driver.StmtQueryContext = (*stmt)(nil)
)

func (s *stmt) Close() error {
	return s.cur.Close(context.Background())
}

// NumInput reports -1: placeholder counts are not known without parsing
// the SQL, and database/sql skips its arity check for negative values.
func (s *stmt) NumInput() int { return -1 }

func (s *stmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), valuesToNamed(args))
}

func (s *stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	params, err := namedToArgs(args)
	if err != nil {
		return nil, err
	}
	if err := s.cur.Execute(ctx, s.sql, params...); err != nil {
		return nil, err
	}
	return execResult{rows: s.cur.RowCount()}, nil
}

func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), valuesToNamed(args))
}

func (s *stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	params, err := namedToArgs(args)
	if err != nil {
		return nil, err
	}
	if err := s.cur.Execute(ctx, s.sql, params...); err != nil {
		return nil, err
	}
	// The rows borrow the statement's cursor; closing them must not close
	// the cursor or the statement becomes unusable.
	return newBorrowedRows(s.cur), nil
}

func valuesToNamed(args []driver.Value) []driver.NamedValue {
	out := make([]driver.NamedValue, len(args))
	for i, v := range args {
		out[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return out
}

// rows adapts a cursor's result set to driver.Rows.
type rows struct {
	cur      *jdbc.Cursor
	borrowed bool
	desc     []jdbc.ColumnDescription
}

var (
	_ driver.Rows                           = (*rows)(nil)
	_ driver.RowsColumnTypeDatabaseTypeName = (*rows)(nil)
)

func newRows(cur *jdbc.Cursor) *rows {
	return &rows{cur: cur, desc: cur.Description()}
}

func newBorrowedRows(cur *jdbc.Cursor) *rows {
	return &rows{cur: cur, borrowed: true, desc: cur.Description()}
}

func (r *rows) Columns() []string {
	cols := make([]string, len(r.desc))
	for i, d := range r.desc {
		cols[i] = d.Name
	}
	return cols
}

func (r *rows) ColumnTypeDatabaseTypeName(i int) string {
	return r.desc[i].TypeCode.String()
}

func (r *rows) Next(dest []driver.Value) error {
	row, err := r.cur.FetchOne(context.Background())
	if err != nil {
		return err
	}
	if row == nil {
		return io.EOF
	}
	for i := range dest {
		dest[i] = row[i]
	}
	return nil
}

func (r *rows) Close() error {
	if r.borrowed {
		return nil
	}
	return r.cur.Close(context.Background())
}
