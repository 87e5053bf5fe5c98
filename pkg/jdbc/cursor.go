package jdbc

import (
	"context"
	"encoding/json"
	"fmt"
)

// cursorState tracks the cursor lifecycle.
type cursorState int

const (
	cursorReady cursorState = iota
	cursorExecuted
	cursorClosed
)

// batchUnknown is the driver sentinel for "statement succeeded but the
// affected-row count is unknown" in batch results.
const batchUnknown = -2

// defaultArraySize is the FetchMany batch size when none is set.
const defaultArraySize = 1

// ColumnDescription describes one result column. Drivers only reliably
// report name and type code; the remaining descriptor fields stay nil.
type ColumnDescription struct {
	Name         string
	TypeCode     TypeCode
	DisplaySize  *int
	InternalSize *int
	Precision    *int
	Scale        *int
	Nullable     *bool
}

// Cursor executes statements on its connection and iterates results.
// Not safe for concurrent use.
type Cursor struct {
	conn  *Connection
	state cursorState

	stmt *int64
	rs   *int64

	description []ColumnDescription
	rowCount    int64
	arraySize   int
}

func newCursor(conn *Connection) *Cursor {
	return &Cursor{conn: conn, rowCount: -1, arraySize: defaultArraySize}
}

type wireColumn struct {
	Name string `json:"name"`
	Type int32  `json:"type"`
}

type execResult struct {
	ResultSet   *int64       `json:"resultSet,omitempty"`
	Columns     []wireColumn `json:"columns,omitempty"`
	UpdateCount int64        `json:"updateCount"`
}

func (c *Cursor) live(op string) error {
	if c.state == cursorClosed {
		return interfaceError(op, "cursor is closed")
	}
	return c.conn.live(op)
}

// closeResources releases the statement and result set of the previous
// execution. Release failures are logged, not surfaced; the handles are
// forgotten either way.
func (c *Cursor) closeResources(ctx context.Context) {
	if c.rs != nil {
		if err := c.conn.rpc.Call(ctx, "resultset.close", map[string]int64{"resultset": *c.rs}, nil); err != nil {
			c.conn.logger.Debug("result set close failed", "error", err)
		}
		c.rs = nil
	}
	if c.stmt != nil {
		if err := c.conn.rpc.Call(ctx, "statement.close", map[string]int64{"statement": *c.stmt}, nil); err != nil {
			c.conn.logger.Debug("statement close failed", "error", err)
		}
		c.stmt = nil
	}
	c.description = nil
	c.rowCount = -1
}

// Execute runs one statement. Parameters bind positionally to ?
// placeholders. A query leaves a result set behind Description and the
// fetch methods with RowCount -1; a DML statement sets RowCount to the
// update count. Re-executing implicitly closes the prior statement and
// result set.
func (c *Cursor) Execute(ctx context.Context, sql string, args ...any) error {
	if err := c.live("execute"); err != nil {
		return err
	}
	params, err := toNativeAll(args)
	if err != nil {
		return err
	}

	c.closeResources(ctx)

	var result execResult
	if len(params) == 0 {
		err = c.conn.rpc.Call(ctx, "connection.execute",
			map[string]any{"connection": c.conn.handle, "sql": sql}, &result)
		if err != nil {
			return databaseError("execute", err)
		}
	} else {
		stmt, err := c.prepare(ctx, sql)
		if err != nil {
			return err
		}
		err = c.conn.rpc.Call(ctx, "statement.execute",
			map[string]any{"statement": stmt, "params": params}, &result)
		if err != nil {
			c.closeResources(ctx)
			return databaseError("execute", err)
		}
	}

	c.state = cursorExecuted
	if result.ResultSet != nil {
		c.rs = result.ResultSet
		c.rowCount = -1
		c.description = make([]ColumnDescription, len(result.Columns))
		for i, col := range result.Columns {
			c.description[i] = ColumnDescription{Name: col.Name, TypeCode: TypeCode(col.Type)}
		}
	} else {
		c.rowCount = result.UpdateCount
	}
	return nil
}

// ExecuteMany runs one statement once per parameter row on a single
// prepared statement. RowCount is the sum of per-row counts, or -1 when
// any count is unknown. ExecuteMany never leaves a result set.
func (c *Cursor) ExecuteMany(ctx context.Context, sql string, rows [][]any) error {
	if err := c.live("executemany"); err != nil {
		return err
	}

	// Convert everything up front so a bad value in row N fails before any
	// native work.
	batch := make([][]bindValue, len(rows))
	for i, row := range rows {
		params, err := toNativeAll(row)
		if err != nil {
			return interfaceError("executemany", "row %d: %v", i+1, err)
		}
		batch[i] = params
	}

	c.closeResources(ctx)

	stmt, err := c.prepare(ctx, sql)
	if err != nil {
		return err
	}

	var result struct {
		Counts []int64 `json:"counts"`
	}
	err = c.conn.rpc.Call(ctx, "statement.executeBatch",
		map[string]any{"statement": stmt, "rows": batch}, &result)
	if err != nil {
		c.closeResources(ctx)
		return databaseError("executemany", err)
	}

	c.state = cursorExecuted
	var total int64
	for _, n := range result.Counts {
		if n == batchUnknown {
			total = -1
			break
		}
		total += n
	}
	c.rowCount = total
	return nil
}

func (c *Cursor) prepare(ctx context.Context, sql string) (int64, error) {
	var result struct {
		Statement int64 `json:"statement"`
	}
	err := c.conn.rpc.Call(ctx, "statement.prepare",
		map[string]any{"connection": c.conn.handle, "sql": sql}, &result)
	if err != nil {
		return 0, databaseError("prepare", err)
	}
	c.stmt = &result.Statement
	return result.Statement, nil
}

// FetchOne returns the next row, or nil once the result set is exhausted.
func (c *Cursor) FetchOne(ctx context.Context) ([]any, error) {
	if err := c.live("fetch"); err != nil {
		return nil, err
	}
	if c.state != cursorExecuted || c.rs == nil {
		return nil, interfaceError("fetch", "no result set; execute a query first")
	}

	var next struct {
		HasRow bool `json:"hasRow"`
	}
	err := c.conn.rpc.Call(ctx, "resultset.next", map[string]int64{"resultset": *c.rs}, &next)
	if err != nil {
		return nil, databaseError("fetch", err)
	}
	if !next.HasRow {
		return nil, nil
	}

	acc := rsAccessor{rpc: c.conn.rpc, rs: *c.rs}
	row := make([]any, len(c.description))
	for i, col := range c.description {
		v, err := fromNative(ctx, acc, i+1, col.TypeCode, c.conn.logger)
		if err != nil {
			return nil, fmt.Errorf("column %d (%s): %w", i+1, col.Name, err)
		}
		row[i] = v
	}
	return row, nil
}

// FetchMany returns up to n rows (the cursor's array size when n <= 0).
// A short or empty slice signals exhaustion, never an error.
func (c *Cursor) FetchMany(ctx context.Context, n int) ([][]any, error) {
	if n <= 0 {
		n = c.arraySize
	}
	rows := make([][]any, 0, n)
	for len(rows) < n {
		row, err := c.FetchOne(ctx)
		if err != nil {
			return nil, err
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FetchAll drains the remaining rows.
func (c *Cursor) FetchAll(ctx context.Context) ([][]any, error) {
	var rows [][]any
	for {
		row, err := c.FetchOne(ctx)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return rows, nil
		}
		rows = append(rows, row)
	}
}

// Description returns the current result's column descriptors, or nil
// when the last execution produced no result set.
func (c *Cursor) Description() []ColumnDescription {
	return c.description
}

// RowCount returns the update count of the last execution, or -1 for
// queries and unknown counts.
func (c *Cursor) RowCount() int64 {
	return c.rowCount
}

// SetArraySize sets the default FetchMany batch size. Values below one
// are ignored.
func (c *Cursor) SetArraySize(n int) {
	if n >= 1 {
		c.arraySize = n
	}
}

// ArraySize returns the default FetchMany batch size.
func (c *Cursor) ArraySize() int {
	return c.arraySize
}

// Close releases the cursor's statement and result set. Idempotent.
func (c *Cursor) Close(ctx context.Context) error {
	if c.state == cursorClosed {
		return nil
	}
	c.closeResources(ctx)
	c.state = cursorClosed
	return nil
}

// rsAccessor implements ResultAccessor over the gateway RPC surface.
type rsAccessor struct {
	rpc rpcClient
	rs  int64
}

// jsonInto decodes a JSON value into an existing target, tolerating JSON
// null (the wasNull flag is authoritative for NULL cells).
type jsonInto struct{ target any }

func (j *jsonInto) UnmarshalJSON(b []byte) error {
	if string(b) == "null" || j.target == nil {
		return nil
	}
	return json.Unmarshal(b, j.target)
}

type getParams struct {
	ResultSet int64  `json:"resultset"`
	Column    int    `json:"column"`
	Accessor  string `json:"accessor"`
}

func (a rsAccessor) get(ctx context.Context, col int, accessor string, value any) (bool, error) {
	var envelope struct {
		Value   jsonInto `json:"value"`
		WasNull bool     `json:"wasNull"`
	}
	envelope.Value.target = value
	err := a.rpc.Call(ctx, "resultset.get", getParams{ResultSet: a.rs, Column: col, Accessor: accessor}, &envelope)
	if err != nil {
		return false, err
	}
	return envelope.WasNull, nil
}

func (a rsAccessor) Object(ctx context.Context, col int) (any, bool, error) {
	var v any
	null, err := a.get(ctx, col, "object", &v)
	return v, null, err
}

func (a rsAccessor) String(ctx context.Context, col int) (string, bool, error) {
	var v string
	null, err := a.get(ctx, col, "string", &v)
	return v, null, err
}

func (a rsAccessor) Long(ctx context.Context, col int) (int64, bool, error) {
	var v int64
	null, err := a.get(ctx, col, "long", &v)
	return v, null, err
}

func (a rsAccessor) Double(ctx context.Context, col int) (float64, bool, error) {
	var v float64
	null, err := a.get(ctx, col, "double", &v)
	return v, null, err
}

func (a rsAccessor) Bool(ctx context.Context, col int) (bool, bool, error) {
	var v bool
	null, err := a.get(ctx, col, "boolean", &v)
	return v, null, err
}

func (a rsAccessor) Decimal(ctx context.Context, col int) (string, bool, error) {
	var v string
	null, err := a.get(ctx, col, "decimal", &v)
	return v, null, err
}

func (a rsAccessor) Bytes(ctx context.Context, col int) ([]byte, bool, error) {
	var v []byte
	null, err := a.get(ctx, col, "bytes", &v)
	return v, null, err
}

func (a rsAccessor) Timestamp(ctx context.Context, col int) (int64, int32, bool, error) {
	var envelope struct {
		Millis  int64 `json:"millis"`
		Nanos   int32 `json:"nanos"`
		WasNull bool  `json:"wasNull"`
	}
	err := a.rpc.Call(ctx, "resultset.get", getParams{ResultSet: a.rs, Column: col, Accessor: "timestamp"}, &envelope)
	if err != nil {
		return 0, 0, false, err
	}
	return envelope.Millis, envelope.Nanos, envelope.WasNull, nil
}

func (a rsAccessor) Blob(ctx context.Context, col int) ([]byte, bool, error) {
	var v []byte
	null, err := a.get(ctx, col, "blob", &v)
	return v, null, err
}

func (a rsAccessor) Clob(ctx context.Context, col int) (string, bool, error) {
	var v string
	null, err := a.get(ctx, col, "clob", &v)
	return v, null, err
}

func (a rsAccessor) Array(ctx context.Context, col int) ([]any, bool, error) {
	var v []any
	null, err := a.get(ctx, col, "array", &v)
	return v, null, err
}
