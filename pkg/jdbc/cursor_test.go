package jdbc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResultSet scripts resultset.next and resultset.get over fixed rows.
// Cells are served through the accessor the converter asks for, so typed
// dispatch is exercised end to end.
type fakeResultSet struct {
	rows [][]any
	pos  int
}

func (rs *fakeResultSet) next(json.RawMessage) (any, error) {
	if rs.pos >= len(rs.rows) {
		return map[string]bool{"hasRow": false}, nil
	}
	rs.pos++
	return map[string]bool{"hasRow": true}, nil
}

func (rs *fakeResultSet) get(params json.RawMessage) (any, error) {
	var p getParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	cell := rs.rows[rs.pos-1][p.Column-1]
	return map[string]any{"value": cell, "wasNull": cell == nil}, nil
}

// queryConn wires a connection whose fake gateway answers a query with the
// given columns and rows.
func queryConn(t *testing.T, columns []wireColumn, rows [][]any) (*Connection, *fakeRPC) {
	t.Helper()
	rs := &fakeResultSet{rows: rows}
	handle := int64(1)
	rpc := newFakeRPC().
		reply("connection.execute", execResult{ResultSet: &handle, Columns: columns}).
		on("resultset.next", rs.next).
		on("resultset.get", rs.get).
		reply("resultset.close", nil).
		reply("statement.close", nil)
	return newConnection(rpc, 1, nil), rpc
}

func TestCursorQuery(t *testing.T) {
	ctx := context.Background()
	conn, _ := queryConn(t,
		[]wireColumn{{Name: "id", Type: int32(TypeInteger)}, {Name: "name", Type: int32(TypeVarChar)}},
		[][]any{{int64(1), "ada"}, {int64(2), "grace"}},
	)

	cur, err := conn.Cursor()
	require.NoError(t, err)
	require.NoError(t, cur.Execute(ctx, "SELECT id, name FROM users"))

	desc := cur.Description()
	require.Len(t, desc, 2)
	assert.Equal(t, "id", desc[0].Name)
	assert.Equal(t, TypeInteger, desc[0].TypeCode)
	assert.Equal(t, "name", desc[1].Name)
	assert.Equal(t, int64(-1), cur.RowCount(), "queries report no update count")

	rows, err := cur.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(1), "ada"}, {int64(2), "grace"}}, rows)

	// Exhausted: FetchOne yields nil without error.
	row, err := cur.FetchOne(ctx)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestCursorQueryNullCell(t *testing.T) {
	ctx := context.Background()
	conn, _ := queryConn(t,
		[]wireColumn{{Name: "note", Type: int32(TypeVarChar)}},
		[][]any{{nil}},
	)

	cur, err := conn.Cursor()
	require.NoError(t, err)
	require.NoError(t, cur.Execute(ctx, "SELECT note FROM t"))

	row, err := cur.FetchOne(ctx)
	require.NoError(t, err)
	require.Len(t, row, 1)
	assert.Nil(t, row[0])
}

func TestCursorExecuteWithParams(t *testing.T) {
	ctx := context.Background()
	rpc := newFakeRPC().
		reply("statement.prepare", map[string]int64{"statement": 11}).
		reply("statement.execute", execResult{UpdateCount: 1}).
		reply("statement.close", nil)
	conn := newConnection(rpc, 1, nil)

	cur, err := conn.Cursor()
	require.NoError(t, err)
	require.NoError(t, cur.Execute(ctx, "INSERT INTO users VALUES (?, ?)", int64(1), "ada"))

	assert.Equal(t, []string{"statement.prepare", "statement.execute"}, rpc.methods())
	assert.Equal(t, int64(1), cur.RowCount())
	assert.Nil(t, cur.Description())

	// The converted bind values travel with the execute call.
	var sent struct {
		Statement int64 `json:"statement"`
		Params    []struct {
			Kind  string `json:"kind"`
			Value any    `json:"value"`
		} `json:"params"`
	}
	require.NoError(t, json.Unmarshal(rpc.calls[1].Params, &sent))
	assert.Equal(t, int64(11), sent.Statement)
	require.Len(t, sent.Params, 2)
	assert.Equal(t, "long", sent.Params[0].Kind)
	assert.Equal(t, "string", sent.Params[1].Kind)
	assert.Equal(t, "ada", sent.Params[1].Value)
}

func TestCursorFetchWithoutResultSet(t *testing.T) {
	ctx := context.Background()
	rpc := newFakeRPC().reply("connection.execute", execResult{UpdateCount: 3})
	conn := newConnection(rpc, 1, nil)

	cur, err := conn.Cursor()
	require.NoError(t, err)

	// Before any execute.
	_, err = cur.FetchOne(ctx)
	require.Error(t, err)
	kind, _ := ErrorKind(err)
	assert.Equal(t, KindInterface, kind)

	// After a DML execute there is still no result set.
	require.NoError(t, cur.Execute(ctx, "DELETE FROM users"))
	assert.Equal(t, int64(3), cur.RowCount())
	_, err = cur.FetchOne(ctx)
	assert.ErrorContains(t, err, "no result set")
}

func TestCursorReExecuteClosesPriorResources(t *testing.T) {
	ctx := context.Background()
	conn, rpc := queryConn(t, []wireColumn{{Name: "id", Type: int32(TypeInteger)}}, nil)

	cur, err := conn.Cursor()
	require.NoError(t, err)
	require.NoError(t, cur.Execute(ctx, "SELECT id FROM a"))
	require.NoError(t, cur.Execute(ctx, "SELECT id FROM b"))

	assert.Equal(t, []string{
		"connection.execute",
		"resultset.close",
		"connection.execute",
	}, rpc.methods())
}

func TestCursorExecuteMany(t *testing.T) {
	ctx := context.Background()
	rpc := newFakeRPC().
		reply("statement.prepare", map[string]int64{"statement": 11}).
		reply("statement.executeBatch", map[string][]int64{"counts": {1, 1, 1}}).
		reply("statement.close", nil)
	conn := newConnection(rpc, 1, nil)

	cur, err := conn.Cursor()
	require.NoError(t, err)
	rows := [][]any{{int64(1), "a"}, {int64(2), "b"}, {int64(3), "c"}}
	require.NoError(t, cur.ExecuteMany(ctx, "INSERT INTO t VALUES (?, ?)", rows))

	assert.Equal(t, int64(3), cur.RowCount())
	assert.Nil(t, cur.Description())

	var sent struct {
		Rows [][]json.RawMessage `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rpc.calls[1].Params, &sent))
	assert.Len(t, sent.Rows, 3)
}

func TestCursorExecuteManyUnknownCount(t *testing.T) {
	ctx := context.Background()
	rpc := newFakeRPC().
		reply("statement.prepare", map[string]int64{"statement": 11}).
		reply("statement.executeBatch", map[string][]int64{"counts": {1, batchUnknown, 1}})
	conn := newConnection(rpc, 1, nil)

	cur, err := conn.Cursor()
	require.NoError(t, err)
	require.NoError(t, cur.ExecuteMany(ctx, "UPDATE t SET x = ? WHERE id = ?", [][]any{{1, 1}, {2, 2}, {3, 3}}))
	assert.Equal(t, int64(-1), cur.RowCount(), "any unknown count makes the total unknown")
}

func TestCursorExecuteManyBadValueFailsBeforeRPC(t *testing.T) {
	rpc := newFakeRPC()
	conn := newConnection(rpc, 1, nil)

	cur, err := conn.Cursor()
	require.NoError(t, err)
	err = cur.ExecuteMany(context.Background(), "INSERT INTO t VALUES (?)", [][]any{{1}, {make(chan int)}})
	require.Error(t, err)
	assert.ErrorContains(t, err, "row 2")
	assert.Empty(t, rpc.calls, "conversion failures never reach the gateway")
}

func TestCursorFetchMany(t *testing.T) {
	ctx := context.Background()
	conn, _ := queryConn(t,
		[]wireColumn{{Name: "n", Type: int32(TypeInteger)}},
		[][]any{{int64(1)}, {int64(2)}, {int64(3)}},
	)

	cur, err := conn.Cursor()
	require.NoError(t, err)
	require.NoError(t, cur.Execute(ctx, "SELECT n FROM t"))

	batch, err := cur.FetchMany(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	// The tail batch comes up short at exhaustion.
	batch, err = cur.FetchMany(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, batch, 1)

	batch, err = cur.FetchMany(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestCursorFetchManyUsesArraySize(t *testing.T) {
	ctx := context.Background()
	conn, _ := queryConn(t,
		[]wireColumn{{Name: "n", Type: int32(TypeInteger)}},
		[][]any{{int64(1)}, {int64(2)}, {int64(3)}},
	)

	cur, err := conn.Cursor()
	require.NoError(t, err)
	assert.Equal(t, defaultArraySize, cur.ArraySize())

	cur.SetArraySize(2)
	cur.SetArraySize(0) // ignored
	assert.Equal(t, 2, cur.ArraySize())

	require.NoError(t, cur.Execute(ctx, "SELECT n FROM t"))
	batch, err := cur.FetchMany(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, batch, 2)
}

func TestCursorCloseIdempotent(t *testing.T) {
	ctx := context.Background()
	conn, rpc := queryConn(t, []wireColumn{{Name: "id", Type: int32(TypeInteger)}}, nil)

	cur, err := conn.Cursor()
	require.NoError(t, err)
	require.NoError(t, cur.Execute(ctx, "SELECT id FROM t"))

	require.NoError(t, cur.Close(ctx))
	require.NoError(t, cur.Close(ctx))
	assert.Equal(t, []string{"connection.execute", "resultset.close"}, rpc.methods())

	err = cur.Execute(ctx, "SELECT 1")
	require.Error(t, err)
	assert.ErrorContains(t, err, "cursor is closed")
}

func TestCursorOnClosedConnection(t *testing.T) {
	ctx := context.Background()
	rpc := newFakeRPC().reply("connection.close", nil)
	conn := newConnection(rpc, 1, nil)

	cur, err := conn.Cursor()
	require.NoError(t, err)
	require.NoError(t, conn.Close(ctx))

	err = cur.Execute(ctx, "SELECT 1")
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection is closed")
}

func TestCursorExecuteErrorClassified(t *testing.T) {
	rpc := newFakeRPC().on("connection.execute", func(json.RawMessage) (any, error) {
		return nil, sqlException("syntax error at or near SELEC", "42601", "java.sql.SQLSyntaxErrorException")
	})
	conn := newConnection(rpc, 1, nil)

	cur, err := conn.Cursor()
	require.NoError(t, err)
	err = cur.Execute(context.Background(), "SELEC 1")
	require.Error(t, err)
	kind, ok := ErrorKind(err)
	require.True(t, ok)
	assert.Equal(t, KindProgramming, kind)
}
