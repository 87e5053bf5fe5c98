package jdbc

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/leapstack-labs/jbridge/internal/jvm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcHandler computes one fake gateway response.
type rpcHandler func(params json.RawMessage) (any, error)

// recordedCall is one RPC observed by the fake client.
type recordedCall struct {
	Method string
	Params json.RawMessage
}

// fakeRPC satisfies rpcClient with scripted per-method handlers. Responses
// round-trip through JSON, matching the real transport.
type fakeRPC struct {
	handlers map[string]rpcHandler
	calls    []recordedCall
}

func newFakeRPC() *fakeRPC {
	return &fakeRPC{handlers: make(map[string]rpcHandler)}
}

func (f *fakeRPC) on(method string, h rpcHandler) *fakeRPC {
	f.handlers[method] = h
	return f
}

// reply registers a handler returning a fixed value.
func (f *fakeRPC) reply(method string, value any) *fakeRPC {
	return f.on(method, func(json.RawMessage) (any, error) { return value, nil })
}

func (f *fakeRPC) Call(_ context.Context, method string, params, result any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	f.calls = append(f.calls, recordedCall{Method: method, Params: raw})

	h, ok := f.handlers[method]
	if !ok {
		return fmt.Errorf("unexpected rpc %q", method)
	}
	v, err := h(raw)
	if err != nil {
		return err
	}
	if result != nil && v != nil {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, result)
	}
	return nil
}

// methods lists the RPC methods called, in order.
func (f *fakeRPC) methods() []string {
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Method
	}
	return out
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{
			name:    "missing driver class",
			opts:    Options{URL: "jdbc:postgresql://h/db"},
			wantErr: "driver class is required",
		},
		{
			name:    "missing url",
			opts:    Options{DriverClass: "org.postgresql.Driver"},
			wantErr: "connection URL is required",
		},
		{
			name: "properties and credentials together",
			opts: Options{
				DriverClass: "org.postgresql.Driver",
				URL:         "jdbc:postgresql://h/db",
				Properties:  map[string]string{"user": "u"},
				Credentials: []string{"u", "p"},
			},
			wantErr: "mutually exclusive",
		},
		{
			name: "short credentials",
			opts: Options{
				DriverClass: "org.postgresql.Driver",
				URL:         "jdbc:postgresql://h/db",
				Credentials: []string{"only-user"},
			},
			wantErr: "credentials must be [user, password]",
		},
		{
			name: "url only is valid",
			opts: Options{DriverClass: "org.sqlite.JDBC", URL: "jdbc:sqlite:test.db"},
		},
		{
			name: "properties shape is valid",
			opts: Options{
				DriverClass: "org.postgresql.Driver",
				URL:         "jdbc:postgresql://h/db",
				Properties:  map[string]string{"user": "u", "password": "p", "ssl": "true"},
			},
		},
		{
			name: "credentials shape is valid",
			opts: Options{
				DriverClass: "org.postgresql.Driver",
				URL:         "jdbc:postgresql://h/db",
				Credentials: []string{"u", "p"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr)
			kind, ok := ErrorKind(err)
			require.True(t, ok)
			assert.Equal(t, KindInterface, kind)
		})
	}
}

func TestConnectRejectsBadShapeBeforeAnyWork(t *testing.T) {
	_, err := Connect(context.Background(), Options{
		DriverClass: "org.postgresql.Driver",
		URL:         "jdbc:postgresql://h/db",
		Credentials: []string{"u", "p", "extra"},
	})
	require.Error(t, err)
	kind, ok := ErrorKind(err)
	require.True(t, ok)
	assert.Equal(t, KindInterface, kind)
}

func TestConnectionTransactionControls(t *testing.T) {
	rpc := newFakeRPC().
		reply("connection.commit", nil).
		reply("connection.rollback", nil).
		reply("connection.setAutoCommit", nil).
		reply("connection.getAutoCommit", map[string]bool{"value": true})

	conn := newConnection(rpc, 7, nil)
	ctx := context.Background()

	require.NoError(t, conn.Commit(ctx))
	require.NoError(t, conn.Rollback(ctx))
	require.NoError(t, conn.SetAutoCommit(ctx, false))

	on, err := conn.AutoCommit(ctx)
	require.NoError(t, err)
	assert.True(t, on)

	assert.Equal(t, []string{
		"connection.commit",
		"connection.rollback",
		"connection.setAutoCommit",
		"connection.getAutoCommit",
	}, rpc.methods())
}

func TestConnectionCloseIdempotent(t *testing.T) {
	rpc := newFakeRPC().reply("connection.close", nil)
	conn := newConnection(rpc, 7, nil)
	ctx := context.Background()

	require.NoError(t, conn.Close(ctx))
	require.NoError(t, conn.Close(ctx))
	assert.Equal(t, []string{"connection.close"}, rpc.methods(), "second close is a no-op")

	err := conn.Commit(ctx)
	require.Error(t, err)
	kind, _ := ErrorKind(err)
	assert.Equal(t, KindInterface, kind)

	_, err = conn.Cursor()
	assert.Error(t, err)
}

func sqlException(message, sqlState, class string) *jvm.RPCError {
	data, _ := json.Marshal(map[string]any{
		"exceptionClass": class,
		"sqlState":       sqlState,
	})
	return &jvm.RPCError{Code: jvm.CodeSQLException, Message: message, Data: data}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{
			name: "integrity by exception class",
			err:  sqlException("duplicate key", "", "java.sql.SQLIntegrityConstraintViolationException"),
			want: KindIntegrity,
		},
		{
			name: "integrity by sqlstate",
			err:  sqlException("duplicate key", "23505", "java.sql.SQLException"),
			want: KindIntegrity,
		},
		{
			name: "programming by exception class",
			err:  sqlException("bad syntax", "", "java.sql.SQLSyntaxErrorException"),
			want: KindProgramming,
		},
		{
			name: "programming by sqlstate",
			err:  sqlException("bad syntax", "42601", "java.sql.SQLException"),
			want: KindProgramming,
		},
		{
			name: "operational by transient class",
			err:  sqlException("connection lost", "", "java.sql.SQLTransientConnectionException"),
			want: KindOperational,
		},
		{
			name: "operational by sqlstate",
			err:  sqlException("connection lost", "08006", "java.sql.SQLException"),
			want: KindOperational,
		},
		{
			name: "not supported",
			err:  sqlException("no arrays", "", "java.sql.SQLFeatureNotSupportedException"),
			want: KindNotSupported,
		},
		{
			name: "unreliable signal stays generic",
			err:  sqlException("vendor mystery", "XX000", "java.sql.SQLException"),
			want: KindDatabase,
		},
		{
			name: "non-rpc error stays generic",
			err:  fmt.Errorf("pipe broke"),
			want: KindDatabase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := databaseError("execute", tt.err)
			assert.Equal(t, tt.want, e.Kind)
			assert.Equal(t, "execute", e.Op)
		})
	}
}

func TestErrorMessageIncludesSQLState(t *testing.T) {
	e := databaseError("commit", sqlException("duplicate key", "23505", "java.sql.SQLException"))
	assert.Contains(t, e.Error(), "sqlstate 23505")
	assert.Contains(t, e.Error(), "integrity")
}
