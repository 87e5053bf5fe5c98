package jdbc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/jbridge/internal/jvm"
	"github.com/leapstack-labs/jbridge/internal/resolver"
)

// rpcClient is the slice of the runtime the connection layer needs.
// Satisfied by *jvm.Runtime; tests substitute a scripted fake.
type rpcClient interface {
	Call(ctx context.Context, method string, params, result any) error
}

// Options configures a Connect call.
//
// Exactly one credential shape may be set: neither Properties nor
// Credentials (the URL carries everything), a Properties map, or
// Credentials as a [user, password] pair. Anything else fails before any
// native call.
type Options struct {
	// DriverClass is the fully-qualified JDBC driver class, e.g.
	// "org.postgresql.Driver".
	DriverClass string
	// URL is the JDBC connection URL, e.g. "jdbc:postgresql://host/db".
	URL string
	// Properties is the driver properties map credential shape.
	Properties map[string]string
	// Credentials is the positional [user, password] credential shape.
	Credentials []string

	// DriverKinds names resolver driver kinds to fetch onto the classpath
	// (e.g. "postgresql"). Empty relies on manual classpath entries.
	DriverKinds []string
	// ExtraClasspath entries are prepended alongside JBRIDGE_CLASSPATH.
	ExtraClasspath []string

	// JavaPath, JVMArgs, Resolver and Logger feed runtime startup and are
	// ignored when the runtime is already up.
	JavaPath string
	JVMArgs  []string
	Resolver *resolver.Resolver
	Logger   *slog.Logger
}

func (o *Options) validate() error {
	if o.DriverClass == "" {
		return interfaceError("connect", "driver class is required")
	}
	if o.URL == "" {
		return interfaceError("connect", "connection URL is required")
	}
	if o.Properties != nil && o.Credentials != nil {
		return interfaceError("connect", "properties and credentials are mutually exclusive")
	}
	if o.Credentials != nil && len(o.Credentials) != 2 {
		return interfaceError("connect", "credentials must be [user, password], got %d values", len(o.Credentials))
	}
	return nil
}

// Connection is an open native connection. Not safe for concurrent use;
// see the async subpackage for a serialized wrapper.
type Connection struct {
	rpc    rpcClient
	handle int64
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

type openParams struct {
	URL        string            `json:"url"`
	User       *string           `json:"user,omitempty"`
	Password   *string           `json:"password,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Connect validates opts, ensures the embedded runtime is up with a
// classpath covering the requested drivers, loads the driver class, and
// opens a native connection.
func Connect(ctx context.Context, opts Options) (*Connection, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	res := opts.Resolver
	if res == nil {
		res = resolver.New(resolver.Config{Logger: logger})
	}

	manual := resolver.MergeClasspath(opts.ExtraClasspath, resolver.ManualClasspath(logger))
	classpath, err := res.BuildClasspath(ctx, manual, opts.DriverKinds)
	if err != nil {
		return nil, fmt.Errorf("build classpath: %w", err)
	}

	rt, err := jvm.EnsureStarted(ctx, jvm.Options{
		Classpath: classpath,
		JavaPath:  opts.JavaPath,
		JVMArgs:   opts.JVMArgs,
		Resolver:  res,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	if err := rt.LoadClass(ctx, opts.DriverClass); err != nil {
		return nil, err
	}

	params := openParams{URL: opts.URL, Properties: opts.Properties}
	if opts.Credentials != nil {
		params.User = &opts.Credentials[0]
		params.Password = &opts.Credentials[1]
	}

	var result struct {
		Connection int64 `json:"connection"`
	}
	if err := rt.Call(ctx, "connection.open", params, &result); err != nil {
		return nil, databaseError("connect", err)
	}

	logger.Debug("connection opened", "driver", opts.DriverClass, "handle", result.Connection)
	return newConnection(rt, result.Connection, logger), nil
}

func newConnection(rpc rpcClient, handle int64, logger *slog.Logger) *Connection {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Connection{rpc: rpc, handle: handle, logger: logger}
}

func (c *Connection) live(op string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return interfaceError(op, "connection is closed")
	}
	return nil
}

type connParams struct {
	Connection int64 `json:"connection"`
	Value      *bool `json:"value,omitempty"`
}

// Cursor creates a cursor bound to this connection.
func (c *Connection) Cursor() (*Cursor, error) {
	if err := c.live("cursor"); err != nil {
		return nil, err
	}
	return newCursor(c), nil
}

// Commit commits the current transaction.
func (c *Connection) Commit(ctx context.Context) error {
	if err := c.live("commit"); err != nil {
		return err
	}
	if err := c.rpc.Call(ctx, "connection.commit", connParams{Connection: c.handle}, nil); err != nil {
		return databaseError("commit", err)
	}
	return nil
}

// Rollback rolls back the current transaction.
func (c *Connection) Rollback(ctx context.Context) error {
	if err := c.live("rollback"); err != nil {
		return err
	}
	if err := c.rpc.Call(ctx, "connection.rollback", connParams{Connection: c.handle}, nil); err != nil {
		return databaseError("rollback", err)
	}
	return nil
}

// SetAutoCommit toggles the connection's auto-commit mode.
func (c *Connection) SetAutoCommit(ctx context.Context, on bool) error {
	if err := c.live("set-autocommit"); err != nil {
		return err
	}
	if err := c.rpc.Call(ctx, "connection.setAutoCommit", connParams{Connection: c.handle, Value: &on}, nil); err != nil {
		return databaseError("set-autocommit", err)
	}
	return nil
}

// AutoCommit reports the connection's auto-commit mode.
func (c *Connection) AutoCommit(ctx context.Context) (bool, error) {
	if err := c.live("autocommit"); err != nil {
		return false, err
	}
	var result struct {
		Value bool `json:"value"`
	}
	if err := c.rpc.Call(ctx, "connection.getAutoCommit", connParams{Connection: c.handle}, &result); err != nil {
		return false, databaseError("autocommit", err)
	}
	return result.Value, nil
}

// Close releases the native connection. Idempotent.
func (c *Connection) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if err := c.rpc.Call(ctx, "connection.close", connParams{Connection: c.handle}, nil); err != nil {
		return databaseError("close", err)
	}
	c.logger.Debug("connection closed", "handle", c.handle)
	return nil
}
