package jdbc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/jbridge/internal/jvm"
	"github.com/leapstack-labs/jbridge/internal/resolver"
)

// Pool tuning defaults and floors, matching HikariCP's own.
const (
	defaultPoolSize          = 10
	defaultConnectionTimeout = 30 * time.Second
	defaultIdleTimeout       = 10 * time.Minute
	defaultMaxLifetime       = 30 * time.Minute
	minConnectionTimeout     = 250 * time.Millisecond
	minIdleTimeout           = 10 * time.Second
)

// HikariConfig tunes a HikariCP pool opened through the runtime. Zero
// values take the pool's defaults.
type HikariConfig struct {
	PoolName string
	// MaximumPoolSize caps total connections; defaults to 10.
	MaximumPoolSize int
	// MinimumIdle is the idle floor; defaults to MaximumPoolSize.
	MinimumIdle int
	// ConnectionTimeout bounds waiting for a pooled connection; at least
	// 250ms, defaults to 30s.
	ConnectionTimeout time.Duration
	// IdleTimeout retires idle connections; zero takes the 10m default,
	// negative disables retirement, positive values need at least 10s.
	IdleTimeout time.Duration
	// MaxLifetime retires connections regardless of activity; defaults
	// to 30m.
	MaxLifetime time.Duration
	// KeepaliveTime pings idle connections; zero disables, otherwise must
	// be shorter than MaxLifetime.
	KeepaliveTime time.Duration
	// AllowPoolSuspension enables Suspend and Resume.
	AllowPoolSuspension bool
}

func (c *HikariConfig) withDefaults() (HikariConfig, error) {
	out := *c
	if out.MaximumPoolSize <= 0 {
		out.MaximumPoolSize = defaultPoolSize
	}
	if out.MinimumIdle <= 0 || out.MinimumIdle > out.MaximumPoolSize {
		out.MinimumIdle = out.MaximumPoolSize
	}
	if out.ConnectionTimeout == 0 {
		out.ConnectionTimeout = defaultConnectionTimeout
	}
	if out.ConnectionTimeout < minConnectionTimeout {
		return out, interfaceError("pool", "connection timeout %s is below the %s floor", out.ConnectionTimeout, minConnectionTimeout)
	}
	switch {
	case out.IdleTimeout == 0:
		out.IdleTimeout = defaultIdleTimeout
	case out.IdleTimeout < 0:
		out.IdleTimeout = 0
	}
	if out.IdleTimeout > 0 && out.IdleTimeout < minIdleTimeout {
		return out, interfaceError("pool", "idle timeout %s is below the %s floor", out.IdleTimeout, minIdleTimeout)
	}
	if out.MaxLifetime == 0 {
		out.MaxLifetime = defaultMaxLifetime
	}
	if out.KeepaliveTime > 0 && out.KeepaliveTime >= out.MaxLifetime {
		return out, interfaceError("pool", "keepalive %s must be shorter than max lifetime %s", out.KeepaliveTime, out.MaxLifetime)
	}
	return out, nil
}

// PoolStats is a point-in-time snapshot of pool occupancy.
type PoolStats struct {
	Active  int `json:"active"`
	Idle    int `json:"idle"`
	Total   int `json:"total"`
	Waiting int `json:"waiting"`
}

// HikariPool is a HikariCP pool living inside the runtime. Get hands out
// ordinary Connections whose Close returns them to the pool.
type HikariPool struct {
	rpc    rpcClient
	handle int64
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// OpenHikariPool starts a HikariCP pool for the target described by opts.
// The HikariCP and slf4j jars are resolved onto the classpath alongside
// the requested drivers.
func OpenHikariPool(ctx context.Context, opts Options, cfg HikariConfig) (*HikariPool, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	cfg, err := cfg.withDefaults()
	if err != nil {
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

	kinds := append([]string{}, opts.DriverKinds...)
	kinds = append(kinds, resolver.HikariKind, resolver.SLF4JKind)
	manual := resolver.MergeClasspath(opts.ExtraClasspath, resolver.ManualClasspath(logger))
	classpath, err := res.BuildClasspath(ctx, manual, kinds)
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

	params := map[string]any{
		"driverClass": opts.DriverClass,
		"url":         opts.URL,
		"config": map[string]any{
			"poolName":            cfg.PoolName,
			"maximumPoolSize":     cfg.MaximumPoolSize,
			"minimumIdle":         cfg.MinimumIdle,
			"connectionTimeoutMs": cfg.ConnectionTimeout.Milliseconds(),
			"idleTimeoutMs":       cfg.IdleTimeout.Milliseconds(),
			"maxLifetimeMs":       cfg.MaxLifetime.Milliseconds(),
			"keepaliveTimeMs":     cfg.KeepaliveTime.Milliseconds(),
			"allowPoolSuspension": cfg.AllowPoolSuspension,
		},
	}
	if opts.Credentials != nil {
		params["user"] = opts.Credentials[0]
		params["password"] = opts.Credentials[1]
	}
	if opts.Properties != nil {
		params["properties"] = opts.Properties
	}

	var result struct {
		Pool int64 `json:"pool"`
	}
	if err := rt.Call(ctx, "pool.open", params, &result); err != nil {
		return nil, databaseError("pool-open", err)
	}

	logger.Info("connection pool started", "name", cfg.PoolName, "max", cfg.MaximumPoolSize)
	return &HikariPool{rpc: rt, handle: result.Pool, logger: logger}, nil
}

func (p *HikariPool) live(op string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return interfaceError(op, "pool is closed")
	}
	return nil
}

// Get borrows a connection from the pool. Closing the returned connection
// releases it back to the pool rather than closing the native link.
func (p *HikariPool) Get(ctx context.Context) (*Connection, error) {
	if err := p.live("pool-get"); err != nil {
		return nil, err
	}
	var result struct {
		Connection int64 `json:"connection"`
	}
	if err := p.rpc.Call(ctx, "pool.getConnection", map[string]int64{"pool": p.handle}, &result); err != nil {
		return nil, databaseError("pool-get", err)
	}
	return newConnection(p.rpc, result.Connection, p.logger), nil
}

// Stats returns a snapshot of pool occupancy.
func (p *HikariPool) Stats(ctx context.Context) (PoolStats, error) {
	if err := p.live("pool-stats"); err != nil {
		return PoolStats{}, err
	}
	var stats PoolStats
	if err := p.rpc.Call(ctx, "pool.stats", map[string]int64{"pool": p.handle}, &stats); err != nil {
		return PoolStats{}, databaseError("pool-stats", err)
	}
	return stats, nil
}

// Suspend pauses handout of new connections. Requires AllowPoolSuspension.
func (p *HikariPool) Suspend(ctx context.Context) error {
	if err := p.live("pool-suspend"); err != nil {
		return err
	}
	if err := p.rpc.Call(ctx, "pool.suspend", map[string]int64{"pool": p.handle}, nil); err != nil {
		return databaseError("pool-suspend", err)
	}
	return nil
}

// Resume reverses Suspend.
func (p *HikariPool) Resume(ctx context.Context) error {
	if err := p.live("pool-resume"); err != nil {
		return err
	}
	if err := p.rpc.Call(ctx, "pool.resume", map[string]int64{"pool": p.handle}, nil); err != nil {
		return databaseError("pool-resume", err)
	}
	return nil
}

// Close shuts the pool down, closing its native connections. Idempotent.
func (p *HikariPool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	if err := p.rpc.Call(ctx, "pool.close", map[string]int64{"pool": p.handle}, nil); err != nil {
		return databaseError("pool-close", err)
	}
	p.logger.Info("connection pool closed")
	return nil
}
