package jvm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/jbridge/internal/resolver"
)

// State describes the lifecycle of the process-wide runtime.
type State int

const (
	StateNotStarted State = iota
	StateStarting
	StateRunning
	StateFailed
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrStopped is returned by EnsureStarted after Shutdown: the embedded
// runtime cannot be restarted within the same process.
var ErrStopped = errors.New("jvm: runtime was shut down and cannot be restarted in this process")

// StartError wraps a failed runtime startup.
type StartError struct {
	Err error
}

func (e *StartError) Error() string { return fmt.Sprintf("failed to start embedded runtime: %v", e.Err) }
func (e *StartError) Unwrap() error { return e.Err }

// ClassNotFoundError is returned when a class is unresolvable on the
// active classpath.
type ClassNotFoundError struct {
	Name string
	Err  error
}

func (e *ClassNotFoundError) Error() string {
	return fmt.Sprintf("class %s not found on the runtime classpath", e.Name)
}
func (e *ClassNotFoundError) Unwrap() error { return e.Err }

// Options configures runtime startup. Only the first successful
// EnsureStarted call's options take effect; the classpath is final once
// the runtime is up.
type Options struct {
	// Classpath entries, manual-before-auto, already merged by the caller.
	Classpath []string
	// JavaPath points at a java binary; empty triggers discovery.
	JavaPath string
	// JVMArgs are extra arguments (e.g. -Xmx512m).
	JVMArgs []string
	// Resolver fetches the gateway jar; nil builds a default resolver.
	Resolver *resolver.Resolver
	// Logger is the structured logger (nil uses discard).
	Logger *slog.Logger

	// launch is the test seam for substituting the subprocess.
	launch launcher
}

// Runtime is the process-wide handle to the embedded Java runtime.
type Runtime struct {
	mu        sync.Mutex
	state     State
	classpath []string
	proc      *process
	logger    *slog.Logger
}

// The process-wide registry. At most one runtime per process.
var (
	registryMu sync.Mutex
	active     *Runtime
)

// EnsureStarted starts the embedded runtime if it is not already running
// and returns the process-wide handle. Idempotent: once a runtime is up,
// later calls return the same handle and ignore their options, since the
// runtime cannot extend its classpath post-start.
func EnsureStarted(ctx context.Context, opts Options) (*Runtime, error) {
	registryMu.Lock()
	defer registryMu.Unlock()

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if active != nil {
		switch active.State() {
		case StateRunning:
			if len(opts.Classpath) > 0 {
				logger.Debug("runtime already started; classpath options ignored")
			}
			return active, nil
		case StateStopped:
			return nil, ErrStopped
		default:
			// A previous start failed; clear it and try again.
			active = nil
		}
	}

	res := opts.Resolver
	if res == nil {
		res = resolver.New(resolver.Config{Logger: logger})
	}

	gateway, err := res.Resolve(ctx, resolver.GatewayKind, false)
	if err != nil {
		return nil, &StartError{Err: err}
	}
	classpath := resolver.MergeClasspath(opts.Classpath, []string{gateway.Path})

	launch := opts.launch
	if launch == nil {
		launch = launchGateway
	}

	rt := &Runtime{state: StateStarting, classpath: classpath, logger: logger}
	active = rt

	proc, err := launch(ctx, opts.JavaPath, opts.JVMArgs, classpath, logger)
	if err != nil {
		rt.setState(StateFailed)
		return nil, &StartError{Err: err}
	}

	rt.mu.Lock()
	rt.proc = proc
	rt.state = StateRunning
	rt.mu.Unlock()
	return rt, nil
}

// Active returns the process-wide runtime, if one exists.
func Active() (*Runtime, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	return active, active != nil
}

// IsStarted reports whether a runtime is currently running.
func IsStarted() bool {
	rt, ok := Active()
	return ok && rt.State() == StateRunning
}

func (r *Runtime) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// State returns the runtime's lifecycle state.
func (r *Runtime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Classpath returns a copy of the classpath the runtime was started with.
func (r *Runtime) Classpath() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.classpath...)
}

// Client returns the RPC transport to the gateway.
func (r *Runtime) Client() *Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.proc == nil {
		return nil
	}
	return r.proc.client
}

// Call issues one gateway RPC, failing fast when the runtime is not running.
func (r *Runtime) Call(ctx context.Context, method string, params, result any) error {
	r.mu.Lock()
	if r.state != StateRunning {
		state := r.state
		r.mu.Unlock()
		return fmt.Errorf("jvm: runtime is %s", state)
	}
	client := r.proc.client
	r.mu.Unlock()
	return client.Call(ctx, method, params, result)
}

// LoadClass resolves a class by fully-qualified name on the active
// classpath. Loading a JDBC driver class registers it with the runtime's
// DriverManager as a side effect.
func (r *Runtime) LoadClass(ctx context.Context, name string) error {
	err := r.Call(ctx, "runtime.loadClass", map[string]string{"name": name}, nil)
	if err == nil {
		r.logger.Debug("loaded class", "name", name)
		return nil
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) && rpcErr.Code == CodeClassNotFound {
		return &ClassNotFoundError{Name: name, Err: err}
	}
	return fmt.Errorf("load class %s: %w", name, err)
}

// Shutdown stops the runtime. Optional; only needed for test isolation.
// After Shutdown the runtime cannot be restarted within this process.
func (r *Runtime) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRunning {
		return nil
	}
	r.state = StateStopped

	var err error
	if r.proc != nil {
		err = r.proc.stop()
	}
	r.logger.Info("embedded runtime stopped")
	return err
}

// resetForTest clears the process-wide registry. Tests only.
func resetForTest() {
	registryMu.Lock()
	defer registryMu.Unlock()
	if active != nil && active.State() == StateRunning {
		_ = active.Shutdown()
	}
	active = nil
}
