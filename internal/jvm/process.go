package jvm

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// gatewayMainClass is the entry point inside the gateway jar.
const gatewayMainClass = "io.leapstack.jbridge.Gateway"

// startupTimeout bounds how long we wait for the gateway's first ping.
const startupTimeout = 30 * time.Second

// Environment variables consulted when locating the java binary.
const (
	EnvJavaHome       = "JAVA_HOME"
	EnvBridgeJavaHome = "JBRIDGE_JAVA_HOME"
)

// FindJava locates the java binary: explicit path, then JBRIDGE_JAVA_HOME,
// then JAVA_HOME, then PATH.
func FindJava(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("java binary %s: %w", explicit, err)
		}
		return explicit, nil
	}

	for _, env := range []string{EnvBridgeJavaHome, EnvJavaHome} {
		home := os.Getenv(env)
		if home == "" {
			continue
		}
		candidate := filepath.Join(home, "bin", "java")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	path, err := exec.LookPath("java")
	if err != nil {
		return "", fmt.Errorf("java binary not found (set %s or JAVA_HOME): %w", EnvBridgeJavaHome, err)
	}
	return path, nil
}

// process is a running gateway subprocess plus its RPC transport.
type process struct {
	cmd    *exec.Cmd
	client *Client
}

// launcher starts a gateway for the given classpath. Swapped out in tests.
type launcher func(ctx context.Context, javaPath string, jvmArgs, classpath []string, logger *slog.Logger) (*process, error)

// launchGateway execs the JVM with the assembled classpath and performs the
// initial ping handshake.
func launchGateway(ctx context.Context, javaPath string, jvmArgs, classpath []string, logger *slog.Logger) (*process, error) {
	java, err := FindJava(javaPath)
	if err != nil {
		return nil, err
	}

	args := append([]string{}, jvmArgs...)
	args = append(args, "-cp", strings.Join(classpath, string(os.PathListSeparator)), gatewayMainClass)

	cmd := exec.Command(java, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("exec %s: %w", java, err)
	}

	// Forward JVM stderr (driver chatter, GC warnings) to the debug log.
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			logger.Debug("jvm stderr", "line", scanner.Text())
		}
	}()

	client := NewClient(stdout, stdin, logger)

	pingCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	if err := client.Call(pingCtx, "runtime.ping", nil, nil); err != nil {
		_ = client.Close()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("gateway handshake: %w", err)
	}

	logger.Info("embedded runtime started", "java", java, "classpath_entries", len(classpath))
	return &process{cmd: cmd, client: client}, nil
}

// stop terminates the subprocess. The runtime cannot be restarted in this
// process afterwards.
func (p *process) stop() error {
	_ = p.client.Close()
	if p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Kill(); err != nil {
		return err
	}
	_ = p.cmd.Wait()
	return nil
}
