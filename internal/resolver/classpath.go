package resolver

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables understood by the resolver.
const (
	// EnvClasspath lists manual driver jars, separated by the platform
	// path-list separator. Manual entries outrank auto-resolved ones.
	EnvClasspath = "JBRIDGE_CLASSPATH"
	// EnvClasspathAlt is the conventional alternate name, consulted only
	// when EnvClasspath is unset.
	EnvClasspathAlt = "CLASSPATH"
	// EnvCacheDir overrides the driver cache root.
	EnvCacheDir = "JBRIDGE_DRIVER_CACHE"
)

// ManualClasspath reads manual classpath entries from the environment.
// Entries that do not exist on disk are skipped with a warning.
func ManualClasspath(logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	raw := os.Getenv(EnvClasspath)
	if raw == "" {
		raw = os.Getenv(EnvClasspathAlt)
	}
	if raw == "" {
		return nil
	}

	var entries []string
	for _, p := range strings.Split(raw, string(os.PathListSeparator)) {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			logger.Warn("classpath entry not found", "path", p)
			continue
		}
		entries = append(entries, p)
	}
	return entries
}

// MergeClasspath merges manual entries (priority) with auto-resolved ones,
// removing duplicates while keeping the first occurrence.
func MergeClasspath(manual, auto []string) []string {
	seen := make(map[string]struct{}, len(manual)+len(auto))
	merged := make([]string, 0, len(manual)+len(auto))
	for _, p := range append(append([]string{}, manual...), auto...) {
		key := filepath.Clean(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, p)
	}
	return merged
}

// BuildClasspath resolves the given database kinds and merges them behind
// the manual entries. A failed resolution fails the whole build; it never
// silently degrades to a shorter classpath.
func (r *Resolver) BuildClasspath(ctx context.Context, manual []string, kinds []string) ([]string, error) {
	auto := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		art, err := r.Resolve(ctx, kind, false)
		if err != nil {
			return nil, err
		}
		auto = append(auto, art.Path)
	}
	return MergeClasspath(manual, auto), nil
}
