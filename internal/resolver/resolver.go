package resolver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// jarMagic is the ZIP local-file-header signature every jar starts with.
var jarMagic = []byte{'P', 'K', 0x03, 0x04}

// downloadAttempts bounds the retry loop for a single Resolve call.
const downloadAttempts = 3

// Artifact is a verified jar in the local cache. It is never handed out
// before passing verification.
type Artifact struct {
	Coordinate Coordinate
	Path       string
}

// DownloadError is returned when an artifact cannot be fetched or fails
// post-download verification. It never degrades to an empty classpath.
type DownloadError struct {
	Coordinate Coordinate
	URL        string
	Err        error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s from %s: %v", e.Coordinate, e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// UnknownKindError is returned for a database kind with no known coordinate.
type UnknownKindError struct {
	Kind      string
	Available []string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("no recommended driver for database kind %q (available: %v)", e.Kind, e.Available)
}

// Config holds resolver configuration.
type Config struct {
	// CacheDir overrides the driver cache directory. Empty uses
	// JBRIDGE_DRIVER_CACHE or ~/.jbridge/drivers.
	CacheDir string
	// HTTPClient overrides the download client (tests).
	HTTPClient *http.Client
	// BaseURL overrides the artifact repository root (tests).
	BaseURL string
	// Logger is the structured logger (nil uses discard).
	Logger *slog.Logger
}

// Resolver fetches driver jars into an on-disk cache. It is safe for
// concurrent use; concurrent resolution of the same coordinate across
// processes is tolerated via unique temp names plus atomic rename.
type Resolver struct {
	cacheDir string
	client   *http.Client
	baseURL  string
	logger   *slog.Logger
}

// New creates a resolver.
func New(cfg Config) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	dir := cfg.CacheDir
	if dir == "" {
		dir = CacheDir()
	}
	return &Resolver{
		cacheDir: dir,
		client:   client,
		baseURL:  cfg.BaseURL,
		logger:   logger,
	}
}

// CacheDir returns the driver cache directory: the JBRIDGE_DRIVER_CACHE
// environment variable if set, else ~/.jbridge/drivers.
func CacheDir() string {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Last resort: a cache relative to the working directory.
		return filepath.Join(".jbridge", "drivers")
	}
	return filepath.Join(home, ".jbridge", "drivers")
}

// Dir returns the cache directory this resolver reads and writes.
func (r *Resolver) Dir() string { return r.cacheDir }

// ArtifactPath returns where a coordinate lives in the cache, whether or
// not it is present.
func (r *Resolver) ArtifactPath(coord Coordinate) string {
	return filepath.Join(r.cacheDir, coord.Filename())
}

// Resolve returns the cached jar for a database kind, downloading it on a
// cache miss. With force=true the cached copy is replaced unconditionally.
func (r *Resolver) Resolve(ctx context.Context, kind string, force bool) (Artifact, error) {
	coord, ok := Lookup(kind)
	if !ok {
		return Artifact{}, &UnknownKindError{Kind: kind, Available: Kinds()}
	}
	return r.ResolveCoordinate(ctx, coord, force)
}

// ResolveCoordinate resolves an explicit coordinate through the cache.
func (r *Resolver) ResolveCoordinate(ctx context.Context, coord Coordinate, force bool) (Artifact, error) {
	target := filepath.Join(r.cacheDir, coord.Filename())

	if !force {
		if err := verifyJar(target); err == nil {
			r.logger.Debug("driver cache hit", "coordinate", coord.String(), "path", target)
			return Artifact{Coordinate: coord, Path: target}, nil
		}
	}

	if err := r.download(ctx, coord, target); err != nil {
		return Artifact{}, err
	}
	if err := verifyJar(target); err != nil {
		return Artifact{}, &DownloadError{Coordinate: coord, URL: r.url(coord), Err: err}
	}

	return Artifact{Coordinate: coord, Path: target}, nil
}

func (r *Resolver) url(coord Coordinate) string {
	if r.baseURL == "" {
		return coord.URL()
	}
	groupPath := filepath.ToSlash(filepath.Join(splitGroup(coord.GroupID)...))
	return fmt.Sprintf("%s/%s/%s/%s/%s", r.baseURL, groupPath, coord.ArtifactID, coord.Version, coord.Filename())
}

func splitGroup(groupID string) []string {
	var parts []string
	start := 0
	for i := 0; i <= len(groupID); i++ {
		if i == len(groupID) || groupID[i] == '.' {
			parts = append(parts, groupID[start:i])
			start = i + 1
		}
	}
	return parts
}

// download streams the artifact to a uniquely named temp file in the cache
// directory and renames it into place so readers never observe a partial
// jar. Transient failures are retried with backoff.
func (r *Resolver) download(ctx context.Context, coord Coordinate, target string) error {
	if err := os.MkdirAll(r.cacheDir, 0o750); err != nil {
		return &DownloadError{Coordinate: coord, URL: r.url(coord), Err: err}
	}

	url := r.url(coord)
	r.logger.Info("downloading driver", "coordinate", coord.String(), "url", url)

	backoff := retry.WithMaxRetries(downloadAttempts-1, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return retry.RetryableError(r.fetchOnce(ctx, url, target))
	})
	if err != nil {
		return &DownloadError{Coordinate: coord, URL: url, Err: err}
	}

	r.logger.Info("driver downloaded", "coordinate", coord.String(), "path", target)
	return nil
}

func (r *Resolver) fetchOnce(ctx context.Context, url, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	// Unique temp name per attempt: concurrent resolvers of the same
	// coordinate never collide, and rename within one directory is atomic.
	tmp := filepath.Join(r.cacheDir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(target), uuid.NewString()))
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// verifyJar checks that path is a plausible jar: a non-empty regular file
// starting with the ZIP signature.
func verifyJar(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: not a regular file", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s: empty file", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	magic := make([]byte, len(jarMagic))
	if _, err := io.ReadFull(f, magic); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if !bytes.Equal(magic, jarMagic) {
		return fmt.Errorf("%s: not a jar (bad signature)", path)
	}
	return nil
}

// CachedArtifacts lists verified jars currently in the cache.
func (r *Resolver) CachedArtifacts() ([]Artifact, error) {
	entries, err := os.ReadDir(r.cacheDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []Artifact
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".jar" {
			continue
		}
		path := filepath.Join(r.cacheDir, entry.Name())
		if verifyJar(path) != nil {
			continue
		}
		out = append(out, Artifact{Path: path})
	}
	return out, nil
}

// ClearCache deletes all cached jars and returns how many were removed.
// Each kind maps to exactly one file, so no eviction policy is needed.
func (r *Resolver) ClearCache() (int, error) {
	entries, err := os.ReadDir(r.cacheDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".jar" {
			continue
		}
		path := filepath.Join(r.cacheDir, entry.Name())
		if err := os.Remove(path); err != nil {
			r.logger.Warn("failed to delete cached driver", "path", path, "error", err)
			continue
		}
		r.logger.Debug("deleted cached driver", "path", path)
		count++
	}
	return count, nil
}
