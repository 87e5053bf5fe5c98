package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Cleanup(ResetConfig)
	chdir(t, t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.False(t, cfg.Verbose)
	assert.Empty(t, cfg.CacheDir)
	assert.Empty(t, GetConfigFileUsed())
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Cleanup(ResetConfig)
	dir := t.TempDir()
	chdir(t, dir)

	content := `
cache_dir: /var/cache/jbridge
drivers:
  - postgresql
  - mysql
driver_class: org.postgresql.Driver
url: jdbc:postgresql://localhost/app
output: json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jbridge.yaml"), []byte(content), 0o600))

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "/var/cache/jbridge", cfg.CacheDir)
	assert.Equal(t, []string{"postgresql", "mysql"}, cfg.Drivers)
	assert.Equal(t, "org.postgresql.Driver", cfg.DriverClass)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, "jbridge.yaml", GetConfigFileUsed())
}

func TestLoadConfigExplicitFile(t *testing.T) {
	t.Cleanup(ResetConfig)
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output: csv\n"), 0o600))

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "csv", cfg.OutputFormat)
	assert.Equal(t, path, GetConfigFileUsed())
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	t.Cleanup(ResetConfig)
	dir := t.TempDir()
	chdir(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "jbridge.yaml"), []byte("cache_dir: /from/file\n"), 0o600))
	t.Setenv("JBRIDGE_CACHE_DIR", "/from/env")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.CacheDir)
}

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	t.Cleanup(ResetConfig)
	chdir(t, t.TempDir())

	t.Setenv("JBRIDGE_CACHE_DIR", "/from/env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("cache-dir", "", "")
	flags.String("output", DefaultOutput, "")
	require.NoError(t, flags.Parse([]string{"--cache-dir", "/from/flag"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, "/from/flag", cfg.CacheDir)
	// Unchanged flags do not clobber lower layers.
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
}

func TestLoadConfigBadFile(t *testing.T) {
	t.Cleanup(ResetConfig)
	dir := t.TempDir()
	chdir(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "jbridge.yaml"), []byte(":\nnot yaml: [\n"), 0o600))

	_, err := LoadConfig("", nil)
	assert.Error(t, err)
}

func TestGetCurrentConfigFallback(t *testing.T) {
	t.Cleanup(ResetConfig)
	ResetConfig()

	cfg := GetCurrentConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)

	chdir(t, t.TempDir())
	loaded, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Same(t, loaded, GetCurrentConfig())
}

// chdir changes into dir for the duration of the test, mirroring the
// behavior of testing.T.Chdir from newer Go releases.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
