package commands

import (
	"bytes"
	"testing"

	"github.com/leapstack-labs/jbridge/internal/cli/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriversListEmptyCache(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	t.Setenv("JBRIDGE_DRIVER_CACHE", t.TempDir())

	cmd := NewDriversCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"list"})
	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "postgresql")
	assert.Contains(t, out, "org.postgresql:postgresql:")
	assert.Contains(t, out, "(0 jars)")
}

func TestDriversFetchRequiresKinds(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cmd := NewDriversCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"fetch"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no driver kinds given")
}

func TestOutputFormat(t *testing.T) {
	cfg := &config.Config{OutputFormat: "json"}
	assert.Equal(t, "csv", outputFormat(cfg, "csv"), "local flag wins")
	assert.Equal(t, "json", outputFormat(cfg, ""))
	assert.Equal(t, config.DefaultOutput, outputFormat(&config.Config{}, ""))
}
