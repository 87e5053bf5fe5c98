// Package commands implements the jbridge subcommands.
package commands

import (
	"log/slog"

	"github.com/leapstack-labs/jbridge/internal/cli/config"
	"github.com/leapstack-labs/jbridge/internal/resolver"
	"github.com/spf13/cobra"
)

// newResolver builds a resolver from the loaded configuration.
func newResolver(cfg *config.Config, logger *slog.Logger) *resolver.Resolver {
	return resolver.New(resolver.Config{
		CacheDir: cfg.CacheDir,
		Logger:   logger,
	})
}

// commandLogger retrieves the logger stored by the root command.
func commandLogger(cmd *cobra.Command) *slog.Logger {
	return config.GetLogger(cmd.Context())
}

// outputFormat resolves the effective output format for a command,
// preferring a command-local --format flag over the global setting.
func outputFormat(cfg *config.Config, local string) string {
	if local != "" {
		return local
	}
	if cfg.OutputFormat != "" {
		return cfg.OutputFormat
	}
	return config.DefaultOutput
}
