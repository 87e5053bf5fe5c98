package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/jbridge/internal/cli/config"
	"github.com/leapstack-labs/jbridge/internal/resolver"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// fetchConcurrency bounds parallel downloads in drivers fetch.
const fetchConcurrency = 4

// NewDriversCommand creates the drivers command group.
func NewDriversCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drivers",
		Short: "Manage the JDBC driver cache",
		Long: `Inspect and manage the local cache of JDBC driver jars.

Drivers are downloaded from Maven Central on first use and kept under
~/.jbridge/drivers (override with JBRIDGE_DRIVER_CACHE).`,
	}

	cmd.AddCommand(newDriversListCommand())
	cmd.AddCommand(newDriversFetchCommand())
	cmd.AddCommand(newDriversClearCommand())
	return cmd
}

func newDriversListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known drivers and their cache status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.GetCurrentConfig()
			res := newResolver(cfg, commandLogger(cmd))

			cached, err := res.CachedArtifacts()
			if err != nil {
				return fmt.Errorf("read driver cache: %w", err)
			}
			cachedSet := make(map[string]bool, len(cached))
			for _, artifact := range cached {
				cachedSet[artifact.Path] = true
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Kind", "Coordinate", "Cached"})

			for _, kind := range resolver.Kinds() {
				coord, ok := resolver.Lookup(kind)
				if !ok {
					continue
				}
				status := ""
				if cachedSet[res.ArtifactPath(coord)] {
					status = "yes"
				}
				t.AppendRow(table.Row{kind, coord.String(), status})
			}
			t.Render()

			fmt.Fprintf(cmd.OutOrStdout(), "\nCache: %s (%d jars)\n", res.Dir(), len(cached))
			return nil
		},
	}
}

func newDriversFetchCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "fetch [kind...]",
		Short: "Download driver jars into the cache",
		Long: `Download the named driver kinds (e.g. postgresql mysql) into the
local cache so later connections start without network access. With no
arguments, the kinds from the configuration's drivers list are fetched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetCurrentConfig()
			res := newResolver(cfg, commandLogger(cmd))

			kinds := args
			if len(kinds) == 0 {
				kinds = cfg.Drivers
			}
			if len(kinds) == 0 {
				return fmt.Errorf("no driver kinds given; known kinds: %s", strings.Join(resolver.Kinds(), ", "))
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(fetchConcurrency)
			for _, kind := range kinds {
				kind := kind
				g.Go(func() error {
					artifact, err := res.Resolve(ctx, kind, force)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", kind, artifact.Path)
					return nil
				})
			}
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Re-download even when cached")
	return cmd
}

func newDriversClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all cached driver jars",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.GetCurrentConfig()
			res := newResolver(cfg, commandLogger(cmd))

			removed, err := res.ClearCache()
			if err != nil {
				return fmt.Errorf("clear driver cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d jars from %s\n", removed, res.Dir())
			return nil
		},
	}
}
