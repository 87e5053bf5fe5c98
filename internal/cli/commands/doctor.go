package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/leapstack-labs/jbridge/internal/cli/config"
	"github.com/leapstack-labs/jbridge/internal/jvm"
	"github.com/leapstack-labs/jbridge/internal/resolver"
	"github.com/spf13/cobra"
)

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	Format string // Output format: text, json
}

// HealthCheck represents a single environment check result.
type HealthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "pass", "warn", "fail"
	Details string `json:"details"`
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Checks  []HealthCheck `json:"checks"`
	Healthy bool          `json:"healthy"`
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment for bridge prerequisites",
		Long: `Check that the environment can run the bridge: a usable java binary,
a writable driver cache, and well-formed classpath settings.`,
		Example: `  # Run environment checks
  jbridge doctor

  # Output as JSON
  jbridge doctor --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json")
	return cmd
}

func runDoctor(cmd *cobra.Command, opts *DoctorOptions) error {
	cfg := config.GetCurrentConfig()
	out := buildDoctorOutput(cfg)

	if opts.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for _, check := range out.Checks {
		marker := "ok "
		switch check.Status {
		case "warn":
			marker = "warn"
		case "fail":
			marker = "FAIL"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %-16s %s\n", marker, check.Name, check.Details)
	}
	if !out.Healthy {
		return fmt.Errorf("environment checks failed")
	}
	return nil
}

func buildDoctorOutput(cfg *config.Config) *DoctorOutput {
	out := &DoctorOutput{Healthy: true}
	add := func(name, status, details string) {
		out.Checks = append(out.Checks, HealthCheck{Name: name, Status: status, Details: details})
		if status == "fail" {
			out.Healthy = false
		}
	}

	// Java binary
	if java, err := jvm.FindJava(cfg.JavaPath); err != nil {
		add("java", "fail", err.Error())
	} else {
		add("java", "pass", java)
	}

	// Driver cache
	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = resolver.CacheDir()
	}
	if err := os.MkdirAll(cacheDir, 0o750); err != nil {
		add("driver cache", "fail", fmt.Sprintf("%s: %v", cacheDir, err))
	} else {
		add("driver cache", "pass", cacheDir)
	}

	// Manual classpath
	raw := os.Getenv(resolver.EnvClasspath)
	if raw == "" {
		raw = os.Getenv(resolver.EnvClasspathAlt)
	}
	if raw == "" {
		add("classpath", "pass", "no manual entries")
	} else {
		entries := resolver.ManualClasspath(nil)
		add("classpath", "pass", fmt.Sprintf("%d usable entries", len(entries)))
	}

	// Runtime state
	if jvm.IsStarted() {
		add("runtime", "pass", "embedded runtime running")
	} else {
		add("runtime", "pass", "not started (starts on first connection)")
	}

	return out
}
