// Package config provides configuration management for the jbridge CLI.
package config

// Config holds all CLI configuration options.
type Config struct {
	// CacheDir overrides the driver cache root.
	CacheDir string `koanf:"cache_dir"`
	// Classpath lists extra jar paths merged before auto-resolved drivers.
	Classpath []string `koanf:"classpath"`
	// JavaPath points at the java binary; empty triggers discovery.
	JavaPath string `koanf:"java"`
	// JVMArgs are extra arguments for the embedded runtime.
	JVMArgs []string `koanf:"jvm_args"`
	// Drivers lists driver kinds to auto-resolve (e.g. postgresql).
	Drivers []string `koanf:"drivers"`

	// Connection defaults for the query command.
	DriverClass string `koanf:"driver_class"`
	URL         string `koanf:"url"`
	User        string `koanf:"user"`
	Password    string `koanf:"password"`

	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`
}

// Default configuration values.
const (
	DefaultOutput = "table"
)
