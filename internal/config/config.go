// Package config provides the ambient configuration layer: the two
// behavioral flags the core itself defines (as_active, as_check_client_ip)
// plus the knobs needed to load and run it as a standalone process via
// cmd/asctl — policy source location, macro substitutions, cache sizing,
// and optional telemetry/metrics/persistence toggles.
//
// This is intentionally small: the access-control core has no server, no
// session storage, no auth layer of its own — those are out of scope per
// the core's own specification. What's here is only what a harness needs
// to load a policy file and expose the facade.
package config

// Config is the top-level configuration for an asctl-driven process.
type Config struct {
	// Active mirrors the as_active flag (§6): when false, every check_*
	// predicate is true regardless of policy.
	Active bool `yaml:"active" mapstructure:"active"`

	// CheckClientIP selects HAG host-matching mode (§4.C): false compares
	// host literals by name, true resolves HAGs to IPs at load time and
	// compares the client host (an IPv4 dotted quad) against those.
	CheckClientIP bool `yaml:"check_client_ip" mapstructure:"check_client_ip"`

	// PolicyFile is the path to the classic or structured-form policy
	// source. Required.
	PolicyFile string `yaml:"policy_file" mapstructure:"policy_file" validate:"required"`

	// PolicyFormat selects the surface syntax: "classic" or "structured".
	// Default "classic".
	PolicyFormat string `yaml:"policy_format" mapstructure:"policy_format" validate:"omitempty,oneof=classic structured"`

	// Macros is the substitution dictionary for $(name) references in
	// classic-form policy text.
	Macros map[string]string `yaml:"macros" mapstructure:"macros"`

	// CacheSize bounds the evaluator's decision cache, one LRU shared by
	// all ASGs. Default 1000.
	CacheSize int `yaml:"cache_size" mapstructure:"cache_size" validate:"omitempty,min=1"`

	// LogLevel is one of debug, info, warn, error. Default "info".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`

	TrapWrite TrapWriteConfig `yaml:"trap_write" mapstructure:"trap_write"`
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
}

// TrapWriteConfig selects and configures the audit event backing store.
type TrapWriteConfig struct {
	// Backend is "memory" (default) or "sqlite".
	Backend string `yaml:"backend" mapstructure:"backend" validate:"omitempty,oneof=memory sqlite"`
	// MemoryCapacity bounds the in-memory ring buffer. Default 1000.
	MemoryCapacity int `yaml:"memory_capacity" mapstructure:"memory_capacity" validate:"omitempty,min=1"`
	// SQLitePath is the database file path when Backend is "sqlite".
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path" validate:"required_if=Backend sqlite"`
}

// TelemetryConfig holds the telemetry switch. Enabled is loaded but not
// read by any code path: the evaluator and notifier are not instrumented,
// and asctl's trace subcommand builds its stdout telemetry regardless.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// MetricsConfig controls Prometheus metrics registration.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// Defaults returns a Config with every optional field at its default
// value; callers overlay file/env/flag values on top of this.
func Defaults() Config {
	return Config{
		Active:        true,
		CheckClientIP: false,
		PolicyFormat:  "classic",
		CacheSize:     1000,
		LogLevel:      "info",
		TrapWrite: TrapWriteConfig{
			Backend:        "memory",
			MemoryCapacity: 1000,
		},
	}
}
