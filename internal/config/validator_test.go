package config

import (
	"strings"
	"testing"
)

// minimalValidConfig returns a minimal valid Config for testing.
func minimalValidConfig() Config {
	cfg := Defaults()
	cfg.PolicyFile = "/etc/asctl/policy.acf"
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestValidate_MissingPolicyFile(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.PolicyFile = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() with no policy_file should fail")
	}
	if !strings.Contains(err.Error(), "PolicyFile") {
		t.Errorf("Validate() error = %v, want it to mention PolicyFile", err)
	}
}

func TestValidate_BadPolicyFormat(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.PolicyFormat = "xml"

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() with policy_format=xml should fail")
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.LogLevel = "verbose"

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() with an unknown log_level should fail")
	}
}

func TestValidate_BadCacheSize(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.CacheSize = -1

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() with a negative cache_size should fail")
	}
}

func TestValidate_BadTrapWriteBackend(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.TrapWrite.Backend = "postgres"

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() with an unknown trap_write backend should fail")
	}
}

func TestValidate_SQLiteBackendRequiresPath(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.TrapWrite.Backend = "sqlite"
	cfg.TrapWrite.SQLitePath = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() with backend=sqlite and no sqlite_path should fail")
	}
}

func TestValidate_SQLiteBackendWithPath(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.TrapWrite.Backend = "sqlite"
	cfg.TrapWrite.SQLitePath = "/var/lib/asctl/audit.db"

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}
