package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := Defaults()

	if !cfg.Active {
		t.Error("Active should default to true")
	}
	if cfg.CheckClientIP {
		t.Error("CheckClientIP should default to false")
	}
	if cfg.PolicyFormat != "classic" {
		t.Errorf("PolicyFormat = %q, want %q", cfg.PolicyFormat, "classic")
	}
	if cfg.CacheSize != 1000 {
		t.Errorf("CacheSize = %d, want 1000", cfg.CacheSize)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.TrapWrite.Backend != "memory" {
		t.Errorf("TrapWrite.Backend = %q, want %q", cfg.TrapWrite.Backend, "memory")
	}
	if cfg.TrapWrite.MemoryCapacity != 1000 {
		t.Errorf("TrapWrite.MemoryCapacity = %d, want 1000", cfg.TrapWrite.MemoryCapacity)
	}
}

func TestLoadRaw_NoFile(t *testing.T) {
	t.Parallel()

	cfg, err := LoadRaw("")
	if err != nil {
		t.Fatalf("LoadRaw(\"\") unexpected error: %v", err)
	}
	if cfg.PolicyFormat != "classic" {
		t.Errorf("PolicyFormat = %q, want default %q", cfg.PolicyFormat, "classic")
	}
	if cfg.CacheSize != 1000 {
		t.Errorf("CacheSize = %d, want default 1000", cfg.CacheSize)
	}
}

func TestLoadRaw_FileOverridesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "asctl.yaml")
	body := "policy_file: /tmp/policy.acf\npolicy_format: structured\ncache_size: 42\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := LoadRaw(cfgPath)
	if err != nil {
		t.Fatalf("LoadRaw(%q) unexpected error: %v", cfgPath, err)
	}
	if cfg.PolicyFile != "/tmp/policy.acf" {
		t.Errorf("PolicyFile = %q, want %q", cfg.PolicyFile, "/tmp/policy.acf")
	}
	if cfg.PolicyFormat != "structured" {
		t.Errorf("PolicyFormat = %q, want %q", cfg.PolicyFormat, "structured")
	}
	if cfg.CacheSize != 42 {
		t.Errorf("CacheSize = %d, want 42", cfg.CacheSize)
	}
	// Fields the file doesn't touch keep their defaults.
	if cfg.TrapWrite.Backend != "memory" {
		t.Errorf("TrapWrite.Backend = %q, want untouched default %q", cfg.TrapWrite.Backend, "memory")
	}
}

func TestLoadRaw_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "asctl.yaml")
	body := "policy_file: /tmp/policy.acf\ncache_size: 42\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("ACCESSSECURITY_CACHE_SIZE", "7")

	cfg, err := LoadRaw(cfgPath)
	if err != nil {
		t.Fatalf("LoadRaw(%q) unexpected error: %v", cfgPath, err)
	}
	if cfg.CacheSize != 7 {
		t.Errorf("CacheSize = %d, want 7 (env override)", cfg.CacheSize)
	}
}

func TestLoadRaw_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadRaw(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("LoadRaw with a missing config file should fail")
	}
}

func TestLoad_ValidatesResult(t *testing.T) {
	t.Parallel()

	// No policy_file set anywhere: PolicyFile is required, so Load must
	// surface the validation error rather than silently loading.
	_, err := Load("")
	if err == nil {
		t.Fatal("Load() with no policy_file configured should fail validation")
	}
}

func TestLoad_Succeeds(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "asctl.yaml")
	body := "policy_file: /tmp/policy.acf\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load(%q) unexpected error: %v", cfgPath, err)
	}
	if cfg.PolicyFile != "/tmp/policy.acf" {
		t.Errorf("PolicyFile = %q, want %q", cfg.PolicyFile, "/tmp/policy.acf")
	}
}
