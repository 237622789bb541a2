package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from configFile (if non-empty), environment
// variables prefixed ACCESSSECURITY_, and Defaults(), and validates it.
// Env beats file and file beats default (Viper's normal rule once both
// are registered against the same keys).
func Load(configFile string) (*Config, error) {
	cfg, err := LoadRaw(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadRaw is Load without the final Validate call, for callers (asctl's
// flags) that still need to overlay values before the required-field
// checks run.
func LoadRaw(configFile string) (*Config, error) {
	v := viper.New()
	applyDefaults(v, Defaults())

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	v.SetEnvPrefix("ACCESSSECURITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper, d Config) {
	v.SetDefault("active", d.Active)
	v.SetDefault("check_client_ip", d.CheckClientIP)
	v.SetDefault("policy_format", d.PolicyFormat)
	v.SetDefault("cache_size", d.CacheSize)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("trap_write.backend", d.TrapWrite.Backend)
	v.SetDefault("trap_write.memory_capacity", d.TrapWrite.MemoryCapacity)
}
