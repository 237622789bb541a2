package cmd

import "github.com/epics-controls/accesssecurity/internal/config"

// loadConfig reads the effective config, overlays any non-empty persistent
// flags on top, then validates the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadRaw(cfgFile)
	if err != nil {
		return nil, err
	}
	if policyFile != "" {
		cfg.PolicyFile = policyFile
	}
	if policyFormat != "" {
		cfg.PolicyFormat = policyFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logLevel == "" && cfg.LogLevel != "" {
		logLevel = cfg.LogLevel
		initLogging()
	}
	return cfg, nil
}
