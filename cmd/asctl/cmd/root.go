// Package cmd provides the asctl CLI commands.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	policyFile   string
	policyFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "asctl",
	Short: "Access security policy tool",
	Long: `asctl loads and evaluates access security policy files without a
running server: check one client's effective access, dump a policy in
canonical form, or validate a policy file's syntax.

Configuration:
  Flags override a config file (--config), which overrides built-in
  defaults. Environment variables use the ACCESSSECURITY_ prefix.

Commands:
  check          Evaluate one client against a policy
  dump           Print a policy in canonical form
  validate       Parse a policy file and report errors only
  serve-metrics  Expose Prometheus metrics over HTTP
  trace          Load and dump a policy with spans exported to stdout`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogging)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: none, built-in defaults and env only)")
	rootCmd.PersistentFlags().StringVar(&policyFile, "policy", "", "policy file path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&policyFormat, "format", "", "policy format: classic or structured (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn, or error (overrides config)")
}

func initLogging() {
	level := slog.LevelInfo
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
