package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/epics-controls/accesssecurity/internal/calc"
	"github.com/epics-controls/accesssecurity/internal/parser"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse a policy file and report syntax errors only",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		engine, err := calc.NewEngine()
		if err != nil {
			return fmt.Errorf("asctl: %w", err)
		}

		switch cfg.PolicyFormat {
		case "", "classic":
			text, err := os.ReadFile(cfg.PolicyFile)
			if err != nil {
				return err
			}
			_, err = parser.ParseClassic(parser.Options{File: cfg.PolicyFile, Text: string(text), Dict: cfg.Macros, Calc: engine})
			if err != nil {
				return err
			}
		case "structured":
			raw, err := os.ReadFile(cfg.PolicyFile)
			if err != nil {
				return err
			}
			if _, err := parser.ParseStructured(cfg.PolicyFile, raw, engine); err != nil {
				return err
			}
		default:
			return fmt.Errorf("asctl: unknown policy format %q", cfg.PolicyFormat)
		}

		fmt.Println("ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
