package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/epics-controls/accesssecurity/internal/telemetry"
	"github.com/epics-controls/accesssecurity/pkg/accesssecurity"
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Load and dump a policy with spans and metrics exported to stdout",
	Long: `Loads the configured policy inside a traced span and prints its
canonical dump, exporting OpenTelemetry spans and metrics to stdout as it
goes. Useful for inspecting what a future collector-backed deployment
would see without standing one up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		tel, err := telemetry.NewStdout(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tel.Shutdown(ctx) }()

		ctx, span := tel.Tracer.Start(ctx, "asctl.trace")
		defer span.End()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		_, loadSpan := tel.Tracer.Start(ctx, "accesssecurity.New")
		p, err := accesssecurity.New(*cfg)
		loadSpan.End()
		if err != nil {
			return err
		}

		fmt.Print(p.Dump())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(traceCmd)
}
