package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/epics-controls/accesssecurity/pkg/accesssecurity"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Load a policy and print it in canonical form",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p, err := accesssecurity.New(*cfg)
		if err != nil {
			return err
		}
		fmt.Print(p.Dump())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
