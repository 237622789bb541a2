package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/epics-controls/accesssecurity/internal/model"
	"github.com/epics-controls/accesssecurity/pkg/accesssecurity"
)

var (
	checkASG       string
	checkUser      string
	checkHost      string
	checkMethod    string
	checkAuthority string
	checkLevel     int
	checkTLS       string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate one client's effective access against a policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p, err := accesssecurity.New(*cfg)
		if err != nil {
			return err
		}

		tls := model.TLSUnset
		switch checkTLS {
		case "true":
			tls = model.TLSTrue
		case "false":
			tls = model.TLSFalse
		}

		m := p.AddMember(checkASG, nil)
		c, err := p.AddClientX(m, checkLevel, checkUser, checkHost, checkMethod, checkAuthority, tls)
		if err != nil {
			return err
		}

		fmt.Printf("access: %s (mask=%03b get=%t put=%t rpc=%t)\n",
			c.Access, c.Access.Mask(), p.CheckGet(c), p.CheckPut(c), p.CheckRPC(c))
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkASG, "asg", "DEFAULT", "ASG name to attach the client's member to")
	checkCmd.Flags().StringVar(&checkUser, "user", "", "client user name")
	checkCmd.Flags().StringVar(&checkHost, "host", "", "client host (name or, with check_client_ip set in the config, dotted IPv4)")
	checkCmd.Flags().StringVar(&checkMethod, "method", "", "client authentication method")
	checkCmd.Flags().StringVar(&checkAuthority, "authority", "", "client authentication authority")
	checkCmd.Flags().IntVar(&checkLevel, "level", 0, "client access level")
	checkCmd.Flags().StringVar(&checkTLS, "tls", "", "client TLS state: true, false, or unset (default)")
	rootCmd.AddCommand(checkCmd)
}
