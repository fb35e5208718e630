package cmd

import (
	"fmt"

	"github.com/eyoklama/authclient/cmd/authctl/internal/config"
	"github.com/eyoklama/authclient/guard"
	"github.com/eyoklama/authclient/permission"
	"github.com/spf13/cobra"
)

func newGuardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guard ROLE",
		Short: "Check whether the stored session may enter a role-gated view",
		Long: `Evaluates role gating for ROLE (admin, teacher/ogretmen, student/ogrenci)
against the stored session and prints the decision. Exits non-zero on deny.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := permission.ParseRole(args[0])
			if err != nil {
				return fmt.Errorf("%w: %q", err, args[0])
			}
			c, err := config.MustFromContext(cmd.Context()).Provider.Client(cmd.Context())
			if err != nil {
				return err
			}

			d := guard.ForClient(c).CanAccess(role)
			out := cmd.OutOrStdout()
			switch d.Outcome {
			case guard.Allowed:
				fmt.Fprintf(out, "allowed: %s\n", d.Role)
				return nil
			case guard.Pending:
				fmt.Fprintln(out, "pending")
				return d.Err()
			default:
				fmt.Fprintf(out, "deny: redirect %s\n", d.Redirect)
				return d.Err()
			}
		},
	}
}
