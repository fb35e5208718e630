package cmd

import (
	authclient "github.com/eyoklama/authclient"
	"github.com/eyoklama/authclient/cmd/authctl/internal/config"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cfgCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration as YAML, secrets masked",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.MustFromContext(cmd.Context()).Provider.Config()
				if err != nil {
					return err
				}
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(cfg); err != nil {
					return err
				}
				return enc.Close()
			},
		},
		&cobra.Command{
			Use:   "lint",
			Short: "Report risky settings",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.MustFromContext(cmd.Context()).Provider.Config()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				warnings := cfg.Lint()
				if len(warnings) == 0 {
					pterm.Success.WithWriter(out).Println("No warnings")
					return nil
				}
				data := pterm.TableData{{"CODE", "SEVERITY", "MESSAGE"}}
				for _, w := range warnings {
					sev := "info"
					if w.Severity == authclient.LintWarn {
						sev = "warn"
					}
					data = append(data, []string{w.Code, sev, w.Message})
				}
				return pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(data).Render()
			},
		},
	)
	return cfgCmd
}
