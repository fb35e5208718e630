package cmd

import (
	"fmt"
	"os"

	authclient "github.com/eyoklama/authclient"
	"github.com/eyoklama/authclient/cmd/authctl/internal/client"
	"github.com/eyoklama/authclient/cmd/authctl/internal/config"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath     string
	envFiles       []string
	serverURL      string
	storage        string
	storageDir     string
	nonInteractive bool
}

// NewRootCmd assembles the authctl command tree.
func NewRootCmd() *cobra.Command {
	var flags rootFlags
	var provider *client.Provider

	root := &cobra.Command{
		Use:   "authctl",
		Short: "authctl - session client for the attendance API",
		Long: `authctl logs in to the attendance API, keeps the session on disk,
and sends authorized requests that survive an access token expiry.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if os.Getenv("AUTHCTL_NON_INTERACTIVE") == "1" {
				flags.nonInteractive = true
			}
			provider = client.NewProvider(flags.configPath, flags.envFiles, func(cfg *authclient.Config) {
				if flags.serverURL != "" {
					cfg.API.BaseURL = flags.serverURL
				}
				if flags.storage != "" {
					cfg.Storage.Backend = flags.storage
				}
				if flags.storageDir != "" {
					cfg.Storage.Dir = flags.storageDir
				}
			})
			cmd.SetContext(config.InjectConfig(cmd.Context(), &config.GlobalConfig{
				NonInteractive: flags.nonInteractive,
				Provider:       provider,
				Stdin:          cmd.InOrStdin(),
			}))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return provider.Close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "YAML configuration file")
	pf.StringSliceVar(&flags.envFiles, "env-file", []string{".env"}, "dotenv files loaded before reading AUTHCLIENT_* variables")
	pf.StringVar(&flags.serverURL, "server", "", "attendance API base URL (overrides config)")
	pf.StringVar(&flags.storage, "storage", "", "credential storage backend: memory, file, redis, sqlite")
	pf.StringVar(&flags.storageDir, "storage-dir", "", "directory for the file storage backend")
	pf.BoolVar(&flags.nonInteractive, "non-interactive", false, "disable prompts (also set via AUTHCTL_NON_INTERACTIVE=1)")

	root.AddCommand(
		newAuthCmd(),
		newRequestCmd(),
		newGuardCmd(),
		newBurstCmd(),
		newConfigCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
