package commands

// Root command. Registers the sync service and the snapshot readers.

import (
	"github.com/spf13/cobra"

	"wrapsync/internal/infra/config"
	logging "wrapsync/internal/infra/log"
)

var rootCmd = &cobra.Command{
	Use:   "wrapsync",
	Short: "Background state sync for the token wrapper app",
	Long: `wrapsync follows the wrapper app's token contract on chain and keeps a cached
snapshot of its settings, total supply and holders up to date.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(holdersCmd)
}

// loadConfig reads the configuration and starts file logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := logging.Init(logging.Options{Dir: cfg.App.LogDir, Level: cfg.App.LogLevel}); err != nil {
		return nil, err
	}
	return cfg, nil
}
