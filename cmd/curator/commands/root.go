package commands

import (
	"github.com/spf13/cobra"

	"github.com/streakhq/curator/pkg/config"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "curator",
	Short: "Streak Curator - autonomous market generation and settlement",
	Long: `Streak Curator CLI

Watches price and social signals, drafts prediction markets,
opens fixed-schedule game instances and settles them.

Usage:
  go run ./cmd/curator [command]

Examples:
  go run ./cmd/curator serve
  go run ./cmd/curator serve --config curator.toml
  go run ./cmd/curator boundaries --dry-run
  go run ./cmd/curator resolve flash_BTC_USDT_20261015_1000`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "curator TOML file (environment still overrides it)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig reads the TOML file named by --config plus the environment
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}
