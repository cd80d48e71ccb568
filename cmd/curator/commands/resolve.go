package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/streakhq/curator/pkg/logger"
)

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve <instance-id>",
	Short: "Judge one market instance now",
	Long: `Runs the judge on one instance and prints the verdict.

Scheduled instances are resolved from exchange candles. Curator
instances need the expected outcome confirmed by an operator.
Needs DATABASE_URL to see instances opened by a running server.

Example:
  go run ./cmd/curator resolve flash_BTC_USDT_20261015_1000
  go run ./cmd/curator resolve curator_3f6c... --expected YES`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

var (
	resolveExpected string
)

func init() {
	rootCmd.AddCommand(resolveCmd)

	// Flags
	resolveCmd.Flags().StringVar(&resolveExpected, "expected", "", "operator-confirmed outcome for curator instances")
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.engine.ResolveInstance(ctx, args[0], resolveExpected)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", args[0], err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
