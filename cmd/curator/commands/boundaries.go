package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/streakhq/curator/internal/contracts"
	"github.com/streakhq/curator/internal/lifecycle"
	"github.com/streakhq/curator/pkg/logger"
)

// boundariesCmd represents the boundaries command
var boundariesCmd = &cobra.Command{
	Use:   "boundaries",
	Short: "Open the instances due at a boundary minute",
	Long: `Runs one lifecycle boundary check.

With --dry-run the candidate instances are printed and nothing is
written. Otherwise they are registered; existing ids are skipped.

Example:
  go run ./cmd/curator boundaries --dry-run
  go run ./cmd/curator boundaries --at 2026-10-15T10:30:00Z`,
	RunE: runBoundaries,
}

var (
	boundariesAt     string
	boundariesDryRun bool
)

func init() {
	rootCmd.AddCommand(boundariesCmd)

	// Flags
	boundariesCmd.Flags().StringVar(&boundariesAt, "at", "", "boundary time in RFC3339 (default now)")
	boundariesCmd.Flags().BoolVar(&boundariesDryRun, "dry-run", false, "print candidates without registering them")
}

func runBoundaries(cmd *cobra.Command, args []string) error {
	now := time.Now().UTC()
	if boundariesAt != "" {
		at, err := time.Parse(time.RFC3339, boundariesAt)
		if err != nil {
			return fmt.Errorf("parse --at: %w", err)
		}
		now = at.UTC()
	}

	if boundariesDryRun {
		candidates, err := lifecycle.Candidates(now)
		if err != nil {
			return err
		}
		printInstances(candidates)
		return nil
	}

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

	opened, err := a.engine.CheckBoundaries(ctx, now)
	printInstances(opened)
	return err
}

func printInstances(instances []contracts.MarketInstance) {
	if len(instances) == 0 {
		fmt.Println("No instances at this boundary")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tSTART\tEND")
	for _, inst := range instances {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			inst.ID, inst.Kind,
			inst.StartTime.Format("15:04"), inst.EndTime.Format("15:04"))
	}
	w.Flush()
}
