package main

import (
	"context"
	"fmt"

	"github.com/signwerk/orderprep/internal/domain/workflow"
	"github.com/signwerk/orderprep/internal/tui"
	"github.com/spf13/cobra"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare <order-id>",
	Short: "Interactively prepare an order for production",
	Long: `Prepare opens the interactive preparation screen for one order.

The screen shows every preparation step with its current state, runs
steps on demand, and walks you through recipe resolution when task
generation finds ambiguous line items.`,
	Args: cobra.ExactArgs(1),
	RunE: runPrepare,
}

func init() {
	rootCmd.AddCommand(prepareCmd)
}

func runPrepare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	coord := workflow.NewCoordinator(newOrderService(cfg), newLogger(cfg))
	if err := coord.Open(ctx, args[0]); err != nil {
		return fmt.Errorf("open order %s: %w", args[0], err)
	}
	defer coord.Close()

	_, err = tui.RunPrepare(ctx, coord)
	return err
}
