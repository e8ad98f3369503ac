package main

import (
	"context"
	"fmt"
	"os"

	"github.com/signwerk/orderprep/internal/domain/step"
	"github.com/signwerk/orderprep/internal/domain/workflow"
	"github.com/spf13/cobra"
)

var runSkips []string

var runCmd = &cobra.Command{
	Use:   "run <order-id> <step>",
	Short: "Run a single preparation step without the interactive screen",
	Long: `Run opens the order, runs one preparation step, and prints the
resulting pipeline state.

Steps that the order's payment type auto-skips stay skipped. Use --skip
to mark additional skippable steps before running, so a step whose
dependency you want to bypass becomes runnable.`,
	Args: cobra.ExactArgs(2),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVar(&runSkips, "skip", nil, "skippable steps to mark skipped first")

	_ = runCmd.RegisterFlagCompletionFunc("skip", completeStepIDs)
}

func runRun(cmd *cobra.Command, args []string) error {
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

	for _, s := range runSkips {
		if err := coord.Skip(step.ID(s)); err != nil {
			return fmt.Errorf("skip step %s: %w", s, err)
		}
	}

	id := step.ID(args[1])
	runErr := coord.RunStep(ctx, id)

	printViews(os.Stdout, coord.Views())

	if res := coord.Resolution(); res.Open() {
		fmt.Fprintln(os.Stdout)
		fmt.Fprintf(os.Stdout, "%d line items need recipe resolution; run `orderprep prepare %s` to resolve them.\n",
			len(res.Items), args[0])
	}

	return runErr
}

// completeStepIDs completes step arguments with the standard pipeline.
func completeStepIDs(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	defs := step.DefinitionsFor(step.TypeStandard)
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.ID().String())
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
