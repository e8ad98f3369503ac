package main

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/signwerk/orderprep/internal/domain/step"
	"github.com/signwerk/orderprep/internal/domain/workflow"
	"github.com/signwerk/orderprep/internal/tui/ui"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <order-id>",
	Short: "Show the preparation state of an order",
	Long: `Status opens the order, checks every artifact against the current
order data, and prints the pipeline state without changing anything
beyond the initial validation.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	order := coord.Order()
	fmt.Fprintf(cmd.OutOrStdout(), "Order %s (%s)\n\n", order.Reference, order.PaymentType)
	printViews(cmd.OutOrStdout(), coord.Views())
	return nil
}

var (
	statusGlyphStyles = map[step.Status]lipgloss.Style{
		step.StatusCompleted: lipgloss.NewStyle().Foreground(ui.ColorSuccess),
		step.StatusFailed:    lipgloss.NewStyle().Foreground(ui.ColorError),
		step.StatusSkipped:   lipgloss.NewStyle().Foreground(ui.ColorMuted),
		step.StatusPending:   lipgloss.NewStyle().Foreground(ui.ColorMuted),
		step.StatusRunning:   lipgloss.NewStyle().Foreground(ui.ColorPrimary),
	}
	statusTitleStyle = lipgloss.NewStyle().Width(20)
	statusMutedStyle = lipgloss.NewStyle().Foreground(ui.ColorMuted)
	statusErrorStyle = lipgloss.NewStyle().Foreground(ui.ColorError)
)

func statusGlyph(s step.Status) string {
	glyph := map[step.Status]string{
		step.StatusCompleted: "✓",
		step.StatusFailed:    "✗",
		step.StatusSkipped:   "-",
		step.StatusPending:   "·",
		step.StatusRunning:   "…",
	}[s]
	if glyph == "" {
		glyph = "?"
	}
	return statusGlyphStyles[s].Render(glyph)
}

// printViews renders one line per step: glyph, title, status, detail.
func printViews(w io.Writer, views []workflow.StepView) {
	for _, v := range views {
		detail := v.Message
		if v.Status == step.StatusFailed && v.Error != "" {
			detail = statusErrorStyle.Render(v.Error)
		}
		fmt.Fprintf(w, "  %s %s %-10s %s\n",
			statusGlyph(v.Status),
			statusTitleStyle.Render(v.Title),
			v.Status.String(),
			detail)
		for _, fe := range v.FieldErrors {
			fmt.Fprintf(w, "      %s\n", statusErrorStyle.Render(fmt.Sprintf("%s: %s", fe.Field, fe.Message)))
		}
		if !v.Enabled && v.Status == step.StatusPending {
			fmt.Fprintf(w, "      %s\n", statusMutedStyle.Render("waiting on dependencies"))
		}
	}
}
