// Package tui provides the interactive terminal front end for order
// preparation.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/signwerk/orderprep/internal/domain/workflow"
)

// PrepareResult carries the outcome of an interactive session.
type PrepareResult struct {
	Cancelled bool
}

// RunPrepare runs the interactive preparation screen over an already
// opened coordinator. It blocks until the operator quits.
func RunPrepare(ctx context.Context, coord *workflow.Coordinator) (*PrepareResult, error) {
	model := newPrepareModel(ctx, coord)

	p := tea.NewProgram(model, tea.WithContext(ctx))
	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("preparation screen failed: %w", err)
	}

	m, ok := finalModel.(prepareModel)
	if !ok {
		return nil, fmt.Errorf("unexpected model type")
	}

	return &PrepareResult{Cancelled: m.quitting && m.running != ""}, nil
}
