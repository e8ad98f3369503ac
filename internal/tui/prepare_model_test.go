package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/signwerk/orderprep/internal/adapters/logging"
	"github.com/signwerk/orderprep/internal/domain/step"
	"github.com/signwerk/orderprep/internal/domain/workflow"
	"github.com/signwerk/orderprep/internal/ports"
	"github.com/signwerk/orderprep/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T, svc *mocks.OrderService) prepareModel {
	t.Helper()

	coord := workflow.NewCoordinator(svc, logging.NewNopLogger())
	require.NoError(t, coord.Open(context.Background(), "ord-1"))
	t.Cleanup(coord.Close)

	return newPrepareModel(context.Background(), coord)
}

func TestPrepareModel_Init(t *testing.T) {
	t.Parallel()

	model := newTestModel(t, mocks.NewOrderService())

	cmd := model.Init()
	assert.NotNil(t, cmd, "Init should return a command")
}

func TestPrepareModel_ViewListsAllSteps(t *testing.T) {
	t.Parallel()

	model := newTestModel(t, mocks.NewOrderService())

	view := model.View()

	assert.Contains(t, view, "Preparing order 2026-0001")
	assert.Contains(t, view, "Validate")
	assert.Contains(t, view, "Estimate")
	assert.Contains(t, view, "Documents")
	assert.Contains(t, view, "Accounting Document")
	assert.Contains(t, view, "Tasks")
	assert.Contains(t, view, "Filing")
}

func TestPrepareModel_WindowResize(t *testing.T) {
	t.Parallel()

	model := newTestModel(t, mocks.NewOrderService())

	newModel, _ := model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m := newModel.(prepareModel)

	assert.Equal(t, 120, m.width)
	assert.Equal(t, 40, m.height)
}

func TestPrepareModel_CursorNavigation(t *testing.T) {
	t.Parallel()

	model := newTestModel(t, mocks.NewOrderService())

	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyDown})
	m := newModel.(prepareModel)
	assert.Equal(t, 1, m.cursor)

	newModel, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = newModel.(prepareModel)
	assert.Equal(t, 0, m.cursor)

	// Stays in bounds at the top.
	newModel, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = newModel.(prepareModel)
	assert.Equal(t, 0, m.cursor)
}

func TestPrepareModel_QuitKey(t *testing.T) {
	t.Parallel()

	model := newTestModel(t, mocks.NewOrderService())

	newModel, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m := newModel.(prepareModel)

	assert.True(t, m.quitting)
	assert.NotNil(t, cmd)
}

func TestPrepareModel_RunDisabledStepIsIgnored(t *testing.T) {
	t.Parallel()

	svc := mocks.NewOrderService()
	model := newTestModel(t, svc)

	// Move to the tasks step, whose dependencies are not satisfied yet.
	for i, v := range model.steps {
		if v.ID == step.IDTasks {
			model.cursor = i
		}
	}
	before := svc.CallCount("GenerateTasks")

	newModel, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	m := newModel.(prepareModel)

	assert.Nil(t, cmd)
	assert.Empty(t, m.running)
	assert.Equal(t, before, svc.CallCount("GenerateTasks"))
}

func TestPrepareModel_RunEnabledStepDispatchesCommand(t *testing.T) {
	t.Parallel()

	svc := mocks.NewOrderService()
	model := newTestModel(t, svc)

	// Validate completed during open, so the estimate step is enabled.
	model.cursor = 1
	newModel, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	m := newModel.(prepareModel)

	require.NotNil(t, cmd)
	assert.Equal(t, step.IDEstimate, m.running)

	msg := cmd()
	done, ok := msg.(stepFinishedMsg)
	require.True(t, ok)
	assert.Equal(t, step.IDEstimate, done.id)
	assert.NoError(t, done.err)

	newModel, _ = m.Update(done)
	m = newModel.(prepareModel)
	assert.Empty(t, m.running)
}

func TestPrepareModel_StepFinishedErrorShowsStatus(t *testing.T) {
	t.Parallel()

	model := newTestModel(t, mocks.NewOrderService())
	model.running = step.IDEstimate

	newModel, _ := model.Update(stepFinishedMsg{id: step.IDEstimate, err: workflow.ErrDependencyNotSatisfied})
	m := newModel.(prepareModel)

	assert.Empty(t, m.running)
	assert.Contains(t, m.View(), workflow.ErrDependencyNotSatisfied.Error())
}

func TestPrepareModel_SkipAndUndo(t *testing.T) {
	t.Parallel()

	model := newTestModel(t, mocks.NewOrderService())

	// Move to the estimate step, the only skippable one.
	model.cursor = 1

	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	m := newModel.(prepareModel)
	assert.Equal(t, step.StatusSkipped, m.steps[1].Status)

	newModel, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'u'}})
	m = newModel.(prepareModel)
	assert.Equal(t, step.StatusPending, m.steps[1].Status)
}

func TestPrepareModel_ResolutionPanel(t *testing.T) {
	t.Parallel()

	svc := mocks.NewOrderService()
	svc.GenerateTasksRes = ports.TaskGenerationResult{
		AmbiguousItems: []ports.AmbiguousItem{
			{
				LineID:      "line-1",
				Description: "Channel letters, 40cm",
				Candidates:  []string{"front-lit", "halo-lit", "push-thru"},
				Suggested:   "halo-lit",
			},
		},
	}

	coord := workflow.NewCoordinator(svc, logging.NewNopLogger())
	require.NoError(t, coord.Open(context.Background(), "ord-1"))
	t.Cleanup(coord.Close)

	// Validate completed during open; finish the pipeline up to tasks to
	// trigger the ambiguity.
	ctx := context.Background()
	require.NoError(t, coord.RunStep(ctx, step.IDEstimate))
	require.NoError(t, coord.RunStep(ctx, step.IDDocuments))
	require.NoError(t, coord.RunStep(ctx, step.IDAccountingDocument))
	require.NoError(t, coord.RunStep(ctx, step.IDTasks))
	require.True(t, coord.Resolution().Open())

	model := newPrepareModel(ctx, coord)

	assert.Equal(t, []int{1}, model.choices, "choice should start at the suggested recipe")
	view := model.View()
	assert.Contains(t, view, "Operator resolution required")
	assert.Contains(t, view, "Channel letters, 40cm")
	assert.Contains(t, view, "halo-lit")

	// Cycle to the next recipe and submit.
	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyRight})
	m := newModel.(prepareModel)
	assert.Equal(t, []int{2}, m.choices)

	newModel, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = newModel.(prepareModel)
	require.NotNil(t, cmd)

	msg := cmd()
	done, ok := msg.(resolveFinishedMsg)
	require.True(t, ok)
	assert.NoError(t, done.err)
	assert.Equal(t, []ports.Resolution{{LineID: "line-1", Recipe: "push-thru"}}, svc.LastResolutions)

	newModel, _ = m.Update(done)
	m = newModel.(prepareModel)
	assert.False(t, m.resolution.Open())
}

func TestPrepareModel_ResolutionCancel(t *testing.T) {
	t.Parallel()

	svc := mocks.NewOrderService()
	svc.GenerateTasksRes = ports.TaskGenerationResult{
		AmbiguousItems: []ports.AmbiguousItem{
			{LineID: "line-1", Description: "Logo panel", Candidates: []string{"front-lit", "push-thru"}},
		},
	}

	coord := workflow.NewCoordinator(svc, logging.NewNopLogger())
	require.NoError(t, coord.Open(context.Background(), "ord-1"))
	t.Cleanup(coord.Close)

	ctx := context.Background()
	require.NoError(t, coord.RunStep(ctx, step.IDEstimate))
	require.NoError(t, coord.RunStep(ctx, step.IDDocuments))
	require.NoError(t, coord.RunStep(ctx, step.IDAccountingDocument))
	require.NoError(t, coord.RunStep(ctx, step.IDTasks))

	model := newPrepareModel(ctx, coord)

	newModel, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m := newModel.(prepareModel)
	require.NotNil(t, cmd)

	msg := cmd()
	done, ok := msg.(cancelFinishedMsg)
	require.True(t, ok)
	assert.NoError(t, done.err)

	newModel, _ = m.Update(done)
	m = newModel.(prepareModel)
	assert.False(t, m.resolution.Open())

	tasks, err := coord.View(step.IDTasks)
	require.NoError(t, err)
	assert.Equal(t, step.StatusPending, tasks.Status)
	assert.Equal(t, "Task generation cancelled", tasks.Message)
}
