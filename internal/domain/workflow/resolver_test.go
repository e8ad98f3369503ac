package workflow

import (
	"testing"

	"github.com/signwerk/orderprep/internal/domain/step"
	"github.com/stretchr/testify/assert"
)

func TestCanRun_AllDependencyStates(t *testing.T) {
	def := step.NewDefinition("filing", 6, step.KindFileFiling,
		[]step.ID{"documents", "accounting-document"}, false)

	tests := []struct {
		name     string
		statuses map[step.ID]step.Status
		want     bool
	}{
		{
			"all completed",
			map[step.ID]step.Status{"documents": step.StatusCompleted, "accounting-document": step.StatusCompleted},
			true,
		},
		{
			"completed and skipped",
			map[step.ID]step.Status{"documents": step.StatusCompleted, "accounting-document": step.StatusSkipped},
			true,
		},
		{
			"one pending",
			map[step.ID]step.Status{"documents": step.StatusCompleted, "accounting-document": step.StatusPending},
			false,
		},
		{
			"one running",
			map[step.ID]step.Status{"documents": step.StatusRunning, "accounting-document": step.StatusCompleted},
			false,
		},
		{
			"one failed",
			map[step.ID]step.Status{"documents": step.StatusFailed, "accounting-document": step.StatusCompleted},
			false,
		},
		{
			"missing dependency record",
			map[step.ID]step.Status{"documents": step.StatusCompleted},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanRun(def, tt.statuses))
		})
	}
}

func TestCanRun_NoDependencies(t *testing.T) {
	def := step.NewDefinition("validate", 1, step.KindValidation, nil, false)
	assert.True(t, CanRun(def, map[step.ID]step.Status{}))
}

func TestCanRun_OwnStatusIrrelevant(t *testing.T) {
	// A failed step stays eligible to retry; only dependencies gate it.
	def := step.NewDefinition("estimate", 2, step.KindAccountingEstimate, []step.ID{"validate"}, true)
	statuses := map[step.ID]step.Status{
		"validate": step.StatusCompleted,
		"estimate": step.StatusFailed,
	}
	assert.True(t, CanRun(def, statuses))
}
