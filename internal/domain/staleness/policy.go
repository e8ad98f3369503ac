package staleness

import (
	"fmt"

	"github.com/signwerk/orderprep/internal/domain/step"
)

// Evaluate applies the per-kind staleness policy.
//
// label names the artifact in user-facing messages ("Estimate",
// "Documents", ...). generatedThisSession reports whether the operator
// explicitly ran the step in the current workflow session; it guards
// the production-task policy against resurrecting a cancelled
// generation as falsely done.
//
// Staleness only adjudicates among pending and completed: a step that
// is currently running, failed or skipped is never touched.
func Evaluate(kind step.Kind, current step.Status, label string, probe Probe, generatedThisSession bool) Outcome {
	if current == step.StatusRunning || current == step.StatusFailed || current == step.StatusSkipped {
		return Unchanged()
	}

	switch kind {
	case step.KindAccountingEstimate, step.KindDocumentSet:
		return evaluateHard(label, probe)
	case step.KindProductionTasks:
		return evaluateTasks(current, probe, generatedThisSession)
	default:
		// Validation re-runs on every opening and filing is gated by the
		// dependency resolver alone; neither compares hashes.
		return Unchanged()
	}
}

// evaluateHard gates completion on freshness: a stale artifact is not
// done, even if the step previously completed.
func evaluateHard(label string, probe Probe) Outcome {
	switch {
	case !probe.Exists:
		return statusAndMessage(step.StatusPending, "")
	case probe.Fresh():
		return statusAndMessage(step.StatusCompleted, fmt.Sprintf("✓ %s is up-to-date", label))
	default:
		return statusAndMessage(step.StatusPending, fmt.Sprintf("⚠ %s is stale — order data has changed", label))
	}
}

// evaluateTasks never downgrades completion: task records may carry
// in-progress work that must not appear to regress.
func evaluateTasks(current step.Status, probe Probe, generatedThisSession bool) Outcome {
	switch {
	case !probe.Exists:
		return messageOnly("")
	case probe.Fresh():
		out := messageOnly(fmt.Sprintf("✓ %d tasks exist", probe.TaskCount))
		// Only a generation the operator triggered in this session may
		// complete the step; tasks left over from an earlier or cancelled
		// session merely report their existence.
		if generatedThisSession && current == step.StatusPending {
			out.Status = step.StatusCompleted
			out.SetStatus = true
		}
		return out
	default:
		return messageOnly(fmt.Sprintf("⚠ %d tasks may be outdated (order data changed)", probe.TaskCount))
	}
}
