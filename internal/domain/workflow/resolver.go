package workflow

import "github.com/signwerk/orderprep/internal/domain/step"

// CanRun reports whether a step is eligible to run: every dependency
// must be completed or skipped. A step never gates on its own status; a
// failed step is always eligible to retry once its dependencies are
// satisfied. The check is evaluated on demand, never cached, because a
// sibling's staleness refresh can change dependency status at any time.
func CanRun(def step.Definition, statuses map[step.ID]step.Status) bool {
	for _, dep := range def.DependsOn() {
		if !statuses[dep].Terminal() {
			return false
		}
	}
	return true
}
