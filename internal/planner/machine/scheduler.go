package machine

import "github.com/tripflow-core/server/internal/planner/model"

// Decision is the scheduler's verdict for a single task attempt.
type Decision string

const (
	DecisionAccept              Decision = "ACCEPT"
	DecisionRetryWithCorrection Decision = "RETRY_WITH_CORRECTION"
	DecisionRetrySameParameters Decision = "RETRY_SAME_PARAMETERS"
	DecisionAbandon             Decision = "ABANDON"
)

// Decide maps one task attempt's outcome to a scheduling decision. It is
// a pure function of its inputs: no clock, no randomness, no state.
//
// A passing attempt is accepted. A failing attempt is abandoned once the
// attempt budget is spent or the tool does not exist. Parameter errors
// retry only when a corrected parameter set is available; retrying the
// same bad parameters cannot succeed. Transient failures retry with the
// same parameters and burn down the budget.
func Decide(ok bool, kind model.ErrorKind, attempts, maxAttempts int, hasCorrection bool) Decision {
	if ok {
		return DecisionAccept
	}
	if attempts >= maxAttempts {
		return DecisionAbandon
	}
	if kind == model.ErrKindUnknownTool {
		return DecisionAbandon
	}
	if hasCorrection {
		return DecisionRetryWithCorrection
	}
	if kind == model.ErrKindBadParameters {
		return DecisionAbandon
	}
	return DecisionRetrySameParameters
}

// Settled reports whether every task has reached a terminal status, so
// the run can move to final integration.
func Settled(tasks []*model.Task) bool {
	for _, t := range tasks {
		switch t.Status {
		case model.TaskSucceeded, model.TaskFailed, model.TaskAbandoned:
		default:
			return false
		}
	}
	return true
}
