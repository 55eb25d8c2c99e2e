package machine

import (
	"testing"

	"github.com/tripflow-core/server/internal/planner/model"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name          string
		ok            bool
		kind          model.ErrorKind
		attempts      int
		hasCorrection bool
		want          Decision
	}{
		{"success accepted", true, "", 1, false, DecisionAccept},
		{"success accepted even on last attempt", true, "", 3, false, DecisionAccept},
		{"budget exhausted abandons", false, model.ErrKindTimeout, 3, false, DecisionAbandon},
		{"budget exhausted abandons despite correction", false, model.ErrKindBadParameters, 3, true, DecisionAbandon},
		{"unknown tool never retried", false, model.ErrKindUnknownTool, 1, false, DecisionAbandon},
		{"bad parameters with correction retries corrected", false, model.ErrKindBadParameters, 1, true, DecisionRetryWithCorrection},
		{"bad parameters without correction abandons", false, model.ErrKindBadParameters, 1, false, DecisionAbandon},
		{"timeout retries same parameters", false, model.ErrKindTimeout, 1, false, DecisionRetrySameParameters},
		{"remote failure retries same parameters", false, model.ErrKindRemoteFailure, 2, false, DecisionRetrySameParameters},
		{"remote failure with correction retries corrected", false, model.ErrKindRemoteFailure, 1, true, DecisionRetryWithCorrection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.ok, tt.kind, tt.attempts, 3, tt.hasCorrection)
			if got != tt.want {
				t.Errorf("Decide() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecideIsPure(t *testing.T) {
	for i := 0; i < 5; i++ {
		if got := Decide(false, model.ErrKindTimeout, 1, 3, false); got != DecisionRetrySameParameters {
			t.Fatalf("call %d: Decide() = %v", i, got)
		}
	}
}

func TestSettled(t *testing.T) {
	tasks := []*model.Task{
		{ID: "task_0", Status: model.TaskSucceeded},
		{ID: "task_1", Status: model.TaskPending},
	}
	if Settled(tasks) {
		t.Error("Settled() = true with a pending task")
	}
	tasks[1].Status = model.TaskFailed
	if !Settled(tasks) {
		t.Error("Settled() = false with a failed task")
	}
	tasks[1].Status = model.TaskAbandoned
	if !Settled(tasks) {
		t.Error("Settled() = false with all tasks terminal")
	}
	if !Settled(nil) {
		t.Error("Settled(nil) = false")
	}
}
