package roles

import (
	"context"
	"strings"
	"testing"

	"github.com/tripflow-core/server/internal/planner/model"
)

func TestValidateSlotsVerdictMapping(t *testing.T) {
	c := &fakeCompleter{replies: []string{
		`{"pass":false,"missing":["depart_date"],"reasons":["no travel date given"],"prompt":"When do you want to leave?"}`,
	}}
	v := NewValidator(c, testCfg)

	got, err := v.ValidateSlots(context.Background(), map[string]string{
		model.SlotOrigin:      "Beijing",
		model.SlotDestination: "Shanghai",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Pass {
		t.Error("verdict passed with a missing critical slot")
	}
	if len(got.Missing) != 1 || got.Missing[0] != model.SlotDepartDate {
		t.Errorf("missing = %v", got.Missing)
	}
	if got.Prompt != "When do you want to leave?" {
		t.Errorf("prompt = %q", got.Prompt)
	}
	if !strings.Contains(c.prompts[0], "Beijing") {
		t.Error("slot values not rendered into the prompt")
	}
}

func TestValidateSlotsPass(t *testing.T) {
	c := &fakeCompleter{replies: []string{`{"pass":true}`}}
	v := NewValidator(c, testCfg)

	got, err := v.ValidateSlots(context.Background(), map[string]string{
		model.SlotOrigin:      "Beijing",
		model.SlotDestination: "Shanghai",
		model.SlotDepartDate:  "2026-04-01",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !got.Pass {
		t.Errorf("verdict = %+v, want pass", got)
	}
}

func TestValidateResultJudgesPayload(t *testing.T) {
	c := &fakeCompleter{replies: []string{
		`{"pass":false,"reasons":["result lists no trains for the requested day"]}`,
	}}
	v := NewValidator(c, testCfg)

	result := model.ToolResult{TaskID: "task_0", Tool: "train_query", OK: true, Payload: `{"trains":[]}`}
	got, err := v.ValidateResult(context.Background(), "find trains to Shanghai", result)
	if err != nil {
		t.Fatal(err)
	}
	if got.Pass {
		t.Error("empty result accepted")
	}
	if len(got.Reasons) != 1 {
		t.Errorf("reasons = %v", got.Reasons)
	}
	if !strings.Contains(c.prompts[0], "find trains to Shanghai") {
		t.Error("task description not rendered into the prompt")
	}
}
