package roles

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/tripflow-core/server/internal/planner/model"
)

type fakeCompleter struct {
	replies []string
	errs    []error
	calls   int
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, msgs []*schema.Message) (*schema.Message, error) {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, msgs[len(msgs)-1].Content)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	reply := ""
	if i < len(f.replies) {
		reply = f.replies[i]
	} else if len(f.replies) > 0 {
		reply = f.replies[len(f.replies)-1]
	}
	return schema.AssistantMessage(reply, nil), nil
}

var testCfg = model.PlannerConfig{RoleMaxAttempts: 2, HistoryMaxTurns: 10}

func TestExtractSlotsMergesOverExisting(t *testing.T) {
	c := &fakeCompleter{replies: []string{
		`{"origin":"Beijing","destination":"Shanghai","depart_date":"2026-04-01","passenger_count":2}`,
	}}
	g := NewGenerator(c, testCfg)

	existing := map[string]string{model.SlotHotelTier: "luxury"}
	history := []*schema.Message{schema.UserMessage("Beijing to Shanghai on April 1st, two of us")}

	got, err := g.ExtractSlots(context.Background(), history, existing)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		model.SlotOrigin:         "Beijing",
		model.SlotDestination:    "Shanghai",
		model.SlotDepartDate:     "2026-04-01",
		model.SlotPassengerCount: "2",
		model.SlotHotelTier:      "luxury",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("slot %s = %q, want %q", k, got[k], v)
		}
	}
	if !strings.Contains(c.prompts[0], "Beijing to Shanghai") {
		t.Error("conversation history not rendered into the prompt")
	}
}

func TestDecomposeTasksRewritesDependencies(t *testing.T) {
	c := &fakeCompleter{replies: []string{"```json\n" +
		`{"tasks":[` +
		`{"description":"find trains","tool":"train_query","params":{"origin":"Beijing"}},` +
		`{"description":"find hotels","tool":"hotel_query","params":{"city":"Shanghai"},"depends_on":[0,7,1]}` +
		`]}` + "\n```"}}
	g := NewGenerator(c, testCfg)

	tasks, err := g.DecomposeTasks(context.Background(), map[string]string{model.SlotOrigin: "Beijing"})
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(tasks))
	}
	if tasks[0].ID != "task_0" || tasks[1].ID != "task_1" {
		t.Errorf("IDs = %s, %s", tasks[0].ID, tasks[1].ID)
	}
	// Index 7 is out of range and index 1 is the task itself; only the
	// reference to the first task survives.
	if len(tasks[1].DependsOn) != 1 || tasks[1].DependsOn[0] != "task_0" {
		t.Errorf("DependsOn = %v, want [task_0]", tasks[1].DependsOn)
	}
	for _, task := range tasks {
		if task.Status != model.TaskPending {
			t.Errorf("task %s status = %s", task.ID, task.Status)
		}
	}
}

func TestDecomposeTasksSkipsBlankTools(t *testing.T) {
	c := &fakeCompleter{replies: []string{
		`{"tasks":[{"description":"think about it","tool":"","params":{}},{"description":"find trains","tool":"train_query","params":{}}]}`,
	}}
	g := NewGenerator(c, testCfg)

	tasks, err := g.DecomposeTasks(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].Tool != "train_query" {
		t.Fatalf("tasks = %+v, want only train_query", tasks)
	}
}

func TestDecomposeTasksEmptyPlanIsAnError(t *testing.T) {
	c := &fakeCompleter{replies: []string{`{"tasks":[]}`}}
	g := NewGenerator(c, testCfg)
	if _, err := g.DecomposeTasks(context.Background(), nil); err == nil {
		t.Error("expected error for empty decomposition")
	}
}

func TestCorrectParametersMergesOverOriginal(t *testing.T) {
	c := &fakeCompleter{replies: []string{
		`{"params":{"date":"2026-04-02"},"reason":"date was in the past"}`,
	}}
	g := NewGenerator(c, testCfg)

	task := &model.Task{
		ID:     "task_0",
		Tool:   "train_query",
		Params: map[string]any{"origin": "Beijing", "date": "2020-01-01"},
	}
	corr, err := g.CorrectParameters(context.Background(), task, "departure date cannot be earlier than today")
	if err != nil {
		t.Fatal(err)
	}
	if corr == nil {
		t.Fatal("expected a correction")
	}
	if corr.Params["origin"] != "Beijing" {
		t.Errorf("untouched param lost: %v", corr.Params)
	}
	if corr.Params["date"] != "2026-04-02" {
		t.Errorf("date = %v, want corrected value", corr.Params["date"])
	}
}

func TestCorrectParametersEmptyMeansUnrepairable(t *testing.T) {
	c := &fakeCompleter{replies: []string{`{"params":{},"reason":"nothing to fix"}`}}
	g := NewGenerator(c, testCfg)

	corr, err := g.CorrectParameters(context.Background(), &model.Task{ID: "task_0"}, "boom")
	if err != nil {
		t.Fatal(err)
	}
	if corr != nil {
		t.Errorf("correction = %+v, want nil", corr)
	}
}

func TestComposeClarificationSplitsCriticalFromOptional(t *testing.T) {
	c := &fakeCompleter{replies: []string{"Where are you headed, and any hotel preference?"}}
	g := NewGenerator(c, testCfg)

	got, err := g.ComposeClarification(context.Background(), model.Verdict{
		Missing: []string{model.SlotDestination, model.SlotHotelTier},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "Where are you headed, and any hotel preference?" {
		t.Errorf("clarification = %q", got)
	}
	prompt := c.prompts[0]
	if !strings.Contains(prompt, model.SlotDestination) || !strings.Contains(prompt, model.SlotHotelTier) {
		t.Errorf("prompt missing slot names:\n%s", prompt)
	}
}

func TestComposeItineraryIncludesResultsAndNotes(t *testing.T) {
	c := &fakeCompleter{replies: []string{"Your trip plan."}}
	g := NewGenerator(c, testCfg)

	results := []model.ToolResult{
		{TaskID: "task_0", Tool: "train_query", OK: true, Payload: `{"trains":[{"train_no":"G101"}]}`},
	}
	abandoned := []*model.Task{{ID: "task_1", Description: "find hotels", Tool: "hotel_query"}}

	got, err := g.ComposeItinerary(context.Background(), map[string]string{model.SlotOrigin: "Beijing"}, results, abandoned)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Your trip plan." {
		t.Errorf("itinerary = %q", got)
	}
	prompt := c.prompts[0]
	if !strings.Contains(prompt, "G101") {
		t.Error("tool payload not rendered into the prompt")
	}
	if !strings.Contains(prompt, "find hotels") {
		t.Error("abandoned task note not rendered into the prompt")
	}
}

func TestRoleRetriesMalformedReplies(t *testing.T) {
	c := &fakeCompleter{replies: []string{
		"sorry, here is your answer in prose",
		`{"origin":"Beijing"}`,
	}}
	g := NewGenerator(c, testCfg)

	got, err := g.ExtractSlots(context.Background(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.calls != 2 {
		t.Errorf("completer calls = %d, want 2", c.calls)
	}
	if got[model.SlotOrigin] != "Beijing" {
		t.Errorf("slots = %v", got)
	}
}

func TestRoleGivesUpAfterAttemptBudget(t *testing.T) {
	c := &fakeCompleter{errs: []error{errors.New("backend down"), errors.New("backend down")}}
	g := NewGenerator(c, testCfg)

	if _, err := g.ExtractSlots(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error after exhausted attempts")
	}
	if c.calls != 2 {
		t.Errorf("completer calls = %d, want 2", c.calls)
	}
}
