package roles

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/tripflow-core/server/internal/planner/model"
	"github.com/tripflow-core/server/internal/planner/prompts"
	logx "github.com/tripflow-core/server/pkg/logger"
)

// LLMGenerator implements the primary reasoning role. All four call
// sites run through one completion path and differ only in the prompt
// rendered and the shape decoded from the reply.
type LLMGenerator struct {
	completer       model.Completer
	maxAttempts     int
	historyMaxTurns int
	now             func() time.Time
}

// NewGenerator builds the generation role over the given capability.
func NewGenerator(c model.Completer, cfg model.PlannerConfig) *LLMGenerator {
	return &LLMGenerator{
		completer:       c,
		maxAttempts:     normalizeAttempts(cfg.RoleMaxAttempts),
		historyMaxTurns: cfg.HistoryMaxTurns,
		now:             time.Now,
	}
}

func (g *LLMGenerator) today() string {
	return g.now().Format(model.DateLayout)
}

type slotExtraction struct {
	Origin         string `json:"origin"`
	Destination    string `json:"destination"`
	DepartDate     string `json:"depart_date"`
	ReturnDate     string `json:"return_date"`
	PassengerCount any    `json:"passenger_count"`
	TransportPref  string `json:"transport_pref"`
	HotelTier      string `json:"hotel_tier"`
}

// ExtractSlots merges parameters mentioned anywhere in the conversation
// into the given slot values. Existing values survive unless the model
// reports a replacement.
func (g *LLMGenerator) ExtractSlots(ctx context.Context, history []*schema.Message, slots map[string]string) (map[string]string, error) {
	prompt, err := prompts.RenderSlotExtract(ctx, g.today(), slots, historyText(history, g.historyMaxTurns))
	if err != nil {
		return nil, err
	}

	var out slotExtraction
	if err := completeJSON(ctx, g.completer, g.maxAttempts, prompt, &out); err != nil {
		return nil, err
	}

	merged := make(map[string]string, len(slots))
	for k, v := range slots {
		merged[k] = v
	}
	setIf(merged, model.SlotOrigin, out.Origin)
	setIf(merged, model.SlotDestination, out.Destination)
	setIf(merged, model.SlotDepartDate, out.DepartDate)
	setIf(merged, model.SlotReturnDate, out.ReturnDate)
	setIf(merged, model.SlotPassengerCount, anyToString(out.PassengerCount))
	setIf(merged, model.SlotTransportPref, out.TransportPref)
	setIf(merged, model.SlotHotelTier, out.HotelTier)

	logx.Debug().Interface("slots", merged).Msg("Slots extracted")
	return merged, nil
}

type decomposedTask struct {
	Description string         `json:"description"`
	Tool        string         `json:"tool"`
	Params      map[string]any `json:"params"`
	DependsOn   []int          `json:"depends_on"`
}

type decomposition struct {
	Tasks []decomposedTask `json:"tasks"`
}

// DecomposeTasks maps validated slots to tool invocations. Dependencies
// arrive as indexes into the model's own list and are rewritten to task
// IDs; out-of-range indexes are dropped.
func (g *LLMGenerator) DecomposeTasks(ctx context.Context, slots map[string]string) ([]*model.Task, error) {
	prompt, err := prompts.RenderTaskDecompose(ctx, g.today(), slots)
	if err != nil {
		return nil, err
	}

	var out decomposition
	if err := completeJSON(ctx, g.completer, g.maxAttempts, prompt, &out); err != nil {
		return nil, err
	}
	if len(out.Tasks) == 0 {
		return nil, fmt.Errorf("decomposition produced no tasks")
	}

	tasks := make([]*model.Task, 0, len(out.Tasks))
	for i, dt := range out.Tasks {
		if strings.TrimSpace(dt.Tool) == "" {
			continue
		}
		params := dt.Params
		if params == nil {
			params = map[string]any{}
		}
		tasks = append(tasks, &model.Task{
			ID:          fmt.Sprintf("task_%d", i),
			Description: dt.Description,
			Tool:        strings.TrimSpace(dt.Tool),
			Params:      params,
			Status:      model.TaskPending,
		})
	}
	for i, dt := range out.Tasks {
		if i >= len(tasks) {
			break
		}
		for _, dep := range dt.DependsOn {
			if dep >= 0 && dep < len(tasks) && dep != i {
				tasks[i].DependsOn = append(tasks[i].DependsOn, tasks[dep].ID)
			}
		}
	}

	logx.Debug().Int("task_count", len(tasks)).Msg("Tasks decomposed")
	return tasks, nil
}

type correctionReply struct {
	Params map[string]any `json:"params"`
	Reason string         `json:"reason"`
}

// CorrectParameters proposes a repaired parameter set for a failed
// task. A nil Correction with nil error means the model judged the
// failure unrepairable.
func (g *LLMGenerator) CorrectParameters(ctx context.Context, task *model.Task, errText string) (*model.Correction, error) {
	prompt, err := prompts.RenderParamCorrect(ctx, g.today(), task.Description, task.Params, errText)
	if err != nil {
		return nil, err
	}

	var out correctionReply
	if err := completeJSON(ctx, g.completer, g.maxAttempts, prompt, &out); err != nil {
		return nil, err
	}
	if len(out.Params) == 0 {
		logx.Debug().Str("task_id", task.ID).Msg("No correction produced")
		return nil, nil
	}

	merged := make(map[string]any, len(task.Params)+len(out.Params))
	for k, v := range task.Params {
		merged[k] = v
	}
	for k, v := range out.Params {
		merged[k] = v
	}

	logx.Info().
		Str("task_id", task.ID).
		Str("reason", out.Reason).
		Interface("params", merged).
		Msg("Parameters corrected")
	return &model.Correction{TaskID: task.ID, Params: merged, Reason: out.Reason}, nil
}

// ComposeClarification turns a failing slot verdict into one friendly
// question for the user.
func (g *LLMGenerator) ComposeClarification(ctx context.Context, verdict model.Verdict) (string, error) {
	var critical, optional []string
	for _, name := range verdict.Missing {
		if model.IsCriticalSlot(name) {
			critical = append(critical, name)
		} else {
			optional = append(optional, name)
		}
	}

	prompt, err := prompts.RenderClarify(ctx, critical, optional, verdict.Reasons)
	if err != nil {
		return "", err
	}

	msg, err := completeText(ctx, g.completer, g.maxAttempts, prompt)
	if err != nil {
		return "", err
	}
	return msg, nil
}

// ComposeItinerary synthesizes validated results and notes for
// abandoned tasks into the final plan text.
func (g *LLMGenerator) ComposeItinerary(ctx context.Context, slots map[string]string, results []model.ToolResult, abandoned []*model.Task) (string, error) {
	var rb strings.Builder
	for _, r := range results {
		rb.WriteString(fmt.Sprintf("[%s]\n%s\n\n", r.Tool, r.Payload))
	}
	var notes []string
	for _, t := range abandoned {
		notes = append(notes, fmt.Sprintf("%s (%s)", t.Description, t.Tool))
	}

	prompt, err := prompts.RenderItinerary(ctx, g.today(), slots, strings.TrimSpace(rb.String()), strings.Join(notes, "; "))
	if err != nil {
		return "", err
	}
	return completeText(ctx, g.completer, g.maxAttempts, prompt)
}

func setIf(m map[string]string, key, value string) {
	value = strings.TrimSpace(value)
	if value != "" {
		m[key] = value
	}
}

func anyToString(v any) string {
	switch vv := v.(type) {
	case nil:
		return ""
	case string:
		return vv
	case float64:
		// JSON numbers decode as float64
		return strconv.Itoa(int(vv))
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

var _ model.Generator = (*LLMGenerator)(nil)
