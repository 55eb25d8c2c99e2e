package roles

import (
	"context"
	"time"

	"github.com/tripflow-core/server/internal/planner/model"
	"github.com/tripflow-core/server/internal/planner/prompts"
	logx "github.com/tripflow-core/server/pkg/logger"
)

// LLMValidator implements the judging role. It shares the generator's
// completion mechanics but runs on its own backend so a wrong
// extraction is never confirmed by the model that produced it.
type LLMValidator struct {
	completer   model.Completer
	maxAttempts int
	now         func() time.Time
}

// NewValidator builds the validation role over the given capability.
func NewValidator(c model.Completer, cfg model.PlannerConfig) *LLMValidator {
	return &LLMValidator{
		completer:   c,
		maxAttempts: normalizeAttempts(cfg.RoleMaxAttempts),
		now:         time.Now,
	}
}

type verdictReply struct {
	Pass    bool     `json:"pass"`
	Missing []string `json:"missing"`
	Reasons []string `json:"reasons"`
	Prompt  string   `json:"prompt"`
}

// ValidateSlots judges whether the slot mapping is complete and
// plausible enough to plan from.
func (v *LLMValidator) ValidateSlots(ctx context.Context, slots map[string]string) (model.Verdict, error) {
	prompt, err := prompts.RenderSlotValidate(ctx, v.now().Format(model.DateLayout), slots)
	if err != nil {
		return model.Verdict{}, err
	}

	var out verdictReply
	if err := completeJSON(ctx, v.completer, v.maxAttempts, prompt, &out); err != nil {
		return model.Verdict{}, err
	}

	logx.Debug().
		Bool("pass", out.Pass).
		Strs("missing", out.Missing).
		Msg("Slot validation verdict")
	return model.Verdict{Pass: out.Pass, Missing: out.Missing, Reasons: out.Reasons, Prompt: out.Prompt}, nil
}

// ValidateResult judges one tool result for semantic plausibility.
// Transport-level failures never reach this point; the state machine
// fails those directly from the result's error kind.
func (v *LLMValidator) ValidateResult(ctx context.Context, taskDescription string, result model.ToolResult) (model.Verdict, error) {
	prompt, err := prompts.RenderResultValidate(ctx, taskDescription, result.Payload)
	if err != nil {
		return model.Verdict{}, err
	}

	var out verdictReply
	if err := completeJSON(ctx, v.completer, v.maxAttempts, prompt, &out); err != nil {
		return model.Verdict{}, err
	}

	logx.Debug().
		Str("task_id", result.TaskID).
		Bool("pass", out.Pass).
		Msg("Result validation verdict")
	return model.Verdict{Pass: out.Pass, Reasons: out.Reasons}, nil
}

var _ model.Validator = (*LLMValidator)(nil)
