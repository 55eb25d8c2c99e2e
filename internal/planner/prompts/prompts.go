package prompts

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/slot_extract.txt
var slotExtractTmpl string

//go:embed template/slot_validate.txt
var slotValidateTmpl string

//go:embed template/task_decompose.txt
var taskDecomposeTmpl string

//go:embed template/result_validate.txt
var resultValidateTmpl string

//go:embed template/param_correct.txt
var paramCorrectTmpl string

//go:embed template/clarify.txt
var clarifyTmpl string

//go:embed template/itinerary.txt
var itineraryTmpl string

// render substitutes known tokens only, then routes the finished text
// through the Eino prompt component so prompt callbacks fire. Token
// replacement stays outside the component to avoid interfering with
// the JSON braces the templates contain.
func render(ctx context.Context, tmpl string, tokens ...string) (string, error) {
	content := strings.NewReplacer(tokens...).Replace(tmpl)

	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(content)},
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("render prompt: empty result")
	}
	return msgs[0].Content, nil
}

func jsonBlock(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func listBlock(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return "- " + strings.Join(items, "\n- ")
}

// RenderSlotExtract builds the slot extraction prompt for the generator.
func RenderSlotExtract(ctx context.Context, today string, slots map[string]string, history string) (string, error) {
	if history == "" {
		history = "(no prior conversation)"
	}
	return render(ctx, slotExtractTmpl,
		"{today}", today,
		"{slots}", jsonBlock(slots),
		"{history}", history,
	)
}

// RenderSlotValidate builds the slot completeness judgment prompt for the validator.
func RenderSlotValidate(ctx context.Context, today string, slots map[string]string) (string, error) {
	return render(ctx, slotValidateTmpl,
		"{today}", today,
		"{slots}", jsonBlock(slots),
	)
}

// RenderTaskDecompose builds the task decomposition prompt for the generator.
func RenderTaskDecompose(ctx context.Context, today string, slots map[string]string) (string, error) {
	return render(ctx, taskDecomposeTmpl,
		"{today}", today,
		"{slots}", jsonBlock(slots),
	)
}

// RenderResultValidate builds the tool-result judgment prompt for the validator.
func RenderResultValidate(ctx context.Context, task, payload string) (string, error) {
	if strings.TrimSpace(payload) == "" {
		payload = "(empty output)"
	}
	return render(ctx, resultValidateTmpl,
		"{task}", task,
		"{payload}", payload,
	)
}

// RenderParamCorrect builds the parameter repair prompt for the generator.
func RenderParamCorrect(ctx context.Context, today, task string, params map[string]any, errText string) (string, error) {
	return render(ctx, paramCorrectTmpl,
		"{today}", today,
		"{task}", task,
		"{params}", jsonBlock(params),
		"{error}", errText,
	)
}

// RenderClarify builds the user clarification prompt for the generator.
func RenderClarify(ctx context.Context, critical, optional, reasons []string) (string, error) {
	return render(ctx, clarifyTmpl,
		"{critical}", listBlock(critical),
		"{optional}", listBlock(optional),
		"{reasons}", listBlock(reasons),
	)
}

// RenderItinerary builds the final integration prompt for the generator.
func RenderItinerary(ctx context.Context, today string, slots map[string]string, results, unavailable string) (string, error) {
	if strings.TrimSpace(unavailable) == "" {
		unavailable = "(none)"
	}
	return render(ctx, itineraryTmpl,
		"{today}", today,
		"{slots}", jsonBlock(slots),
		"{results}", results,
		"{unavailable}", unavailable,
	)
}
