package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/tripflow-core/server/internal/planner/model"
	logx "github.com/tripflow-core/server/pkg/logger"
)

const defaultTimeout = 30 * time.Second

// Gateway invokes registered tools with structured parameters and
// normalizes whatever comes back. Ordinary remote failures (timeouts,
// bad parameters, empty results) surface inside the ToolResult; only
// an unregistered name is an unrecoverable condition, and even that is
// reported through the result rather than thrown.
type Gateway struct {
	registry *Registry
}

func New(registry *Registry) *Gateway {
	return &Gateway{registry: registry}
}

// Invoke runs one tool call: schema-validate the parameters, dispatch
// with the tool's timeout, decode the envelope.
func (g *Gateway) Invoke(ctx context.Context, taskID, toolName string, params map[string]any) model.ToolResult {
	reg, ok := g.registry.lookup(toolName)
	if !ok {
		logx.Error().Str("tool", toolName).Str("task_id", taskID).Msg("Unknown tool requested")
		return model.ErrResult(taskID, toolName, model.ErrKindUnknownTool, fmt.Sprintf("tool %q is not registered", toolName))
	}

	if msg := validateParams(reg.Schema, params); msg != "" {
		logx.Warn().
			Str("tool", toolName).
			Str("task_id", taskID).
			Str("violation", msg).
			Msg("Parameters rejected by schema")
		return model.ErrResult(taskID, toolName, model.ErrKindBadParameters, msg)
	}

	argsJSON, err := json.Marshal(params)
	if err != nil {
		return model.ErrResult(taskID, toolName, model.ErrKindBadParameters, fmt.Sprintf("parameters not serializable: %v", err))
	}

	timeout := reg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logx.Debug().
		Str("tool", toolName).
		Str("task_id", taskID).
		RawJSON("params", argsJSON).
		Msg("Invoking tool")

	out, err := reg.Tool.InvokableRun(callCtx, string(argsJSON))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() != nil {
			return model.ErrResult(taskID, toolName, model.ErrKindTimeout, fmt.Sprintf("tool %q timed out after %s", toolName, timeout))
		}
		return model.ErrResult(taskID, toolName, model.ErrKindRemoteFailure, err.Error())
	}

	return decodeEnvelope(taskID, toolName, out)
}

// validateParams checks params against the tool's JSON schema and
// returns a violation summary, or "" when valid or no schema is set.
func validateParams(schemaDoc string, params map[string]any) string {
	if strings.TrimSpace(schemaDoc) == "" {
		return ""
	}
	if params == nil {
		params = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaDoc),
		gojsonschema.NewGoLoader(params),
	)
	if err != nil {
		return fmt.Sprintf("schema validation failed: %v", err)
	}
	if result.Valid() {
		return ""
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return strings.Join(msgs, "; ")
}

// decodeEnvelope maps the tool's wire envelope to a ToolResult. Output
// that is not an envelope at all still counts as a success payload;
// the validator judges its usefulness.
func decodeEnvelope(taskID, toolName, out string) model.ToolResult {
	var env model.ToolEnvelope
	if err := json.Unmarshal([]byte(out), &env); err != nil || env.Status == "" {
		return model.OKResult(taskID, toolName, out)
	}

	if env.Status == "ok" {
		return model.OKResult(taskID, toolName, string(env.Data))
	}

	kind := env.Kind
	if !kind.Retryable() && kind != model.ErrKindUnknownTool {
		kind = model.ErrKindRemoteFailure
	}
	logx.Warn().
		Str("tool", toolName).
		Str("task_id", taskID).
		Str("kind", string(kind)).
		Str("message", env.Message).
		Msg("Tool reported failure")
	return model.ErrResult(taskID, toolName, kind, env.Message)
}

var _ model.ToolInvoker = (*Gateway)(nil)
