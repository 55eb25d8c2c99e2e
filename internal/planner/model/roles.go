package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// Completer is the single capability both conversation roles are built
// on: structured messages in, one message out, within a bounded time.
// Any eino chat model satisfies it through a thin adapter; the state
// machine never sees the backend.
type Completer interface {
	Complete(ctx context.Context, messages []*schema.Message) (*schema.Message, error)
}

// Generator is the primary reasoning role. Its call sites share one
// code path and differ only in the prompt and output schema supplied.
type Generator interface {
	// ExtractSlots merges newly mentioned trip parameters into the
	// given slot values, using the conversation history for context.
	ExtractSlots(ctx context.Context, history []*schema.Message, slots map[string]string) (map[string]string, error)

	// DecomposeTasks maps validated slots to tool invocations.
	DecomposeTasks(ctx context.Context, slots map[string]string) ([]*Task, error)

	// CorrectParameters proposes a repaired parameter set from a tool
	// error descriptor. A nil Correction means the task is not
	// recoverable by repair.
	CorrectParameters(ctx context.Context, task *Task, errText string) (*Correction, error)

	// ComposeClarification turns a failing slot verdict into a
	// user-facing question.
	ComposeClarification(ctx context.Context, verdict Verdict) (string, error)

	// ComposeItinerary synthesizes validated results, and notes for
	// abandoned tasks, into the final plan text.
	ComposeItinerary(ctx context.Context, slots map[string]string, results []ToolResult, abandoned []*Task) (string, error)
}

// Validator is the independent judging role, structurally decoupled
// from the Generator to avoid self-confirmation.
type Validator interface {
	ValidateSlots(ctx context.Context, slots map[string]string) (Verdict, error)
	ValidateResult(ctx context.Context, taskDescription string, result ToolResult) (Verdict, error)
}

// ToolInvoker is the gateway contract: invoke a named tool with
// structured parameters and get a normalized result. Ordinary remote
// failures surface inside the ToolResult, never as an error.
type ToolInvoker interface {
	Invoke(ctx context.Context, taskID, tool string, params map[string]any) ToolResult
}

// SessionRepository persists sessions between turns. A Load miss
// returns (nil, nil); the state machine degrades to a fresh session
// when Load fails outright.
type SessionRepository interface {
	Load(ctx context.Context, identity string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, identity string) error
}
