package model

import "encoding/json"

// TaskStatus is the lifecycle of one decomposed unit of work.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
	TaskAbandoned TaskStatus = "abandoned"
)

// Task maps to exactly one external tool invocation.
type Task struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Tool        string         `json:"tool"`
	Params      map[string]any `json:"params"`
	DependsOn   []string       `json:"depends_on,omitempty"`
	Status      TaskStatus     `json:"status"`
	Attempts    int            `json:"attempts"`
}

// ErrorKind classifies tool invocation failures for the scheduler.
type ErrorKind string

const (
	ErrKindTimeout       ErrorKind = "timeout"
	ErrKindBadParameters ErrorKind = "bad_parameters"
	ErrKindRemoteFailure ErrorKind = "remote_failure"
	ErrKindUnknownTool   ErrorKind = "unknown_tool"
)

// Retryable reports whether the scheduler may retry a failure of this kind.
// An unknown tool is a configuration fault and retrying cannot fix it.
func (k ErrorKind) Retryable() bool {
	return k == ErrKindTimeout || k == ErrKindBadParameters || k == ErrKindRemoteFailure
}

// ToolResult is the normalized outcome of one tool invocation attempt.
// Ephemeral: produced per attempt and consumed within the same turn.
type ToolResult struct {
	TaskID  string    `json:"task_id"`
	Tool    string    `json:"tool"`
	OK      bool      `json:"ok"`
	Payload string    `json:"payload,omitempty"`
	Kind    ErrorKind `json:"kind,omitempty"`
	Message string    `json:"message,omitempty"`
}

// ErrResult builds an error ToolResult for the given task.
func ErrResult(taskID, tool string, kind ErrorKind, message string) ToolResult {
	return ToolResult{TaskID: taskID, Tool: tool, Kind: kind, Message: message}
}

// OKResult builds a successful ToolResult carrying the raw payload.
func OKResult(taskID, tool, payload string) ToolResult {
	return ToolResult{TaskID: taskID, Tool: tool, OK: true, Payload: payload}
}

// ToolEnvelope is the JSON wire shape every tool returns from its
// invocation. Ordinary remote failures travel inside the envelope;
// a Go error from a tool means the call itself broke.
type ToolEnvelope struct {
	Status  string          `json:"status"` // "ok" | "error"
	Kind    ErrorKind       `json:"kind,omitempty"`
	Message string          `json:"error_message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// DateSpec declares which parameters of a tool are date-typed and
// which pairs form ordered ranges, for normalization before dispatch.
type DateSpec struct {
	Fields []string    `json:"fields,omitempty"`
	Ranges [][2]string `json:"ranges,omitempty"`
}

// Correction is a repaired parameter set proposed after a failed
// invocation. Applied at most once per attempt, merged over the
// original parameters.
type Correction struct {
	TaskID string         `json:"task_id"`
	Params map[string]any `json:"params"`
	Reason string         `json:"reason,omitempty"`
}

// Verdict is the validation role's judgment on slots or a tool result.
// It never mutates session state; the state machine applies its effect.
type Verdict struct {
	Pass    bool     `json:"pass"`
	Reasons []string `json:"reasons,omitempty"`
	// Prompt suggests a user-facing clarification when the verdict
	// fails slot validation.
	Prompt string `json:"prompt,omitempty"`
	// Missing lists slot names the validator found absent or invalid.
	Missing []string `json:"missing,omitempty"`
}
