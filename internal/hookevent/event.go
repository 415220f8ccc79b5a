// Package hookevent models the lifecycle events delivered by the host on
// each hook invocation and decodes their stdin JSON payloads.
package hookevent

import (
	"encoding/json"
	"fmt"
	"io"
)

// Kind identifies a lifecycle event. The set is closed: anything the host
// sends outside it maps to KindIgnored, which handlers treat as a no-op.
type Kind string

const (
	KindSessionStart     Kind = "SessionStart"
	KindUserPromptSubmit Kind = "UserPromptSubmit"
	KindPostToolUse      Kind = "PostToolUse"
	KindStop             Kind = "Stop"
	KindSessionEnd       Kind = "SessionEnd"
	KindIgnored          Kind = "Ignored"
)

// ParseKind maps a hook event name to its Kind. Unknown names are KindIgnored.
func ParseKind(name string) Kind {
	switch Kind(name) {
	case KindSessionStart, KindUserPromptSubmit, KindPostToolUse, KindStop, KindSessionEnd:
		return Kind(name)
	}
	return KindIgnored
}

// ToolCall carries the PostToolUse payload.
type ToolCall struct {
	UseID      string
	Name       string
	Input      json.RawMessage
	Response   json.RawMessage
	DurationMS int64
}

// EndStats carries optional authoritative end-of-session counts supplied by
// the host on SessionEnd. Non-nil fields override locally accumulated values.
type EndStats struct {
	Reason        string
	MessageCount  *int
	ToolCallCount *int
	InputTokens   *int64
	OutputTokens  *int64
	CostUSD       *float64
	DurationMS    *int64
}

// Event is one decoded lifecycle event. Kind selects which of the optional
// fields are meaningful.
type Event struct {
	Kind           Kind
	SessionID      string
	TranscriptPath string
	Cwd            string

	Model  string    // SessionStart
	Source string    // SessionStart
	Prompt string    // UserPromptSubmit
	Tool   *ToolCall // PostToolUse
	End    *EndStats // SessionEnd
}

// payload is the raw hook stdin JSON shape.
type payload struct {
	HookEventName  string `json:"hook_event_name"`
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	Cwd            string `json:"cwd"`

	Model  string `json:"model,omitempty"`
	Source string `json:"source,omitempty"`
	Prompt string `json:"prompt,omitempty"`
	Reason string `json:"reason,omitempty"`

	ToolName       string          `json:"tool_name,omitempty"`
	ToolUseID      string          `json:"tool_use_id,omitempty"`
	ToolInput      json.RawMessage `json:"tool_input,omitempty"`
	ToolResponse   json.RawMessage `json:"tool_response,omitempty"`
	ToolDurationMS int64           `json:"tool_duration_ms,omitempty"`

	MessageCount  *int          `json:"message_count,omitempty"`
	ToolCallCount *int          `json:"tool_call_count,omitempty"`
	Usage         *payloadUsage `json:"usage,omitempty"`
	CostUSD       *float64      `json:"cost_usd,omitempty"`
	DurationMS    *int64        `json:"duration_ms,omitempty"`
}

type payloadUsage struct {
	InputTokens  *int64 `json:"input_tokens,omitempty"`
	OutputTokens *int64 `json:"output_tokens,omitempty"`
}

// Decode reads one hook payload. kindHint is the event name the hook command
// was registered under; it is used when the payload omits hook_event_name.
func Decode(r io.Reader, kindHint string) (Event, error) {
	var p payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return Event{}, fmt.Errorf("decoding hook payload: %w", err)
	}

	name := p.HookEventName
	if name == "" {
		name = kindHint
	}

	ev := Event{
		Kind:           ParseKind(name),
		SessionID:      p.SessionID,
		TranscriptPath: p.TranscriptPath,
		Cwd:            p.Cwd,
		Model:          p.Model,
		Source:         p.Source,
		Prompt:         p.Prompt,
	}

	switch ev.Kind {
	case KindPostToolUse:
		ev.Tool = &ToolCall{
			UseID:      p.ToolUseID,
			Name:       p.ToolName,
			Input:      p.ToolInput,
			Response:   p.ToolResponse,
			DurationMS: p.ToolDurationMS,
		}
	case KindSessionEnd:
		end := &EndStats{
			Reason:        p.Reason,
			MessageCount:  p.MessageCount,
			ToolCallCount: p.ToolCallCount,
			CostUSD:       p.CostUSD,
			DurationMS:    p.DurationMS,
		}
		if p.Usage != nil {
			end.InputTokens = p.Usage.InputTokens
			end.OutputTokens = p.Usage.OutputTokens
		}
		ev.End = end
	}

	return ev, nil
}
