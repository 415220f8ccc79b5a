package transcript

import "time"

// rawEntry is a single line in the host's JSONL transcript.
type rawEntry struct {
	Type      string      `json:"type"`
	UUID      string      `json:"uuid,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
	Message   *rawMessage `json:"message,omitempty"`
}

// rawMessage is the assistant message envelope.
type rawMessage struct {
	ID      string       `json:"id"`
	Role    string       `json:"role"`
	Model   string       `json:"model"`
	Content []rawContent `json:"content"`
	Usage   *rawUsage    `json:"usage,omitempty"`
}

// rawContent is one content part. Type selects which fields are populated:
// "text" carries Text, "tool_use" carries Name/ID, "thinking" is skipped.
type rawContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// rawUsage holds token counts from the API response.
type rawUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
}

// Turn is one assistant reply extracted from the transcript.
type Turn struct {
	ID        string
	Text      string
	Model     string
	Timestamp time.Time
}

// Usage is the aggregate token total across all assistant turns in a parse.
// Cache reads and writes are billed as input-class tokens and are folded
// into Input.
type Usage struct {
	Input  int64
	Output int64
}

// IsZero reports whether no tokens were counted.
func (u Usage) IsZero() bool {
	return u.Input == 0 && u.Output == 0
}

// Summary holds aggregate metadata gathered alongside the turns.
type Summary struct {
	UserMessages int
	ToolCalls    int
	Model        string // first non-empty assistant model seen
	ParseErrors  int
}

// Result is the output of parsing one transcript snapshot.
type Result struct {
	Turns   []Turn
	Usage   Usage
	Summary Summary
}
