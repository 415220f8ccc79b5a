package collector

import (
	"encoding/json"
	"time"
)

// SessionRecord is a partial session upsert. Only non-nil fields are sent;
// the collector applies last-write-wins per field, so resending the same
// values is harmless.
type SessionRecord struct {
	SessionID     string     `json:"sessionId"`
	Title         *string    `json:"title,omitempty"`
	Model         *string    `json:"model,omitempty"`
	Cwd           *string    `json:"cwd,omitempty"`
	Source        *string    `json:"source,omitempty"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`
	InputTokens   *int64     `json:"inputTokens,omitempty"`
	OutputTokens  *int64     `json:"outputTokens,omitempty"`
	MessageCount  *int       `json:"messageCount,omitempty"`
	ToolCallCount *int       `json:"toolCallCount,omitempty"`
	CostUSD       *float64   `json:"costUsd,omitempty"`
	DurationMS    *int64     `json:"durationMs,omitempty"`
}

// MessageRecord is a partial message upsert keyed by a stable external id.
type MessageRecord struct {
	MessageID  string          `json:"messageId"`
	SessionID  string          `json:"sessionId"`
	Role       string          `json:"role"`
	Content    string          `json:"content,omitempty"`
	Model      *string         `json:"model,omitempty"`
	Timestamp  *time.Time      `json:"timestamp,omitempty"`
	ToolName   *string         `json:"toolName,omitempty"`
	ToolInput  json.RawMessage `json:"toolInput,omitempty"`
	ToolResult json.RawMessage `json:"toolResult,omitempty"`
	DurationMS *int64          `json:"durationMs,omitempty"`
}

// batchRequest is the body for POST /sync/batch.
type batchRequest struct {
	Sessions []SessionRecord `json:"sessions,omitempty"`
	Messages []MessageRecord `json:"messages,omitempty"`
}

// Ptr returns a pointer to v, for building partial records.
func Ptr[T any](v T) *T {
	return &v
}
