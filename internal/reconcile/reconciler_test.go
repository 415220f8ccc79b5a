package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/ccrelay/internal/collector"
	"github.com/theirongolddev/ccrelay/internal/hookevent"
	"github.com/theirongolddev/ccrelay/internal/state"
)

// fakeSink captures forwarded records in order.
type fakeSink struct {
	sessions []collector.SessionRecord
	messages []collector.MessageRecord
	order    []string // "session" / "message" interleaving
	fail     error
}

func (f *fakeSink) SyncSession(_ context.Context, rec collector.SessionRecord) error {
	if f.fail != nil {
		return f.fail
	}
	f.sessions = append(f.sessions, rec)
	f.order = append(f.order, "session")
	return nil
}

func (f *fakeSink) SyncMessage(_ context.Context, rec collector.MessageRecord) error {
	if f.fail != nil {
		return f.fail
	}
	f.messages = append(f.messages, rec)
	f.order = append(f.order, "message")
	return nil
}

func newTestReconciler(t *testing.T, opts ...Option) (*Reconciler, *state.MemoryStore, *fakeSink) {
	t.Helper()
	store := state.NewMemoryStore()
	sink := &fakeSink{}
	opts = append(opts, WithClock(func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}))
	return New(store, sink, opts...), store, sink
}

func writeTranscript(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcript.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
	return path
}

func assistantLine(id string, input, output int64, text string) string {
	return fmt.Sprintf(`{"type":"assistant","uuid":"%s","timestamp":"2025-06-01T10:00:00Z","message":{"id":"msg-%s","model":"claude-sonnet-4-20250514","content":[{"type":"text","text":"%s"}],"usage":{"input_tokens":%d,"output_tokens":%d}}}`,
		id, id, text, input, output)
}

func TestHandle_SessionStart(t *testing.T) {
	r, store, sink := newTestReconciler(t)

	out, err := r.Handle(context.Background(), hookevent.Event{
		Kind:      hookevent.KindSessionStart,
		SessionID: "s1",
		Model:     "claude-sonnet-4",
		Cwd:       "/work",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Forwarded)

	require.Len(t, sink.sessions, 1)
	assert.Equal(t, "s1", sink.sessions[0].SessionID)
	assert.Equal(t, "claude-sonnet-4", *sink.sessions[0].Model)
	assert.NotNil(t, sink.sessions[0].StartedAt)

	acc, ok, err := store.Load("s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "claude-sonnet-4", acc.Model)
	assert.Zero(t, acc.MessageCount)
}

func TestHandle_FirstPromptSetsTitle(t *testing.T) {
	r, store, sink := newTestReconciler(t)

	_, err := r.Handle(context.Background(), hookevent.Event{
		Kind: hookevent.KindUserPromptSubmit, SessionID: "s1", Prompt: "fix bug",
	})
	require.NoError(t, err)

	require.Len(t, sink.messages, 1)
	assert.Equal(t, "user", sink.messages[0].Role)
	assert.Equal(t, "fix bug", sink.messages[0].Content)
	require.Len(t, sink.sessions, 1)
	assert.Equal(t, "fix bug", *sink.sessions[0].Title)

	// Second prompt: no title update, firstPrompt untouched.
	_, err = r.Handle(context.Background(), hookevent.Event{
		Kind: hookevent.KindUserPromptSubmit, SessionID: "s1", Prompt: "now refactor",
	})
	require.NoError(t, err)
	assert.Len(t, sink.sessions, 1)

	acc, _, _ := store.Load("s1")
	assert.Equal(t, "fix bug", acc.FirstPrompt)
	assert.Equal(t, 2, acc.MessageCount)
}

func TestHandle_StopForwardsNewTurnsAndReplacesUsage(t *testing.T) {
	r, store, sink := newTestReconciler(t)
	path := writeTranscript(t, assistantLine("t1", 100, 50, "done"))

	// Seed partial estimates that the authoritative reparse must replace.
	require.NoError(t, store.Save("s1", state.Accumulator{
		TokenUsage: state.TokenUsage{Input: 7, Output: 3},
	}))

	out, err := r.Handle(context.Background(), hookevent.Event{
		Kind: hookevent.KindStop, SessionID: "s1", TranscriptPath: path,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Forwarded) // one message, one session update

	require.Len(t, sink.messages, 1)
	assert.Equal(t, "t1", sink.messages[0].MessageID)
	assert.Equal(t, "assistant", sink.messages[0].Role)
	assert.Equal(t, "done", sink.messages[0].Content)

	// Message committed before the session totals that summarize it.
	assert.Equal(t, []string{"message", "session"}, sink.order)

	require.Len(t, sink.sessions, 1)
	assert.Equal(t, int64(100), *sink.sessions[0].InputTokens)
	assert.Equal(t, int64(50), *sink.sessions[0].OutputTokens)
	assert.Equal(t, 1, *sink.sessions[0].MessageCount)

	acc, _, _ := store.Load("s1")
	assert.Equal(t, state.TokenUsage{Input: 100, Output: 50}, acc.TokenUsage, "replaced, not summed")
	assert.True(t, acc.HasSynced("t1"))
}

func TestHandle_StopReplayIsIdempotent(t *testing.T) {
	r, store, sink := newTestReconciler(t)
	path := writeTranscript(t, assistantLine("t1", 100, 50, "done"))
	ev := hookevent.Event{Kind: hookevent.KindStop, SessionID: "s1", TranscriptPath: path}

	_, err := r.Handle(context.Background(), ev)
	require.NoError(t, err)
	_, err = r.Handle(context.Background(), ev)
	require.NoError(t, err)

	assert.Len(t, sink.messages, 1, "replay must not re-forward the turn")
	acc, _, _ := store.Load("s1")
	assert.Equal(t, 1, acc.MessageCount, "replay must not change messageCount")
}

func TestHandle_StopOnlyNewTurnsForwarded(t *testing.T) {
	r, _, sink := newTestReconciler(t)

	path1 := writeTranscript(t, assistantLine("t1", 100, 50, "one"))
	_, err := r.Handle(context.Background(), hookevent.Event{
		Kind: hookevent.KindStop, SessionID: "s1", TranscriptPath: path1,
	})
	require.NoError(t, err)

	// The transcript is append-only: the next snapshot repeats t1.
	path2 := writeTranscript(t,
		assistantLine("t1", 100, 50, "one"),
		assistantLine("t2", 300, 120, "two"),
	)
	_, err = r.Handle(context.Background(), hookevent.Event{
		Kind: hookevent.KindStop, SessionID: "s1", TranscriptPath: path2,
	})
	require.NoError(t, err)

	require.Len(t, sink.messages, 2)
	assert.Equal(t, "t2", sink.messages[1].MessageID)

	// Totals reflect the full reparse of the second snapshot.
	last := sink.sessions[len(sink.sessions)-1]
	assert.Equal(t, int64(400), *last.InputTokens)
	assert.Equal(t, int64(170), *last.OutputTokens)
	assert.Equal(t, 2, *last.MessageCount)
}

func TestHandle_StopMissingTranscript(t *testing.T) {
	r, _, sink := newTestReconciler(t)

	_, err := r.Handle(context.Background(), hookevent.Event{
		Kind:           hookevent.KindStop,
		SessionID:      "s1",
		TranscriptPath: filepath.Join(t.TempDir(), "gone.jsonl"),
	})
	require.NoError(t, err, "missing transcript must not fail the event")
	require.Len(t, sink.sessions, 1, "session update still forwarded")
	assert.Empty(t, sink.messages)
}

func TestHandle_ToolUseGatedByConfig(t *testing.T) {
	ev := hookevent.Event{
		Kind:      hookevent.KindPostToolUse,
		SessionID: "s1",
		Tool:      &hookevent.ToolCall{UseID: "tu1", Name: "Bash", DurationMS: 40},
	}

	r, _, sink := newTestReconciler(t)
	_, err := r.Handle(context.Background(), ev)
	require.NoError(t, err)
	assert.Empty(t, sink.messages, "disabled by default")

	r2, store, sink2 := newTestReconciler(t, WithToolCallSync(true))
	_, err = r2.Handle(context.Background(), ev)
	require.NoError(t, err)
	require.Len(t, sink2.messages, 1)
	assert.Equal(t, "tu1", sink2.messages[0].MessageID)
	assert.Equal(t, "Bash", *sink2.messages[0].ToolName)

	acc, _, _ := store.Load("s1")
	assert.Equal(t, 1, acc.MessageCount)
}

func TestHandle_SessionEndWithoutPriorState(t *testing.T) {
	r, _, sink := newTestReconciler(t)

	out, err := r.Handle(context.Background(), hookevent.Event{
		Kind: hookevent.KindSessionEnd, SessionID: "ghost",
	})
	require.NoError(t, err)
	require.NotNil(t, out.Final)

	require.Len(t, sink.sessions, 1)
	rec := sink.sessions[0]
	assert.Nil(t, rec.Title)
	assert.Equal(t, int64(0), *rec.InputTokens)
	assert.Equal(t, 0, *rec.MessageCount)
}

func TestHandle_SessionEndAuthoritativeCountsWin(t *testing.T) {
	r, store, sink := newTestReconciler(t)
	require.NoError(t, store.Save("s1", state.Accumulator{
		Model:        "claude-sonnet-4",
		FirstPrompt:  "fix bug",
		TokenUsage:   state.TokenUsage{Input: 100, Output: 50},
		MessageCount: 2,
	}))

	_, err := r.Handle(context.Background(), hookevent.Event{
		Kind:      hookevent.KindSessionEnd,
		SessionID: "s1",
		End: &hookevent.EndStats{
			MessageCount: collector.Ptr(9),
			InputTokens:  collector.Ptr(int64(5000)),
			CostUSD:      collector.Ptr(1.23),
		},
	})
	require.NoError(t, err)

	rec := sink.sessions[0]
	assert.Equal(t, 9, *rec.MessageCount)
	assert.Equal(t, int64(5000), *rec.InputTokens)
	assert.Equal(t, int64(50), *rec.OutputTokens, "unsupplied counters keep local values")
	assert.Equal(t, 1.23, *rec.CostUSD)

	_, ok, _ := store.Load("s1")
	assert.False(t, ok, "accumulator deleted on SessionEnd")
}

func TestHandle_ForwardFailureStillPersistsState(t *testing.T) {
	r, store, sink := newTestReconciler(t)
	sink.fail = errors.New("collector down")

	_, err := r.Handle(context.Background(), hookevent.Event{
		Kind: hookevent.KindUserPromptSubmit, SessionID: "s1", Prompt: "fix bug",
	})
	require.Error(t, err)

	acc, ok, _ := store.Load("s1")
	require.True(t, ok)
	assert.Equal(t, "fix bug", acc.FirstPrompt)
	assert.Equal(t, 1, acc.MessageCount)
}

func TestHandle_IgnoredAndEmptySession(t *testing.T) {
	r, store, sink := newTestReconciler(t)

	out, err := r.Handle(context.Background(), hookevent.Event{Kind: hookevent.KindIgnored, SessionID: "s1"})
	require.NoError(t, err)
	assert.Zero(t, out.Forwarded)

	out, err = r.Handle(context.Background(), hookevent.Event{Kind: hookevent.KindStop})
	require.NoError(t, err)
	assert.Zero(t, out.Forwarded)

	assert.Empty(t, sink.order)
	assert.Zero(t, store.Len())
}

// TestHandle_EndToEnd walks the full lifecycle: start, prompt, stop with one
// new turn, end.
func TestHandle_EndToEnd(t *testing.T) {
	r, store, sink := newTestReconciler(t)
	ctx := context.Background()

	_, err := r.Handle(ctx, hookevent.Event{
		Kind: hookevent.KindSessionStart, SessionID: "S1", Model: "claude-sonnet-4-20250514",
	})
	require.NoError(t, err)

	_, err = r.Handle(ctx, hookevent.Event{
		Kind: hookevent.KindUserPromptSubmit, SessionID: "S1", Prompt: "fix bug",
	})
	require.NoError(t, err)

	path := writeTranscript(t, assistantLine("t1", 100, 50, "patched"))
	_, err = r.Handle(ctx, hookevent.Event{
		Kind: hookevent.KindStop, SessionID: "S1", TranscriptPath: path,
	})
	require.NoError(t, err)

	acc, ok, _ := store.Load("S1")
	require.True(t, ok)
	assert.Equal(t, 2, acc.MessageCount)
	assert.Equal(t, state.TokenUsage{Input: 100, Output: 50}, acc.TokenUsage)

	out, err := r.Handle(ctx, hookevent.Event{Kind: hookevent.KindSessionEnd, SessionID: "S1"})
	require.NoError(t, err)

	final := out.Final
	require.NotNil(t, final)
	assert.Equal(t, "fix bug", *final.Title)
	assert.Equal(t, 2, *final.MessageCount)
	assert.Equal(t, int64(100), *final.InputTokens)
	assert.Equal(t, int64(50), *final.OutputTokens)
	// 100 in + 50 out at sonnet rates: 100*3/1e6 + 50*15/1e6
	assert.InDelta(t, 0.00105, *final.CostUSD, 1e-9)

	_, ok, _ = store.Load("S1")
	assert.False(t, ok)

	// messageCount never decreased across the sequence.
	var counts []int
	for _, s := range sink.sessions {
		if s.MessageCount != nil {
			counts = append(counts, *s.MessageCount)
		}
	}
	for i := 1; i < len(counts); i++ {
		assert.GreaterOrEqual(t, counts[i], counts[i-1])
	}
}
