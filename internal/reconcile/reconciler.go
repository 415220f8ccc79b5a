// Package reconcile turns individual lifecycle events into accumulator
// mutations and forwarded records.
//
// Each invocation handles exactly one event: load state, extract new data,
// persist state, forward. State is persisted before anything is forwarded,
// so a delivery failure never loses locally accumulated counts; replaying
// the same event later is tolerated by the entry-id dedup.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/theirongolddev/ccrelay/internal/collector"
	"github.com/theirongolddev/ccrelay/internal/hookevent"
	"github.com/theirongolddev/ccrelay/internal/pricing"
	"github.com/theirongolddev/ccrelay/internal/state"
	"github.com/theirongolddev/ccrelay/internal/transcript"
)

// Reconciler applies one lifecycle event to session state and emits
// normalized records.
type Reconciler struct {
	store         state.Store
	sink          collector.Sink
	syncToolCalls bool

	now       func() time.Time
	parseFile func(path string) transcript.Result
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithToolCallSync enables forwarding of PostToolUse events.
func WithToolCallSync(enabled bool) Option {
	return func(r *Reconciler) { r.syncToolCalls = enabled }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// New creates a Reconciler over the given store and sink.
func New(store state.Store, sink collector.Sink, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:     store,
		sink:      sink,
		now:       time.Now,
		parseFile: transcript.ParseFile,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Outcome summarizes what handling one event did.
type Outcome struct {
	// Forwarded is the number of records sent to the collector.
	Forwarded int
	// Final is the session record emitted on SessionEnd, for local archival.
	Final *collector.SessionRecord
}

// Handle applies one event. Forwarding errors are returned to the caller
// (which logs and exits cleanly) but state has already been persisted by
// the time any forwarding is attempted.
func (r *Reconciler) Handle(ctx context.Context, ev hookevent.Event) (Outcome, error) {
	if ev.SessionID == "" || ev.Kind == hookevent.KindIgnored {
		return Outcome{}, nil
	}

	switch ev.Kind {
	case hookevent.KindSessionStart:
		return r.sessionStart(ctx, ev)
	case hookevent.KindUserPromptSubmit:
		return r.userPrompt(ctx, ev)
	case hookevent.KindPostToolUse:
		return r.postToolUse(ctx, ev)
	case hookevent.KindStop:
		return r.stop(ctx, ev)
	case hookevent.KindSessionEnd:
		return r.sessionEnd(ctx, ev)
	}
	return Outcome{}, nil
}

// sessionStart creates (or resets) the accumulator and announces the session.
func (r *Reconciler) sessionStart(ctx context.Context, ev hookevent.Event) (Outcome, error) {
	acc := state.Accumulator{Model: ev.Model}
	if err := r.store.Save(ev.SessionID, acc); err != nil {
		return Outcome{}, fmt.Errorf("saving state: %w", err)
	}

	rec := collector.SessionRecord{
		SessionID: ev.SessionID,
		StartedAt: collector.Ptr(r.now().UTC()),
	}
	if ev.Model != "" {
		rec.Model = collector.Ptr(ev.Model)
	}
	if ev.Cwd != "" {
		rec.Cwd = collector.Ptr(ev.Cwd)
	}
	if ev.Source != "" {
		rec.Source = collector.Ptr(ev.Source)
	}
	return r.forward(ctx, []collector.SessionRecord{rec}, nil)
}

// userPrompt records the prompt, deriving the title from the first one.
func (r *Reconciler) userPrompt(ctx context.Context, ev hookevent.Event) (Outcome, error) {
	acc, _, err := r.store.Load(ev.SessionID)
	if err != nil {
		return Outcome{}, fmt.Errorf("loading state: %w", err)
	}

	first := acc.FirstPrompt == ""
	if first {
		acc.FirstPrompt = ev.Prompt
	}
	acc.MessageCount++

	if err := r.store.Save(ev.SessionID, acc); err != nil {
		return Outcome{}, fmt.Errorf("saving state: %w", err)
	}

	msg := collector.MessageRecord{
		MessageID: fmt.Sprintf("%s-user-%d", ev.SessionID, acc.MessageCount),
		SessionID: ev.SessionID,
		Role:      "user",
		Content:   ev.Prompt,
		Timestamp: collector.Ptr(r.now().UTC()),
	}

	var sessions []collector.SessionRecord
	if first {
		sessions = append(sessions, collector.SessionRecord{
			SessionID: ev.SessionID,
			Title:     collector.Ptr(DeriveTitle(ev.Prompt)),
		})
	}

	out, err := r.forwardMessagesFirst(ctx, sessions, []collector.MessageRecord{msg})
	return out, err
}

// postToolUse forwards a tool-call message when tool syncing is enabled.
func (r *Reconciler) postToolUse(ctx context.Context, ev hookevent.Event) (Outcome, error) {
	if !r.syncToolCalls || ev.Tool == nil {
		return Outcome{}, nil
	}

	acc, _, err := r.store.Load(ev.SessionID)
	if err != nil {
		return Outcome{}, fmt.Errorf("loading state: %w", err)
	}
	acc.MessageCount++
	if err := r.store.Save(ev.SessionID, acc); err != nil {
		return Outcome{}, fmt.Errorf("saving state: %w", err)
	}

	id := ev.Tool.UseID
	if id == "" {
		id = uuid.NewString()
	}
	msg := collector.MessageRecord{
		MessageID:  id,
		SessionID:  ev.SessionID,
		Role:       "assistant",
		Timestamp:  collector.Ptr(r.now().UTC()),
		ToolName:   collector.Ptr(ev.Tool.Name),
		ToolInput:  ev.Tool.Input,
		ToolResult: ev.Tool.Response,
	}
	if ev.Tool.DurationMS > 0 {
		msg.DurationMS = collector.Ptr(ev.Tool.DurationMS)
	}
	return r.forwardMessagesFirst(ctx, nil, []collector.MessageRecord{msg})
}

// stop reparses the transcript, forwards newly seen assistant turns, and
// replaces the token totals with the freshly parsed (authoritative) ones.
func (r *Reconciler) stop(ctx context.Context, ev hookevent.Event) (Outcome, error) {
	acc, _, err := r.store.Load(ev.SessionID)
	if err != nil {
		return Outcome{}, fmt.Errorf("loading state: %w", err)
	}

	var res transcript.Result
	if ev.TranscriptPath != "" {
		res = r.parseFile(ev.TranscriptPath)
	}

	var msgs []collector.MessageRecord
	for _, turn := range res.Turns {
		if acc.HasSynced(turn.ID) {
			continue
		}
		acc.MarkSynced(turn.ID)
		acc.MessageCount++

		msg := collector.MessageRecord{
			MessageID: turn.ID,
			SessionID: ev.SessionID,
			Role:      "assistant",
			Content:   turn.Text,
		}
		if turn.Model != "" {
			msg.Model = collector.Ptr(turn.Model)
		}
		if !turn.Timestamp.IsZero() {
			msg.Timestamp = collector.Ptr(turn.Timestamp)
		}
		msgs = append(msgs, msg)
	}

	// The transcript totals are cumulative for the session, so a reparse
	// supersedes prior partial estimates rather than adding to them.
	if !res.Usage.IsZero() {
		acc.TokenUsage = state.TokenUsage{Input: res.Usage.Input, Output: res.Usage.Output}
	}
	if acc.Model == "" && res.Summary.Model != "" {
		acc.Model = res.Summary.Model
	}

	if err := r.store.Save(ev.SessionID, acc); err != nil {
		return Outcome{}, fmt.Errorf("saving state: %w", err)
	}

	session := collector.SessionRecord{
		SessionID:    ev.SessionID,
		InputTokens:  collector.Ptr(acc.TokenUsage.Input),
		OutputTokens: collector.Ptr(acc.TokenUsage.Output),
		MessageCount: collector.Ptr(acc.MessageCount),
	}
	if cost := r.cost(acc); cost > 0 {
		session.CostUSD = collector.Ptr(cost)
	}

	// Messages go out first so the session totals commit after the records
	// that informed them.
	return r.forwardMessagesFirst(ctx, []collector.SessionRecord{session}, msgs)
}

// sessionEnd emits the final session record and tears down the accumulator.
// Authoritative counts supplied by the host win over local accumulation.
func (r *Reconciler) sessionEnd(ctx context.Context, ev hookevent.Event) (Outcome, error) {
	// Missing state (e.g. restart mid-session) degrades to zero defaults.
	acc, _, err := r.store.Load(ev.SessionID)
	if err != nil {
		return Outcome{}, fmt.Errorf("loading state: %w", err)
	}

	usage := acc.TokenUsage
	msgCount := acc.MessageCount

	rec := collector.SessionRecord{
		SessionID: ev.SessionID,
		EndedAt:   collector.Ptr(r.now().UTC()),
	}
	if acc.FirstPrompt != "" {
		rec.Title = collector.Ptr(DeriveTitle(acc.FirstPrompt))
	}
	if acc.Model != "" {
		rec.Model = collector.Ptr(acc.Model)
	}

	var hostCost *float64
	if end := ev.End; end != nil {
		if end.MessageCount != nil {
			msgCount = *end.MessageCount
		}
		if end.InputTokens != nil {
			usage.Input = *end.InputTokens
		}
		if end.OutputTokens != nil {
			usage.Output = *end.OutputTokens
		}
		hostCost = end.CostUSD
		if end.ToolCallCount != nil {
			rec.ToolCallCount = end.ToolCallCount
		}
		if end.DurationMS != nil {
			rec.DurationMS = end.DurationMS
		}
	}

	rec.InputTokens = collector.Ptr(usage.Input)
	rec.OutputTokens = collector.Ptr(usage.Output)
	rec.MessageCount = collector.Ptr(msgCount)

	cost := pricing.Cost(acc.Model, pricing.Usage{InputTokens: usage.Input, OutputTokens: usage.Output})
	if hostCost != nil {
		cost = *hostCost
	}
	if cost > 0 {
		rec.CostUSD = collector.Ptr(cost)
	}

	// Teardown happens whether or not forwarding succeeds: delivery failure
	// must never leave stale accumulator state behind.
	delErr := r.store.Delete(ev.SessionID)

	out, fwdErr := r.forward(ctx, []collector.SessionRecord{rec}, nil)
	out.Final = &rec
	if fwdErr != nil {
		return out, fwdErr
	}
	if delErr != nil {
		return out, fmt.Errorf("deleting state: %w", delErr)
	}
	return out, nil
}

func (r *Reconciler) cost(acc state.Accumulator) float64 {
	return pricing.Cost(acc.Model, pricing.Usage{
		InputTokens:  acc.TokenUsage.Input,
		OutputTokens: acc.TokenUsage.Output,
	})
}

// forward sends session records then message records, sequentially.
func (r *Reconciler) forward(ctx context.Context, sessions []collector.SessionRecord, msgs []collector.MessageRecord) (Outcome, error) {
	var out Outcome
	for _, s := range sessions {
		if err := r.sink.SyncSession(ctx, s); err != nil {
			return out, err
		}
		out.Forwarded++
	}
	for _, m := range msgs {
		if err := r.sink.SyncMessage(ctx, m); err != nil {
			return out, err
		}
		out.Forwarded++
	}
	return out, nil
}

// forwardMessagesFirst sends message records before session records, used
// when the session update summarizes the messages.
func (r *Reconciler) forwardMessagesFirst(ctx context.Context, sessions []collector.SessionRecord, msgs []collector.MessageRecord) (Outcome, error) {
	var out Outcome
	for _, m := range msgs {
		if err := r.sink.SyncMessage(ctx, m); err != nil {
			return out, err
		}
		out.Forwarded++
	}
	for _, s := range sessions {
		if err := r.sink.SyncSession(ctx, s); err != nil {
			return out, err
		}
		out.Forwarded++
	}
	return out, nil
}
