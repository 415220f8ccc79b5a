// Package state persists per-session accumulator state between invocations.
//
// The hook binary is invoked once per lifecycle event with no shared memory;
// the JSON state file keyed by session id is the only continuity mechanism.
package state

import "encoding/json"

// TokenUsage holds running token totals for a session.
type TokenUsage struct {
	Input  int64 `json:"input"`
	Output int64 `json:"output"`
}

// IsZero reports whether no tokens have been recorded.
func (u TokenUsage) IsZero() bool {
	return u.Input == 0 && u.Output == 0
}

// Accumulator is the running state for one session. On disk the synced-entry
// set is an ordered array of strings; the membership set is rebuilt on load.
// Unknown fields written by newer versions round-trip unchanged through
// load → mutate → save.
type Accumulator struct {
	Model          string
	FirstPrompt    string
	TokenUsage     TokenUsage
	MessageCount   int
	SyncedEntryIDs []string

	synced map[string]bool
	extra  map[string]json.RawMessage
}

// HasSynced reports whether the entry id was already forwarded.
func (a *Accumulator) HasSynced(id string) bool {
	if a.synced == nil {
		a.synced = make(map[string]bool, len(a.SyncedEntryIDs))
		for _, s := range a.SyncedEntryIDs {
			a.synced[s] = true
		}
	}
	return a.synced[id]
}

// MarkSynced records the entry id as forwarded. The set is append-only.
func (a *Accumulator) MarkSynced(id string) {
	if a.HasSynced(id) {
		return
	}
	a.synced[id] = true
	a.SyncedEntryIDs = append(a.SyncedEntryIDs, id)
}

// accJSON is the wire shape of the known accumulator fields.
type accJSON struct {
	Model          string      `json:"model,omitempty"`
	FirstPrompt    string      `json:"firstPrompt,omitempty"`
	TokenUsage     *TokenUsage `json:"tokenUsage,omitempty"`
	MessageCount   int         `json:"messageCount,omitempty"`
	SyncedEntryIDs []string    `json:"syncedEntryIds,omitempty"`
}

var knownKeys = map[string]bool{
	"model":          true,
	"firstPrompt":    true,
	"tokenUsage":     true,
	"messageCount":   true,
	"syncedEntryIds": true,
}

// MarshalJSON emits the known fields plus any preserved unknown siblings.
func (a Accumulator) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(a.extra)+5)
	for k, v := range a.extra {
		out[k] = v
	}

	known := accJSON{
		Model:          a.Model,
		FirstPrompt:    a.FirstPrompt,
		MessageCount:   a.MessageCount,
		SyncedEntryIDs: a.SyncedEntryIDs,
	}
	if !a.TokenUsage.IsZero() {
		known.TokenUsage = &a.TokenUsage
	}
	kb, err := json.Marshal(known)
	if err != nil {
		return nil, err
	}
	var km map[string]json.RawMessage
	if err := json.Unmarshal(kb, &km); err != nil {
		return nil, err
	}
	for k, v := range km {
		out[k] = v
	}

	return json.Marshal(out)
}

// UnmarshalJSON reads the known fields and stashes everything else.
func (a *Accumulator) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var known accJSON
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	*a = Accumulator{
		Model:          known.Model,
		FirstPrompt:    known.FirstPrompt,
		MessageCount:   known.MessageCount,
		SyncedEntryIDs: known.SyncedEntryIDs,
	}
	if known.TokenUsage != nil {
		a.TokenUsage = *known.TokenUsage
	}

	for k, v := range raw {
		if knownKeys[k] {
			continue
		}
		if a.extra == nil {
			a.extra = make(map[string]json.RawMessage)
		}
		a.extra[k] = v
	}
	return nil
}
