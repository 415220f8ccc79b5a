package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Store is a durable session-id → accumulator mapping, loaded at the start
// of an invocation and saved at the end.
type Store interface {
	// Load returns the accumulator for the session and whether it existed.
	// A missing or unreadable backing store yields a zero accumulator.
	Load(sessionID string) (Accumulator, bool, error)
	Save(sessionID string, acc Accumulator) error
	Delete(sessionID string) error
}

// FileStore persists accumulators as one JSON object keyed by session id.
// Sessions other than the one being mutated are carried as raw JSON, so a
// save never rewrites (or drops fields from) records it did not touch.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// readAll loads the whole state file. Absence or corruption degrades to an
// empty store: a hook event must never fail because prior state is unreadable.
func (s *FileStore) readAll() map[string]json.RawMessage {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return map[string]json.RawMessage{}
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil || all == nil {
		return map[string]json.RawMessage{}
	}
	return all
}

func (s *FileStore) writeAll(all map[string]json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	// Temp-and-rename so a racing reader never sees a torn file. Concurrent
	// invocations on the same session still race load→save; last writer wins.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Load implements Store.
func (s *FileStore) Load(sessionID string) (Accumulator, bool, error) {
	raw, ok := s.readAll()[sessionID]
	if !ok {
		return Accumulator{}, false, nil
	}
	var acc Accumulator
	if err := json.Unmarshal(raw, &acc); err != nil {
		// Corrupt record: start the session over rather than failing the hook.
		return Accumulator{}, false, nil
	}
	return acc, true, nil
}

// Save implements Store.
func (s *FileStore) Save(sessionID string, acc Accumulator) error {
	all := s.readAll()
	raw, err := json.Marshal(acc)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", sessionID, err)
	}
	all[sessionID] = raw
	return s.writeAll(all)
}

// Delete implements Store.
func (s *FileStore) Delete(sessionID string) error {
	all := s.readAll()
	if _, ok := all[sessionID]; !ok {
		return nil
	}
	delete(all, sessionID)
	return s.writeAll(all)
}

// SessionIDs returns the ids of all in-flight sessions, sorted.
func (s *FileStore) SessionIDs() []string {
	all := s.readAll()
	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MemoryStore is an in-memory Store for tests. Values round-trip through
// JSON so it has the same copy and field-preservation semantics as FileStore.
type MemoryStore struct {
	records map[string]json.RawMessage
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]json.RawMessage)}
}

// Load implements Store.
func (m *MemoryStore) Load(sessionID string) (Accumulator, bool, error) {
	raw, ok := m.records[sessionID]
	if !ok {
		return Accumulator{}, false, nil
	}
	var acc Accumulator
	if err := json.Unmarshal(raw, &acc); err != nil {
		return Accumulator{}, false, err
	}
	return acc, true, nil
}

// Save implements Store.
func (m *MemoryStore) Save(sessionID string, acc Accumulator) error {
	raw, err := json.Marshal(acc)
	if err != nil {
		return err
	}
	m.records[sessionID] = raw
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(sessionID string) error {
	delete(m.records, sessionID)
	return nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	return len(m.records)
}
