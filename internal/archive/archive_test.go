package archive

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/theirongolddev/ccrelay/internal/collector"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSaveAndList(t *testing.T) {
	db := openTestDB(t)

	ended := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	err := db.Save(Session{
		SessionID:    "s1",
		Title:        "fix bug",
		Model:        "claude-sonnet-4",
		InputTokens:  100,
		OutputTokens: 50,
		MessageCount: 2,
		CostUSD:      0.00105,
		EndedAt:      ended,
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	sessions, err := db.List(10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("List len = %d, want 1", len(sessions))
	}
	got := sessions[0]
	if got.Title != "fix bug" || got.InputTokens != 100 || !got.EndedAt.Equal(ended) {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestSave_UpsertReplaces(t *testing.T) {
	db := openTestDB(t)

	if err := db.Save(Session{SessionID: "s1", MessageCount: 1}); err != nil {
		t.Fatal(err)
	}
	if err := db.Save(Session{SessionID: "s1", MessageCount: 5}); err != nil {
		t.Fatal(err)
	}

	sessions, err := db.List(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].MessageCount != 5 {
		t.Errorf("expected single upserted row with count 5, got %+v", sessions)
	}
}

func TestSaveFinal_FromRecord(t *testing.T) {
	db := openTestDB(t)

	ended := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := collector.SessionRecord{
		SessionID:    "s1",
		Title:        collector.Ptr("fix bug"),
		MessageCount: collector.Ptr(2),
		InputTokens:  collector.Ptr(int64(100)),
		EndedAt:      &ended,
	}
	if err := db.SaveFinal(rec); err != nil {
		t.Fatalf("SaveFinal: %v", err)
	}

	totals, err := db.Aggregate()
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if totals.Sessions != 1 || totals.InputTokens != 100 {
		t.Errorf("Aggregate = %+v", totals)
	}
}

func TestList_OrderedByEndedDesc(t *testing.T) {
	db := openTestDB(t)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := db.Save(Session{SessionID: id, EndedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatal(err)
		}
	}

	sessions, err := db.List(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 || sessions[0].SessionID != "c" || sessions[1].SessionID != "b" {
		t.Errorf("unexpected order/limit: %+v", sessions)
	}
}
