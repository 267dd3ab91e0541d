package tally

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTodayInitializesToZero(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v, err := s.Today(ctx, "water")
	if err != nil {
		t.Fatalf("Today: %v", err)
	}
	if v != 0 {
		t.Errorf("expected 0, got %d", v)
	}

	rows, err := s.History(ctx, "water", 7)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("Today should create the row, got %d rows", len(rows))
	}
}

func TestAddAccumulatesPerKindAndDay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local)
	s.now = func() time.Time { return day }

	steps := []struct {
		kind  string
		delta int64
		want  int64
	}{
		{"water", 1, 1},
		{"water", 2, 3},
		{"food", 1, 1},
		{"Water ", -1, 2}, // kind is normalized
	}
	for _, st := range steps {
		got, err := s.Add(ctx, st.kind, st.delta)
		if err != nil {
			t.Fatalf("Add(%q, %d): %v", st.kind, st.delta, err)
		}
		if got != st.want {
			t.Errorf("Add(%q, %d) = %d, want %d", st.kind, st.delta, got, st.want)
		}
	}

	day = day.AddDate(0, 0, 1)
	v, err := s.Today(ctx, "water")
	if err != nil {
		t.Fatalf("Today: %v", err)
	}
	if v != 0 {
		t.Errorf("a new day should start at 0, got %d", v)
	}

	rows, err := s.History(ctx, "water", 7)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(rows) != 2 || rows[0].Day != "2024-03-02" || rows[1].Value != 2 {
		t.Errorf("unexpected history: %+v", rows)
	}
}

func TestHistoryAllKinds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, kind := range []string{"water", "food"} {
		if _, err := s.Add(ctx, kind, 1); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	rows, err := s.History(ctx, "", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(rows) != 2 || rows[0].Kind != "food" {
		t.Errorf("expected food then water, got %+v", rows)
	}
}

func TestEmptyKindRejected(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Add(context.Background(), "  ", 1); err == nil {
		t.Error("expected error for empty kind")
	}
	if _, err := s.Today(context.Background(), ""); err == nil {
		t.Error("expected error for empty kind")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tally.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.Add(ctx, "water", 4); err != nil {
		t.Fatalf("Add: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	v, err := s.Today(ctx, "water")
	if err != nil {
		t.Fatalf("Today: %v", err)
	}
	if v != 4 {
		t.Errorf("expected 4 after reopen, got %d", v)
	}
}
