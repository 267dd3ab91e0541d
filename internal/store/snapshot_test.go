package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abelbrown/sidebar/internal/model"
)

func sampleHistory() []model.Notification {
	base := time.Date(2026, 10, 18, 8, 0, 0, 0, time.Local)
	return []model.Notification{
		{ID: 3, SourceName: "Thunderbird", Summary: "New mail", Body: "From Ada", ObservedAt: base},
		{ID: 7, SourceName: "", Summary: "", Body: "", ObservedAt: base.Add(time.Minute)},
		{ID: 9, SourceName: "notify-send", Summary: "Build \"done\"", Body: "line1\nline2 ✓", ObservedAt: base.Add(2 * time.Minute)},
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := NewSnapshot(filepath.Join(t.TempDir(), "notifications.json"))
	items, maxID, err := s.Load()
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if len(items) != 0 || maxID != 0 {
		t.Errorf("expected empty history, got %d items max %d", len(items), maxID)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := NewSnapshot(filepath.Join(t.TempDir(), "sub", "notifications.json"))
	want := sampleHistory()

	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, maxID, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if maxID != 9 {
		t.Errorf("maxID = %d, want 9", maxID)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d items, want %d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.ID != w.ID || g.SourceName != w.SourceName || g.Summary != w.Summary || g.Body != w.Body {
			t.Errorf("item %d: got %+v, want %+v", i, g, w)
		}
		if !g.ObservedAt.Equal(w.ObservedAt) {
			t.Errorf("item %d: ObservedAt %v, want %v", i, g.ObservedAt, w.ObservedAt)
		}
	}
}

func TestSaveEmptyWritesArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.json")
	s := NewSnapshot(path)
	if err := s.Save(nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Errorf("expected [], got %q", data)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewSnapshot(filepath.Join(dir, "notifications.json"))
	for i := 0; i < 3; i++ {
		if err := s.Save(sampleHistory()); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("expected only the snapshot, found %v", names)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.json")
	if err := os.WriteFile(path, []byte(`[{"id": 1, "summary": `), 0o644); err != nil {
		t.Fatal(err)
	}

	items, maxID, err := NewSnapshot(path).Load()
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
	if len(items) != 0 || maxID != 0 {
		t.Errorf("corrupt snapshot must load as empty, got %d items max %d", len(items), maxID)
	}
}

func TestLoadLegacySnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.json")
	legacy := `[
  {"app_name": "Telegram", "summary": "Bob", "body": "hi", "timestamp": "14:05:09", "id": 12},
  {"app_name": "Slack", "summary": "", "body": "", "timestamp": "bogus", "id": 13}
]`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}
	mod := time.Date(2026, 3, 14, 20, 0, 0, 0, time.Local)
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatal(err)
	}

	items, maxID, err := NewSnapshot(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if maxID != 13 || len(items) != 2 {
		t.Fatalf("got %d items max %d", len(items), maxID)
	}
	if items[0].SourceName != "Telegram" {
		t.Errorf("app_name not mapped to SourceName: %+v", items[0])
	}
	want := time.Date(2026, 3, 14, 14, 5, 9, 0, time.Local)
	if !items[0].ObservedAt.Equal(want) {
		t.Errorf("ObservedAt = %v, want %v", items[0].ObservedAt, want)
	}
	if !items[1].ObservedAt.IsZero() {
		t.Errorf("unparseable legacy timestamp should stay zero, got %v", items[1].ObservedAt)
	}
}
