package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/abelbrown/sidebar/internal/model"
)

func sampleItems() []model.Notification {
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)
	return []model.Notification{
		{ID: 1, SourceName: "Thunderbird", Summary: "Lunch", Body: "Friday?", ObservedAt: at},
		{ID: 2, SourceName: "notify-send", Summary: "", Body: "no summary", ObservedAt: at.Add(time.Minute)},
	}
}

func TestWriteListTableNewestFirst(t *testing.T) {
	var out bytes.Buffer
	if err := writeList(&out, sampleItems(), false); err != nil {
		t.Fatalf("writeList: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d:\n%s", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[1], "2 ") || !strings.HasPrefix(lines[2], "1 ") {
		t.Errorf("rows should be newest first:\n%s", out.String())
	}
	// Missing summary falls back to the source.
	if !strings.Contains(lines[1], "notify-send") || strings.Count(lines[1], "notify-send") != 2 {
		t.Errorf("expected source used as title, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "2024-03-01 09:30") {
		t.Errorf("expected observed time, got %q", lines[2])
	}
}

func TestWriteListJSON(t *testing.T) {
	var out bytes.Buffer
	if err := writeList(&out, sampleItems(), true); err != nil {
		t.Fatalf("writeList: %v", err)
	}

	var got []model.Notification
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(got) != 2 || got[0].ID != 1 {
		t.Errorf("JSON should keep stored order, got %+v", got)
	}
}

func TestWriteListEmpty(t *testing.T) {
	var out bytes.Buffer
	if err := writeList(&out, nil, false); err != nil {
		t.Fatalf("writeList: %v", err)
	}
	if !strings.Contains(out.String(), "No notifications stored") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("a very long summary", 10); got != "a very ..." {
		t.Errorf("truncate long = %q", got)
	}
}
