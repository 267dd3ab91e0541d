package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abelbrown/sidebar/internal/history"
	"github.com/abelbrown/sidebar/internal/store"
	"github.com/abelbrown/sidebar/internal/trace"
)

func TestReplayFixturePrintsNotifications(t *testing.T) {
	f, err := os.Open(filepath.Join("..", "..", "internal", "trace", "testdata", "notify.trace"))
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer f.Close()

	var out bytes.Buffer
	n, err := replay(&out, f, trace.NewParser(trace.DefaultMember, trace.DefaultSchema), nil)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 notifications, got %d", n)
	}
	for _, want := range []string{"New message from Ada", "Build finished", "2 notification(s) parsed"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestReplayStoresIntoHistory(t *testing.T) {
	snap := store.NewSnapshot(filepath.Join(t.TempDir(), "notifications.json"))
	h := history.New(nil, 10, snap)

	input := strings.Join([]string{
		"method call time=1 sender=:1.5 -> destination=:1.2 serial=4 path=/org/freedesktop/Notifications; interface=org.freedesktop.Notifications; member=Notify",
		`   string "AppX"`,
		`   uint32 0`,
		`   string ""`,
		`   string "Title"`,
		`   string "Body"`,
		`   array [`,
		`   ]`,
	}, "\n")

	var out bytes.Buffer
	if _, err := replay(&out, strings.NewReader(input), trace.NewParser("", trace.DefaultSchema), h); err != nil {
		t.Fatalf("replay: %v", err)
	}

	items, _, err := snap.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(items) != 1 || items[0].ID != 1 || items[0].Summary != "Title" {
		t.Errorf("unexpected stored history: %+v", items)
	}
	if !strings.Contains(out.String(), "history now holds 1") {
		t.Errorf("output should report history size:\n%s", out.String())
	}
}

func TestReplayReportsTruncatedCall(t *testing.T) {
	input := "method call time=1 sender=:1.5 -> destination=:1.2 serial=4 member=Notify\n   string \"AppX\"\n"
	var out bytes.Buffer
	n, err := replay(&out, strings.NewReader(input), trace.NewParser("", trace.DefaultSchema), nil)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if n != 0 || !strings.Contains(out.String(), "1 fields pending") {
		t.Errorf("expected pending call report, got n=%d:\n%s", n, out.String())
	}
}
