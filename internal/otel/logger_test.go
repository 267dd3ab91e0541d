package otel

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// decodeLines splits JSONL output into generic maps.
func decodeLines(t *testing.T, out string) []map[string]any {
	t.Helper()
	var result []map[string]any
	for i, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("line %d: invalid JSON %q: %v", i, line, err)
		}
		result = append(result, m)
	}
	return result
}

func TestEmitWritesJSONL(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindStoreAppend, Level: LevelInfo, Comp: "history", ID: 42, Source: "Thunderbird"})
	l.Close()

	lines := decodeLines(t, buf.String())
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	ev := lines[0]
	if ev["kind"] != "store.append" || ev["comp"] != "history" || ev["level"] != "info" {
		t.Errorf("unexpected event: %v", ev)
	}
	if ev["id"] != float64(42) {
		t.Errorf("id = %v, want 42", ev["id"])
	}
	if ev["source"] != "Thunderbird" {
		t.Errorf("source = %v", ev["source"])
	}
}

func TestEmitStampsTimeAndSession(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	before := time.Now()
	l.Emit(Event{Kind: KindStartup})
	l.Close()
	after := time.Now()

	var ev Event
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Time.Before(before) || ev.Time.After(after) {
		t.Errorf("time %v not in [%v, %v]", ev.Time, before, after)
	}
	if _, err := uuid.Parse(ev.SessionID); err != nil {
		t.Errorf("session_id %q is not a uuid: %v", ev.SessionID, err)
	}
	if ev.SessionID != l.SessionID() {
		t.Errorf("session_id %q != logger session %q", ev.SessionID, l.SessionID())
	}
}

func TestDurSerializedAsMillis(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Emit(Event{Kind: KindMonitorExit, Dur: 2500 * time.Millisecond})
	l.Close()

	ev := decodeLines(t, buf.String())[0]
	if ev["dur_ms"] != float64(2500) {
		t.Errorf("dur_ms = %v, want 2500", ev["dur_ms"])
	}
}

func TestOptionalFieldsOmitted(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Emit(Event{Kind: KindStartup})
	l.Close()

	line := buf.String()
	for _, field := range []string{"dur_ms", "count", "source", "err", "msg", "extra", "id", "pid"} {
		if strings.Contains(line, `"`+field+`"`) {
			t.Errorf("field %q should be omitted: %s", field, line)
		}
	}
}

func TestConcurrentEmit(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Emit(Event{Kind: KindParseEmit, Comp: "coord"})
		}()
	}
	wg.Wait()
	l.Close()

	if got := len(decodeLines(t, buf.String())); got != 50 {
		t.Errorf("expected 50 lines, got %d", got)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Emit(Event{Kind: KindStartup})
	l.Info(KindStartup, "main", "no-op")
}

func TestEmitAfterCloseIsDropped(t *testing.T) {
	l := NewNullLogger()
	l.Close()
	l.Emit(Event{Kind: KindShutdown})
	if l.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", l.Dropped())
	}
	l.Close() // idempotent
}

type gatedWriter struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (w *gatedWriter) Write(p []byte) (int, error) {
	w.once.Do(func() {
		close(w.entered)
		<-w.release
	})
	return len(p), nil
}

func TestFullQueueDrops(t *testing.T) {
	w := &gatedWriter{entered: make(chan struct{}), release: make(chan struct{})}
	l := NewLogger(w)

	l.Emit(Event{Kind: KindMonitorSpawn})
	<-w.entered

	for i := 0; i < queueSize+5; i++ {
		l.Emit(Event{Kind: KindMonitorSpawn})
	}
	if l.Dropped() == 0 {
		t.Error("expected drops with a full queue")
	}

	close(w.release)
	l.Close()
}

func TestLevelHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Info(KindStartup, "main", "starting")
	l.Warn(KindMonitorThrottled, "coord", "respawn limited")
	l.Error(KindStoreSaveError, "history", errors.New("read-only file system"))
	l.Close()

	lines := decodeLines(t, buf.String())
	want := []struct{ level, kind, comp string }{
		{"info", "sys.startup", "main"},
		{"warn", "monitor.throttled", "coord"},
		{"error", "store.save_error", "history"},
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(lines))
	}
	for i, w := range want {
		if lines[i]["level"] != w.level || lines[i]["kind"] != w.kind || lines[i]["comp"] != w.comp {
			t.Errorf("line %d = %v, want %+v", i, lines[i], w)
		}
	}
	if lines[2]["err"] != "read-only file system" {
		t.Errorf("err = %v", lines[2]["err"])
	}
}

func TestRingReceivesEvents(t *testing.T) {
	ring := NewRingBuffer(8)
	l := NewNullLogger()
	l.SetRingBuffer(ring)

	l.Emit(Event{Kind: KindMonitorSpawn, PID: 1234, Dur: time.Second})
	l.Emit(Event{Kind: KindMonitorExit, PID: 1234})
	l.Close()

	got := ring.Snapshot()
	if len(got) != 2 {
		t.Fatalf("expected 2 ring events, got %d", len(got))
	}
	if got[0].Kind != KindMonitorSpawn || got[1].Kind != KindMonitorExit {
		t.Errorf("unexpected order: %v, %v", got[0].Kind, got[1].Kind)
	}
	if got[0].Dur != time.Second {
		t.Errorf("ring copy lost Dur: %v", got[0].Dur)
	}
}

func TestOpenFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")

	for i := 0; i < 2; i++ {
		l, closeFn, err := OpenFile(path)
		if err != nil {
			t.Fatalf("OpenFile: %v", err)
		}
		l.Info(KindStartup, "main", "run")
		closeFn()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := len(decodeLines(t, string(data))); got != 2 {
		t.Errorf("expected 2 lines across runs, got %d", got)
	}
}
