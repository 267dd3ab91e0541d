// Package otel provides structured observability for the notification pipeline.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and background drain goroutine.
// An optional RingBuffer provides live in-memory inspection for the debug overlay.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an observability event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Monitor process lifecycle
	KindMonitorSpawn      EventKind = "monitor.spawn"
	KindMonitorSpawnError EventKind = "monitor.spawn_error"
	KindMonitorExit       EventKind = "monitor.exit"
	KindMonitorThrottled  EventKind = "monitor.throttled"

	// Trace parsing
	KindParseEmit EventKind = "parse.emit"

	// History store
	KindStoreAppend    EventKind = "store.append"
	KindStoreRemove    EventKind = "store.remove"
	KindStoreClear     EventKind = "store.clear"
	KindStoreLoad      EventKind = "store.load"
	KindStoreSaveError EventKind = "store.save_error"

	// UI events
	KindKeyPress EventKind = "ui.key"

	// System events
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"
)

// Event is the universal observability record. Every field except Kind and
// Time is optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"`       // component: "coord", "history", "ui", "main"
	SessionID string         `json:"session_id,omitempty"` // same for entire app run
	ID        uint64         `json:"id,omitempty"`         // notification ID
	PID       int            `json:"pid,omitempty"`        // monitor process ID
	Dur       time.Duration  `json:"-"`                    // not serialized directly
	DurMs     float64        `json:"dur_ms,omitempty"`     // computed from Dur at marshal time
	Count     int            `json:"count,omitempty"`
	Source    string         `json:"source,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`   // free text
	Extra     map[string]any `json:"extra,omitempty"` // escape hatch for unusual fields
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
