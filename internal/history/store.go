// Package history holds the bounded, ID-addressed notification history
// shared between the ingestion goroutine and the UI.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Reads (Snapshot, Count) never wait
// on disk I/O: mutations copy the post-state under mu and persist it after
// releasing mu. saveMu serializes mutation+persist pairs so snapshots reach
// disk in mutation order.
package history

import (
	"sync"
	"sync/atomic"

	"github.com/abelbrown/sidebar/internal/logging"
	"github.com/abelbrown/sidebar/internal/model"
	"github.com/abelbrown/sidebar/internal/otel"
)

// DefaultCapacity is the number of notifications kept before FIFO eviction.
const DefaultCapacity = 100

// Persister durably records the full history after each mutation.
type Persister interface {
	Save(items []model.Notification) error
}

// Store owns the notification history. NOT an interface - concrete type.
type Store struct {
	saveMu sync.Mutex
	mu     sync.Mutex

	items    []model.Notification // oldest first
	capacity int
	nextID   uint64
	count    atomic.Int64

	persist Persister    // nil disables persistence
	events  *otel.Logger // nil until SetEventLogger
}

// New creates a Store seeded with initial (as loaded from disk).
// IDs continue from max(initial)+1, or 1 when initial is empty.
// If initial exceeds capacity only the newest entries are kept.
func New(initial []model.Notification, capacity int, p Persister) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	nextID := model.MaxID(initial) + 1
	if len(initial) > capacity {
		initial = initial[len(initial)-capacity:]
	}
	items := make([]model.Notification, len(initial), capacity)
	copy(items, initial)

	s := &Store{
		items:    items,
		capacity: capacity,
		nextID:   nextID,
		persist:  p,
	}
	s.count.Store(int64(len(items)))
	return s
}

// SetEventLogger attaches a structured event logger.
func (s *Store) SetEventLogger(l *otel.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = l
}

// Append assigns the next ID to n, stores it, and evicts the oldest entry
// if the history is full. Always succeeds.
func (s *Store) Append(n model.Notification) uint64 {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	n.ID = s.nextID
	s.nextID++
	evicted := len(s.items) >= s.capacity
	if evicted {
		copy(s.items, s.items[1:])
		s.items = s.items[:len(s.items)-1]
	}
	s.items = append(s.items, n)
	snap := s.copyLocked()
	events := s.events
	s.mu.Unlock()

	if events != nil {
		extra := map[string]any{"evicted": evicted}
		events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindStoreAppend, Comp: "history",
			ID: n.ID, Source: n.SourceName, Count: len(snap), Extra: extra})
	}
	s.save(snap, events)
	return n.ID
}

// Remove deletes the entry with id. Unknown IDs are a no-op.
// Reports whether an entry was removed.
func (s *Store) Remove(id uint64) bool {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	idx := -1
	for i := range s.items {
		if s.items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	snap := s.copyLocked()
	events := s.events
	s.mu.Unlock()

	if events != nil {
		events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindStoreRemove, Comp: "history",
			ID: id, Count: len(snap)})
	}
	s.save(snap, events)
	return true
}

// Clear empties the history unconditionally.
func (s *Store) Clear() {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	removed := len(s.items)
	s.items = s.items[:0]
	s.count.Store(0)
	events := s.events
	s.mu.Unlock()

	if events != nil {
		events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindStoreClear, Comp: "history",
			Count: removed})
	}
	s.save([]model.Notification{}, events)
}

// Snapshot returns a point-in-time copy, oldest first.
// The returned slice is safe to use without locks.
func (s *Store) Snapshot() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

// Count returns the current number of entries without taking the lock.
func (s *Store) Count() int {
	return int(s.count.Load())
}

// Capacity returns the eviction threshold.
func (s *Store) Capacity() int {
	return s.capacity
}

// copyLocked copies items and refreshes count. Caller must hold s.mu.
func (s *Store) copyLocked() []model.Notification {
	out := make([]model.Notification, len(s.items))
	copy(out, s.items)
	s.count.Store(int64(len(s.items)))
	return out
}

// save persists snap. Failures are logged; memory stays authoritative.
// Caller must hold s.saveMu.
func (s *Store) save(snap []model.Notification, events *otel.Logger) {
	if s.persist == nil {
		return
	}
	if err := s.persist.Save(snap); err != nil {
		logging.Warn("Notification snapshot save failed", "error", err, "count", len(snap))
		if events != nil {
			events.Error(otel.KindStoreSaveError, "history", err)
		}
	}
}
