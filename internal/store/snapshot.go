// Package store persists the notification history as a JSON snapshot.
//
// The snapshot is the only durable copy of the history. It is rewritten in
// full after every mutation and read once at startup.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/abelbrown/sidebar/internal/logging"
	"github.com/abelbrown/sidebar/internal/model"
)

// ErrCorrupt wraps a snapshot that exists but cannot be decoded.
var ErrCorrupt = errors.New("notification snapshot is corrupt")

// legacyTimeLayout is the clock-only timestamp older snapshots stored.
const legacyTimeLayout = "15:04:05"

// Snapshot reads and writes the history file at a fixed path.
// Not safe for concurrent Save calls; history.Store serializes them.
type Snapshot struct {
	path string
}

// NewSnapshot creates a Snapshot backed by path.
func NewSnapshot(path string) *Snapshot {
	return &Snapshot{path: path}
}

// Path returns the snapshot file path.
func (s *Snapshot) Path() string {
	return s.path
}

// record accepts both the current schema and the older app_name/timestamp one.
type record struct {
	ID         uint64     `json:"id"`
	SourceName string     `json:"source_name"`
	AppName    string     `json:"app_name"`
	Summary    string     `json:"summary"`
	Body       string     `json:"body"`
	ObservedAt *time.Time `json:"observed_at"`
	Timestamp  string     `json:"timestamp"`
}

// Load returns the stored history (oldest first) and its largest ID.
// A missing file is a first run: empty history, nil error. An unreadable or
// undecodable file also yields an empty history, with the error returned so
// callers can report it; ErrCorrupt is wrapped for decode failures.
func (s *Snapshot) Load() ([]model.Notification, uint64, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logging.Info("No notification snapshot, starting fresh", "path", s.path)
			return []model.Notification{}, 0, nil
		}
		logging.Warn("Failed to read notification snapshot", "path", s.path, "error", err)
		return []model.Notification{}, 0, fmt.Errorf("read snapshot: %w", err)
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		logging.Warn("Failed to parse notification snapshot", "path", s.path, "error", err)
		return []model.Notification{}, 0, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}

	// Legacy clock-only timestamps take their date from the file.
	day := time.Now()
	if info, err := os.Stat(s.path); err == nil {
		day = info.ModTime()
	}

	items := make([]model.Notification, 0, len(records))
	for _, r := range records {
		items = append(items, r.notification(day))
	}
	maxID := model.MaxID(items)
	logging.Info("Loaded notification snapshot", "path", s.path, "count", len(items), "max_id", maxID)
	return items, maxID, nil
}

func (r record) notification(day time.Time) model.Notification {
	n := model.Notification{
		ID:         r.ID,
		SourceName: r.SourceName,
		Summary:    r.Summary,
		Body:       r.Body,
	}
	if n.SourceName == "" {
		n.SourceName = r.AppName
	}
	switch {
	case r.ObservedAt != nil:
		n.ObservedAt = *r.ObservedAt
	case r.Timestamp != "":
		if clock, err := time.ParseInLocation(legacyTimeLayout, r.Timestamp, time.Local); err == nil {
			y, m, d := day.In(time.Local).Date()
			n.ObservedAt = time.Date(y, m, d, clock.Hour(), clock.Minute(), clock.Second(), 0, time.Local)
		}
	}
	return n
}

// Save overwrites the snapshot with items. The write goes to a temporary
// file in the same directory and is renamed into place.
func (s *Snapshot) Save(items []model.Notification) error {
	if items == nil {
		items = []model.Notification{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".notifications-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
