// Package model defines the records shared by the notification pipeline.
package model

import "time"

// Notification is one observed "show notification" call.
// ID is assigned by history.Store; the parser leaves it zero.
type Notification struct {
	ID         uint64    `json:"id"`
	SourceName string    `json:"source_name"`
	Summary    string    `json:"summary"`
	Body       string    `json:"body"`
	ObservedAt time.Time `json:"observed_at"`
}

// Title returns the best single-line label: the summary, else the source.
func (n Notification) Title() string {
	if n.Summary != "" {
		return n.Summary
	}
	return n.SourceName
}

// MaxID returns the largest ID in ns, or 0 for an empty slice.
func MaxID(ns []Notification) uint64 {
	var max uint64
	for _, n := range ns {
		if n.ID > max {
			max = n.ID
		}
	}
	return max
}
