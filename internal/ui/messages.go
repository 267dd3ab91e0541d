// Package ui provides the Bubble Tea notifications panel.
package ui

import "github.com/abelbrown/sidebar/internal/model"

// NotificationAdded is sent by the supervisor after each append.
// It is the repaint signal: the panel reloads from the history.
type NotificationAdded struct {
	ID uint64
}

// RefreshTick triggers periodic refresh.
type RefreshTick struct{}

// ItemsLoaded is sent when a history snapshot has been read.
// Items are newest-first.
type ItemsLoaded struct {
	Items []model.Notification
	Count int
}

// ItemRemoved is sent after a remove request completes.
type ItemRemoved struct {
	ID      uint64
	Removed bool
}

// HistoryCleared is sent after the history has been emptied.
type HistoryCleared struct {
	Removed int
}

// Copied is sent after a yank to the clipboard.
type Copied struct {
	ID  uint64
	Err error
}
