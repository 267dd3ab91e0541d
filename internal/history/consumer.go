package history

import "github.com/abelbrown/sidebar/internal/model"

// Consumer is the surface the presentation loop reads every frame.
// It shares the Store's handle; nothing here blocks on ingestion.
type Consumer interface {
	Snapshot() []model.Notification
	Count() int
	Remove(id uint64) bool
	Clear()
}

var _ Consumer = (*Store)(nil)
