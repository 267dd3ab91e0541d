package main

import (
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/abelbrown/sidebar/internal/config"
	"github.com/abelbrown/sidebar/internal/coord"
	"github.com/abelbrown/sidebar/internal/history"
	"github.com/abelbrown/sidebar/internal/otel"
	"github.com/abelbrown/sidebar/internal/store"
)

// openHistory loads the snapshot and builds the history around it.
// A corrupt or unreadable snapshot degrades to an empty history.
func openHistory(c *config.Config, events *otel.Logger) (*history.Store, *store.Snapshot) {
	snap := store.NewSnapshot(c.Notifications.SnapshotPath)
	items, maxID, err := snap.Load()

	ev := otel.Event{Level: otel.LevelInfo, Kind: otel.KindStoreLoad, Comp: "main", ID: maxID, Count: len(items)}
	if err != nil {
		ev.Level = otel.LevelWarn
		ev.Err = err.Error()
	}
	events.Emit(ev)

	h := history.New(items, c.Notifications.Capacity, snap)
	h.SetEventLogger(events)
	return h, snap
}

// editHistory runs fn on the stored history while holding the snapshot lock.
// The running panel holds that lock, so edits never race its writes or
// reuse its IDs.
func editHistory(c *config.Config, fn func(h *history.Store) error) error {
	lock, err := store.AcquireLock(c.Notifications.SnapshotPath)
	if err != nil {
		if errors.Is(err, store.ErrLocked) {
			return fmt.Errorf("%w: quit the panel first", err)
		}
		return err
	}
	defer lock.Release()

	h, _ := openHistory(c, nil)
	return fn(h)
}

func supervisorOptions(c *config.Config) coord.Options {
	n := c.Notifications
	return coord.Options{
		RetryDelay:   n.RetryDelay,
		RespawnRate:  rate.Limit(n.RespawnPerSecond),
		RespawnBurst: n.RespawnBurst,
		Member:       n.Member,
		Schema:       n.Schema,
	}
}

// truncate shortens a string to max runes, appending "..." if truncated.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
