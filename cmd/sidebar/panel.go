package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/sidebar/internal/config"
	"github.com/abelbrown/sidebar/internal/coord"
	"github.com/abelbrown/sidebar/internal/logging"
	"github.com/abelbrown/sidebar/internal/otel"
	"github.com/abelbrown/sidebar/internal/store"
	"github.com/abelbrown/sidebar/internal/ui"
)

// runPanel wires the pipeline: snapshot -> history <- supervisor, with the
// panel reading the history and the supervisor sending repaints.
func runPanel(cmd *cobra.Command, _ []string) error {
	if err := logging.Init(config.Dir()); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Close()

	ring := otel.NewRingBuffer(otel.DefaultRingSize)
	events, closeEvents, err := otel.OpenFile(config.EventLogPath())
	if err != nil {
		logging.Warn("Event log unavailable, keeping events in memory only", "error", err)
		events = otel.NewNullLogger()
		closeEvents = events.Close
	}
	defer closeEvents()
	events.SetRingBuffer(ring)
	events.Info(otel.KindStartup, "main", "sidebar starting")
	logging.Info("Starting sidebar", "session", events.SessionID(), "snapshot", cfg.Notifications.SnapshotPath)

	// Sole writer of the snapshot for as long as the panel runs.
	lock, err := store.AcquireLock(cfg.Notifications.SnapshotPath)
	if err != nil {
		if errors.Is(err, store.ErrLocked) {
			return fmt.Errorf("sidebar is already running: %w", err)
		}
		return err
	}
	defer lock.Release()

	h, _ := openHistory(cfg, events)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	app := ui.NewApp(ui.Config{
		History:      h,
		PollInterval: cfg.UI.PollInterval,
		Ring:         ring,
		Events:       events,
	})
	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(gctx))

	monitor := coord.NewDBusMonitor(cfg.Notifications.Command, cfg.Notifications.Args)
	supervisor := coord.NewSupervisor(h, monitor, events, supervisorOptions(cfg))

	g.Go(func() error {
		return supervisor.Run(gctx, program)
	})
	g.Go(func() error {
		// Quitting the panel stops the supervisor too.
		defer cancel()
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})

	err = g.Wait()
	events.Info(otel.KindShutdown, "main", "sidebar stopped")
	logging.Info("Sidebar stopped", "notifications", h.Count())
	if err != nil {
		return fmt.Errorf("running panel: %w", err)
	}
	return nil
}
