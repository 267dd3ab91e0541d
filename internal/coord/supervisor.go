// Package coord keeps the bus monitor running and feeds its output to the
// trace parser.
package coord

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"

	"github.com/abelbrown/sidebar/internal/history"
	"github.com/abelbrown/sidebar/internal/logging"
	"github.com/abelbrown/sidebar/internal/model"
	"github.com/abelbrown/sidebar/internal/otel"
	"github.com/abelbrown/sidebar/internal/trace"
	"github.com/abelbrown/sidebar/internal/ui"
)

// DefaultRetryDelay is the wait after a failed spawn.
const DefaultRetryDelay = 5 * time.Second

// monitor interface for dependency injection (testing).
type monitor interface {
	Start(ctx context.Context) (Stream, error)
}

// repainter is satisfied by *tea.Program.
type repainter interface {
	Send(msg tea.Msg)
}

// Options tune supervision. Zero values take defaults.
type Options struct {
	// RetryDelay is the fixed wait after a spawn failure.
	RetryDelay time.Duration
	// RespawnRate and RespawnBurst optionally cap respawns after clean
	// exits. Zero means unlimited: every respawn is immediate.
	RespawnRate  rate.Limit
	RespawnBurst int
	// Member and Schema configure the trace parser.
	Member string
	Schema trace.Schema
}

func (o Options) withDefaults() Options {
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.RespawnRate <= 0 {
		o.RespawnRate = rate.Inf
	}
	if o.RespawnBurst < 1 {
		o.RespawnBurst = 1
	}
	if o.Member == "" {
		o.Member = trace.DefaultMember
	}
	if o.Schema == (trace.Schema{}) {
		o.Schema = trace.DefaultSchema
	}
	return o
}

// Supervisor keeps one monitor process alive and appends parsed
// notifications to the history. Context cancellation is the ONLY stop
// mechanism.
type Supervisor struct {
	history *history.Store
	monitor monitor
	events  *otel.Logger // optional: nil disables structured events
	opts    Options
	limiter *rate.Limiter
	wg      sync.WaitGroup
}

// NewSupervisor creates a Supervisor around the real bus monitor.
func NewSupervisor(h *history.Store, m *DBusMonitor, events *otel.Logger, opts Options) *Supervisor {
	return NewSupervisorWithMonitor(h, m, events, opts)
}

// NewSupervisorWithMonitor allows injecting a custom monitor (for testing).
func NewSupervisorWithMonitor(h *history.Store, m monitor, events *otel.Logger, opts Options) *Supervisor {
	opts = opts.withDefaults()
	return &Supervisor{
		history: h,
		monitor: m,
		events:  events,
		opts:    opts,
		limiter: rate.NewLimiter(opts.RespawnRate, opts.RespawnBurst),
	}
}

// Start runs supervision on a background goroutine and returns immediately.
// r may be nil; otherwise it receives ui.NotificationAdded per append.
func (s *Supervisor) Start(ctx context.Context, r repainter) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.Run(ctx, r)
	}()
}

// Wait blocks until the goroutine from Start exits.
// Call after canceling the context passed to Start.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

// Run supervises until ctx is cancelled. Spawn failures wait RetryDelay;
// clean exits and read errors respawn immediately, subject to the flap guard.
// Always returns nil: no failure here is fatal.
func (s *Supervisor) Run(ctx context.Context, r repainter) error {
	log := logging.WithPrefix("coord")
	if log != nil {
		log.Info("Notification listener starting")
	}

	for ctx.Err() == nil {
		stream, err := s.monitor.Start(ctx)
		if err != nil {
			logging.Warn("Failed to start bus monitor, retrying", "error", err, "delay", s.opts.RetryDelay)
			s.events.Error(otel.KindMonitorSpawnError, "coord", err)
			if !sleep(ctx, s.opts.RetryDelay) {
				break
			}
			continue
		}

		s.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindMonitorSpawn, Comp: "coord", PID: stream.PID()})
		started := time.Now()
		count, readErr := s.consume(stream, r)
		pid := stream.PID()
		_ = stream.Close() // exit status is not inspected

		exit := otel.Event{Level: otel.LevelInfo, Kind: otel.KindMonitorExit, Comp: "coord",
			PID: pid, Count: count, Dur: time.Since(started)}
		if readErr != nil {
			exit.Level = otel.LevelWarn
			exit.Err = readErr.Error()
		}
		s.events.Emit(exit)

		if ctx.Err() != nil {
			break
		}
		logging.Warn("Bus monitor exited, restarting", "pid", pid, "notifications", count, "error", readErr)

		if delay := s.limiter.Reserve().Delay(); delay > 0 {
			s.events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindMonitorThrottled, Comp: "coord", Dur: delay})
			if !sleep(ctx, delay) {
				break
			}
		}
	}

	if log != nil {
		log.Info("Notification listener stopped")
	}
	return nil
}

// consume parses one process's output until EOF or a read error.
// A fresh parser per process drops any call the previous process left open.
func (s *Supervisor) consume(stream Stream, r repainter) (int, error) {
	parser := trace.NewParser(s.opts.Member, s.opts.Schema)
	count := 0
	err := trace.Scan(stream, parser, func(n model.Notification) {
		id := s.history.Append(n)
		count++
		s.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindParseEmit, Comp: "coord",
			ID: id, Source: n.SourceName, Msg: n.Summary})
		if r != nil {
			r.Send(ui.NotificationAdded{ID: id})
		}
	})
	return count, err
}

// sleep waits d or until ctx is done. Reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
