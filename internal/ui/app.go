package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/sidebar/internal/history"
	"github.com/abelbrown/sidebar/internal/model"
	"github.com/abelbrown/sidebar/internal/otel"
)

// DefaultPollInterval is the fallback refresh period.
const DefaultPollInterval = time.Second

// Config wires the App to the history and observability.
type Config struct {
	History      history.Consumer
	PollInterval time.Duration
	Ring         *otel.RingBuffer // debug overlay source, optional
	Events       *otel.Logger     // key press events, optional
	// Copy writes to the system clipboard. Defaults to clipboard.WriteAll.
	Copy func(string) error
}

// App is the root Bubble Tea model.
// IMPORTANT: Update never touches the history directly. Reads and mutations
// run inside Cmds and come back as messages.
type App struct {
	history      history.Consumer
	pollInterval time.Duration
	ring         *otel.RingBuffer
	events       *otel.Logger
	copy         func(string) error

	keys keyMap
	help help.Model

	items        []model.Notification // newest-first
	count        int
	cursor       int
	err          error
	flash        string
	confirmClear bool
	debugVisible bool
	width        int
	height       int
	ready        bool
}

// NewApp creates an App from cfg.
func NewApp(cfg Config) App {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Copy == nil {
		cfg.Copy = clipboard.WriteAll
	}
	return App{
		history:      cfg.History,
		pollInterval: cfg.PollInterval,
		ring:         cfg.Ring,
		events:       cfg.Events,
		copy:         cfg.Copy,
		keys:         defaultKeyMap(),
		help:         help.New(),
	}
}

// Init loads the history and starts the poll tick.
func (a App) Init() tea.Cmd {
	return tea.Batch(a.loadItems(), a.tick())
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		a.ready = true
		return a, nil

	case NotificationAdded:
		return a, a.loadItems()

	case RefreshTick:
		return a, tea.Batch(a.loadItems(), a.tick())

	case ItemsLoaded:
		a.items = msg.Items
		a.count = msg.Count
		if a.cursor >= len(a.items) {
			a.cursor = max(len(a.items)-1, 0)
		}
		return a, nil

	case ItemRemoved:
		if !msg.Removed {
			a.flash = fmt.Sprintf("#%d already gone", msg.ID)
		}
		return a, a.loadItems()

	case HistoryCleared:
		a.flash = fmt.Sprintf("cleared %d", msg.Removed)
		a.cursor = 0
		return a, a.loadItems()

	case Copied:
		if msg.Err != nil {
			a.err = fmt.Errorf("copy to clipboard: %w", msg.Err)
		} else {
			a.flash = "copied"
		}
		return a, nil
	}

	return a, nil
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindKeyPress, Comp: "ui", Msg: msg.String()})

	// Clear any transient state on key press
	a.err = nil
	a.flash = ""
	confirming := a.confirmClear
	a.confirmClear = false

	if a.debugVisible {
		switch {
		case key.Matches(msg, a.keys.Debug):
			a.debugVisible = false
		case key.Matches(msg, a.keys.Quit):
			return a, tea.Quit
		}
		return a, nil
	}

	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Down):
		if a.cursor < len(a.items)-1 {
			a.cursor++
		}

	case key.Matches(msg, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}

	case key.Matches(msg, a.keys.Home):
		a.cursor = 0

	case key.Matches(msg, a.keys.End):
		if len(a.items) > 0 {
			a.cursor = len(a.items) - 1
		}

	case key.Matches(msg, a.keys.Remove):
		if n, ok := a.selected(); ok {
			return a, a.removeItem(n.ID)
		}

	case key.Matches(msg, a.keys.Clear):
		if len(a.items) == 0 {
			return a, nil
		}
		if !confirming {
			a.confirmClear = true
			a.flash = "press C again to clear all"
			return a, nil
		}
		return a, a.clearHistory()

	case key.Matches(msg, a.keys.Yank):
		if n, ok := a.selected(); ok {
			return a, a.copyItem(n)
		}

	case key.Matches(msg, a.keys.Debug):
		a.debugVisible = true

	case key.Matches(msg, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
	}

	return a, nil
}

func (a App) selected() (model.Notification, bool) {
	if a.cursor < 0 || a.cursor >= len(a.items) {
		return model.Notification{}, false
	}
	return a.items[a.cursor], true
}

func (a App) loadItems() tea.Cmd {
	h := a.history
	if h == nil {
		return nil
	}
	return func() tea.Msg {
		snap := h.Snapshot()
		return ItemsLoaded{Items: newestFirst(snap), Count: len(snap)}
	}
}

func (a App) removeItem(id uint64) tea.Cmd {
	h := a.history
	if h == nil {
		return nil
	}
	return func() tea.Msg {
		return ItemRemoved{ID: id, Removed: h.Remove(id)}
	}
}

func (a App) clearHistory() tea.Cmd {
	h := a.history
	if h == nil {
		return nil
	}
	return func() tea.Msg {
		n := h.Count()
		h.Clear()
		return HistoryCleared{Removed: n}
	}
}

func (a App) copyItem(n model.Notification) tea.Cmd {
	write := a.copy
	text := n.Title()
	if n.Body != "" {
		text += "\n" + n.Body
	}
	return func() tea.Msg {
		return Copied{ID: n.ID, Err: write(text)}
	}
}

func (a App) tick() tea.Cmd {
	return tea.Tick(a.pollInterval, func(time.Time) tea.Msg {
		return RefreshTick{}
	})
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	if a.debugVisible {
		return debugOverlay(a.ring, a.width, a.height) + "\n" + debugStatusBar(a.width)
	}

	helpView := a.help.View(a.keys)
	helpLines := strings.Count(helpView, "\n") + 1

	// header, preview, flash/error line, status bar (+ extra help lines)
	listHeight := a.height - 3 - helpLines
	var b strings.Builder
	b.WriteString(RenderHeader(a.count, a.width))
	b.WriteString("\n")
	b.WriteString(RenderList(a.items, a.cursor, a.width, listHeight))

	if n, ok := a.selected(); ok {
		b.WriteString(RenderPreview(n, a.width))
	}
	b.WriteString("\n")

	switch {
	case a.err != nil:
		b.WriteString(ErrorStyle.Width(a.width).Render("Error: " + a.err.Error()))
	case a.flash != "":
		b.WriteString(FlashStyle.Render(a.flash))
	}
	b.WriteString("\n")

	b.WriteString(RenderStatusBar(a.cursor, len(a.items), a.width, helpView))
	return b.String()
}

// Cursor returns the current cursor position (for testing).
func (a App) Cursor() int {
	return a.cursor
}

// Items returns the current items, newest-first (for testing).
func (a App) Items() []model.Notification {
	return a.items
}
