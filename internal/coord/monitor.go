package coord

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"
)

// waitDelay bounds how long Close waits for the monitor's pipes after kill.
const waitDelay = 2 * time.Second

// Stream is the stdout of one running monitor process.
type Stream interface {
	io.Reader
	// Close stops the process (if still running) and reaps it.
	Close() error
	// PID returns the process ID, or 0 if unknown.
	PID() int
}

// DBusMonitor spawns the external bus monitor. Exit status and stderr are
// not inspected; only stdout matters.
type DBusMonitor struct {
	Command string
	Args    []string
}

// NewDBusMonitor creates a DBusMonitor for command and args.
func NewDBusMonitor(command string, args []string) *DBusMonitor {
	argsCopy := make([]string, len(args))
	copy(argsCopy, args)
	return &DBusMonitor{Command: command, Args: argsCopy}
}

// Start launches the process. Cancelling ctx kills it.
func (m *DBusMonitor) Start(ctx context.Context) (Stream, error) {
	cmd := exec.CommandContext(ctx, m.Command, m.Args...)
	cmd.WaitDelay = waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", m.Command, err)
	}
	return &procStream{cmd: cmd, stdout: stdout}, nil
}

type procStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser

	closeOnce sync.Once
	waitErr   error
}

func (p *procStream) Read(b []byte) (int, error) {
	return p.stdout.Read(b)
}

func (p *procStream) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Close kills the process if it outlived its stdout, then waits for it.
func (p *procStream) Close() error {
	p.closeOnce.Do(func() {
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		p.waitErr = p.cmd.Wait()
	})
	return p.waitErr
}
