package procexec

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when the binary cannot be started because it does
// not exist or is not executable.
var ErrNotFound = errors.New("executable not found")

// DefaultGrace is the SIGTERM to SIGKILL interval used when a command sets none.
const DefaultGrace = 10 * time.Second

const tailLines = 20

// Command describes a single external invocation.
type Command struct {
	Binary string
	Args   []string
	Dir    string
	Env    []string
	// Grace bounds how long a cancelled process group may take to exit.
	Grace time.Duration
	// IdleAfter enables the watchdog: OnIdle fires once each time no output
	// line has arrived for this long.
	IdleAfter time.Duration
	OnIdle    func(silence time.Duration)
}

// LineFunc receives one line of tool output with the trailing newline removed.
// Stdout and stderr callbacks may run concurrently.
type LineFunc func(line string)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, cmd Command, onStdout, onStderr LineFunc) error
}

// ExitError reports a non-zero exit along with the last stderr lines.
type ExitError struct {
	Binary string
	Code   int
	Tail   []string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Binary, e.Code)
	if last := e.LastLine(); last != "" {
		msg += ": " + last
	}
	return msg
}

// LastLine returns the final non-empty stderr line, if any.
func (e *ExitError) LastLine() string {
	for i := len(e.Tail) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(e.Tail[i]); line != "" {
			return line
		}
	}
	return ""
}

// Output returns the captured stderr tail joined with newlines.
func (e *ExitError) Output() string {
	return strings.Join(e.Tail, "\n")
}

// Exec is the production executor.
type Exec struct{}

// Run starts the command, streams output lines to the callbacks and waits
// for it to exit. A cancelled or expired context is reported as ctx.Err().
func (Exec) Run(ctx context.Context, c Command, onStdout, onStderr LineFunc) error {
	binary := strings.TrimSpace(c.Binary)
	if binary == "" {
		return fmt.Errorf("%w: empty command", ErrNotFound)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	grace := c.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}

	cmd := exec.CommandContext(ctx, binary, c.Args...) //nolint:gosec
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = c.Env
	}

	var watchdog *idleWatchdog
	if c.IdleAfter > 0 && c.OnIdle != nil {
		watchdog = newIdleWatchdog(c.IdleAfter, c.OnIdle)
		defer watchdog.stop()
	}

	tail := &lineTail{limit: tailLines}
	stdout := newLineWriter(func(line string) {
		watchdog.touch()
		if onStdout != nil {
			onStdout(line)
		}
	})
	stderr := newLineWriter(func(line string) {
		watchdog.touch()
		tail.add(line)
		if onStderr != nil {
			onStderr(line)
		}
	})
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	killer := configureProcessGroup(cmd, grace)
	defer killer.stop()

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || isNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, binary)
		}
		return fmt.Errorf("start %s: %w", binary, err)
	}
	err := cmd.Wait()
	stdout.Flush()
	stderr.Flush()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Binary: binary, Code: exitErr.ExitCode(), Tail: tail.lines()}
		}
		return fmt.Errorf("wait %s: %w", binary, err)
	}
	return nil
}

type lineTail struct {
	mu    sync.Mutex
	limit int
	buf   []string
}

func (t *lineTail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, line)
	if len(t.buf) > t.limit {
		t.buf = t.buf[len(t.buf)-t.limit:]
	}
}

func (t *lineTail) lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.buf...)
}
