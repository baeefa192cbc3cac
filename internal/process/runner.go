package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"
)

// stderrTail is how much of a child's stderr is kept for error reporting.
const stderrTail = 4 << 10

// Runner runs an external command to completion.
//
// The installer only ever needs "run and check the exit status", so the
// interface is kept to that single method. Tests substitute a recording
// fake to avoid needing a Python interpreter.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExitError is returned by ExecRunner when a command could not be started
// or exited with a non-zero status.
type ExitError struct {
	// Command is the full argv, program first.
	Command []string

	// ExitCode is the process exit status, or -1 if it never ran.
	ExitCode int

	// Stderr is the last non-empty line within the final stderrTail bytes
	// the command wrote to stderr. For pip this is normally the
	// "ERROR: ..." summary line.
	Stderr string

	// Err is the underlying os/exec error.
	Err error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", strings.Join(e.Command, " "), e.ExitCode)
	if e.ExitCode < 0 {
		msg = fmt.Sprintf("%s could not be run", strings.Join(e.Command, " "))
	}
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Stderr)
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands with os/exec.
//
// Child output is streamed, not buffered, so long pip runs show progress
// as they go. The last stderrTail bytes of stderr are also kept so
// failures can carry the last error line.
type ExecRunner struct {
	// Stdout receives the child's stdout. Defaults to os.Stdout.
	Stdout io.Writer

	// Stderr receives the child's stderr. Defaults to os.Stderr.
	Stderr io.Writer

	// Logger receives a debug line per command. Defaults to log.Default().
	Logger *log.Logger
}

// NewExecRunner creates an ExecRunner that streams to the given writers.
func NewExecRunner(stdout, stderr io.Writer, logger *log.Logger) *ExecRunner {
	return &ExecRunner{Stdout: stdout, Stderr: stderr, Logger: logger}
}

// Run executes name with args and blocks until it exits.
// A non-zero exit or a start failure is returned as *ExitError.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	argv := append([]string{name}, args...)
	r.logger().Debug("running command", "cmd", strings.Join(argv, " "))

	// #nosec G204 — argv is built by the installer from fixed flag lists and
	// caller-supplied paths, never passed through a shell.
	cmd := exec.CommandContext(ctx, name, args...)

	captured := newTailBuffer(stderrTail)
	cmd.Stdout = writerOr(r.Stdout, os.Stdout)
	cmd.Stderr = io.MultiWriter(writerOr(r.Stderr, os.Stderr), captured)

	err := cmd.Run()
	if err == nil {
		return nil
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return &ExitError{
		Command:  argv,
		ExitCode: exitCode,
		Stderr:   lastLine(captured.String()),
		Err:      err,
	}
}

func (r *ExecRunner) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}

func writerOr(w, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}

// tailBuffer is an io.Writer that keeps only the last limit bytes written.
type tailBuffer struct {
	buf   []byte
	limit int
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{buf: make([]byte, 0, limit), limit: limit}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if n >= b.limit {
		b.buf = append(b.buf[:0], p[n-b.limit:]...)
		return n, nil
	}
	if over := len(b.buf) + n - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	b.buf = append(b.buf, p...)
	return n, nil
}

func (b *tailBuffer) String() string {
	return string(b.buf)
}

// lastLine returns the last non-blank line of s, trimmed.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
