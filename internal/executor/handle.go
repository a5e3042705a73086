package executor

import (
	"bytes"
	"errors"
	"os/exec"
	"sync"
)

// Handle is one spawned command. It completes exactly once; the exit code
// and error are stable after Done is closed.
type Handle struct {
	line string
	cmd  *exec.Cmd

	done chan struct{}

	mu        sync.Mutex
	code      int
	err       error
	cancelled bool
	output    *lockedBuffer
}

func newHandle(line string) *Handle {
	return &Handle{
		line: line,
		done: make(chan struct{}),
	}
}

// Completed returns a handle for line that has already finished with code.
// output is returned by Output.
func Completed(line string, code int, output string) *Handle {
	h := newHandle(line)
	h.output = &lockedBuffer{}
	h.output.buf.WriteString(output)
	h.finish(code, nil)
	return h
}

// Command returns the shell line the handle runs.
func (h *Handle) Command() string {
	return h.line
}

// Done is closed when the command has exited or failed to launch.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// ExitCode returns the exit code. It is 0 until Done is closed, and -1 if
// the command could not be launched or was killed by a signal.
func (h *Handle) ExitCode() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.code
}

// Err returns the launch or wait error, if any. A plain non-zero exit is
// reported through ExitCode only.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Wait blocks until the command finishes and returns its exit code.
func (h *Handle) Wait() int {
	<-h.done
	return h.ExitCode()
}

// Cancelled reports whether Cancel terminated the command.
func (h *Handle) Cancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

// Output returns the captured standard output. It is empty unless the
// handle was started by Launcher.Capture.
func (h *Handle) Output() string {
	if h.output == nil {
		return ""
	}
	return h.output.String()
}

// Cancel terminates the command and everything it spawned.
func (h *Handle) Cancel() error {
	select {
	case <-h.done:
		return nil
	default:
	}

	h.mu.Lock()
	h.cancelled = true
	h.mu.Unlock()

	if h.cmd == nil || h.cmd.Process == nil {
		return nil
	}
	return terminate(h.cmd)
}

// finish records the result and closes Done. It must be called once.
func (h *Handle) finish(code int, err error) {
	h.mu.Lock()
	h.code = code
	h.err = err
	h.mu.Unlock()
	close(h.done)
}

// exitResult maps the error returned by exec.Cmd.Wait to an exit code and
// the error worth keeping.
func exitResult(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
