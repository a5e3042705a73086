package executor

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/soapbox/simon/internal/audit"
	"github.com/soapbox/simon/internal/clog"
	"github.com/soapbox/simon/internal/term"
)

// Options configures a Launcher.
type Options struct {
	// RemoteShell is the command that runs a line on the virtual machine,
	// e.g. "vagrant ssh". Empty disables remote execution.
	RemoteShell string
	// RemoteDir is the project directory on the virtual machine.
	RemoteDir string
	// RemoteByDefault makes ModeDefault resolve to ModeRemote.
	RemoteByDefault bool

	// Dir is the local working directory. Empty means the current one.
	Dir string
	// Node is the interpreter used by LaunchNode. Defaults to "node".
	Node string
	// DryRun prints each command line without running it; every command
	// succeeds immediately.
	DryRun bool
	// Audit records every command started. May be nil.
	Audit *audit.Logger
	// Attach keeps commands in simon's process group so that they can read
	// from and configure the controlling terminal. Set it when Stdin is a
	// terminal; otherwise each command gets a process group of its own.
	Attach bool

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Launcher starts commands and owns the registry of running ones.
type Launcher struct {
	opts     Options
	registry Registry

	stdout io.Writer
	stderr io.Writer

	hookMu sync.RWMutex
	hook   func()
}

// NewLauncher creates a Launcher. Nil writers default to os.Stdout and
// os.Stderr.
func NewLauncher(opts Options) *Launcher {
	if opts.Node == "" {
		opts.Node = "node"
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	l := &Launcher{opts: opts}
	l.stdout = &activityWriter{w: &syncWriter{w: opts.Stdout}, notify: l.activity}
	l.stderr = &activityWriter{w: &syncWriter{w: opts.Stderr}, notify: l.activity}
	return l
}

// SetActivityHook registers fn to be called whenever a child process writes
// output. Passing nil removes the hook.
func (l *Launcher) SetActivityHook(fn func()) {
	l.hookMu.Lock()
	defer l.hookMu.Unlock()
	l.hook = fn
}

func (l *Launcher) activity() {
	l.hookMu.RLock()
	fn := l.hook
	l.hookMu.RUnlock()
	if fn != nil {
		fn()
	}
}

// CommandLine returns the shell line Launch would run.
func (l *Launcher) CommandLine(name string, args []string, mode Mode) string {
	line := JoinLine(name, args)
	if l.remote(mode) {
		return RemoteLine(l.opts.RemoteShell, l.opts.RemoteDir, line)
	}
	return line
}

func (l *Launcher) remote(mode Mode) bool {
	switch mode {
	case ModeRemote:
		return true
	case ModeLocal:
		return false
	default:
		return l.opts.RemoteByDefault && l.opts.RemoteShell != ""
	}
}

// Launch starts name with args in the given mode. The returned handle is
// tracked until it completes. A launch failure does not return an error;
// the handle completes immediately with exit code -1 and Err set.
func (l *Launcher) Launch(name string, args []string, mode Mode) *Handle {
	if mode == ModeRemote && l.opts.RemoteShell == "" {
		h := newHandle(JoinLine(name, args))
		err := fmt.Errorf("no remote machine configured for %q", h.line)
		clog.Error("%v", err)
		h.finish(-1, err)
		l.auditLog(l.opts.Audit.LogFail(h.line, err))
		return h
	}
	return l.start(l.CommandLine(name, args, mode), false)
}

// LaunchNode runs a node script locally: node file args...
func (l *Launcher) LaunchNode(file string, args []string) *Handle {
	return l.Launch(l.opts.Node, append([]string{file}, args...), ModeLocal)
}

// Capture is Launch with standard output also recorded in the handle.
func (l *Launcher) Capture(name string, args []string, mode Mode) *Handle {
	if mode == ModeRemote && l.opts.RemoteShell == "" {
		return l.Launch(name, args, mode)
	}
	return l.start(l.CommandLine(name, args, mode), true)
}

// Track registers a process that was not started by Launch. It leaves the
// registry once its Done channel closes.
func (l *Launcher) Track(p Process) {
	l.registry.Add(p)
	go func() {
		<-p.Done()
		l.registry.Remove(p)
	}()
}

// CancelAll terminates every tracked process and returns how many there
// were. It is safe to call repeatedly.
func (l *Launcher) CancelAll() int {
	n, err := l.registry.CancelAll()
	if err != nil {
		clog.Warn("cancelling processes: %v", err)
	}
	if n > 0 {
		clog.Info("cancelled %d running process(es)", n)
	}
	return n
}

// Running returns the number of tracked processes.
func (l *Launcher) Running() int {
	return l.registry.Len()
}

func (l *Launcher) start(line string, capture bool) *Handle {
	term.Info("Running %s", line)
	if l.opts.DryRun {
		clog.Debug("executor: dry run %q", line)
		l.auditLog(l.opts.Audit.LogDryRun(line))
		return Completed(line, 0, "")
	}
	clog.Debug("executor: starting %q in %q", line, l.opts.Dir)

	h := newHandle(line)
	cmd := shellCommand(line)
	cmd.Dir = l.opts.Dir
	cmd.Stdin = l.opts.Stdin
	cmd.Stdout = l.stdout
	cmd.Stderr = l.stderr
	if capture {
		h.output = &lockedBuffer{}
		cmd.Stdout = io.MultiWriter(h.output, l.stdout)
	}
	if !l.opts.Attach {
		setupProcessGroup(cmd)
	}
	h.cmd = cmd

	if err := cmd.Start(); err != nil {
		err = fmt.Errorf("launch %q: %w", line, err)
		clog.Error("%v", err)
		h.finish(-1, err)
		l.auditLog(l.opts.Audit.LogFail(line, err))
		return h
	}
	started := time.Now()
	l.auditLog(l.opts.Audit.LogStart(line))

	l.registry.Add(h)
	go func() {
		code, err := exitResult(cmd.Wait())
		l.registry.Remove(h)
		cancelled := h.Cancelled()
		if cancelled {
			l.auditLog(l.opts.Audit.LogCancel(line, time.Since(started)))
		} else {
			l.auditLog(l.opts.Audit.LogComplete(line, code, time.Since(started)))
		}
		// Logged before Done closes: once it does, the prompt may be
		// reading the terminal again.
		logCompletion(line, code, cancelled)
		h.finish(code, err)
	}()

	return h
}

func (l *Launcher) auditLog(err error) {
	if err != nil {
		clog.Warn("audit: %v", err)
	}
}

func logCompletion(line string, code int, cancelled bool) {
	switch {
	case cancelled:
		clog.Info("%q was cancelled", line)
	case code != 0:
		clog.Warn("%q may not have completed successfully (exit code %d)", line, code)
	default:
		clog.Info("%q completed successfully", line)
	}
}

// syncWriter serialises writes from concurrent child processes.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

type activityWriter struct {
	w      io.Writer
	notify func()
}

func (a *activityWriter) Write(p []byte) (int, error) {
	n, err := a.w.Write(p)
	a.notify()
	return n, err
}
