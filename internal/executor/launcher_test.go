//go:build !windows

package executor

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soapbox/simon/internal/audit"
	"github.com/soapbox/simon/internal/clog"
	"github.com/soapbox/simon/internal/task"
)

// safeBuffer is a bytes.Buffer that may be written by child processes
// while the test reads it.
type safeBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *safeBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *safeBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func newTestLauncher(t *testing.T, opts Options) (*Launcher, *safeBuffer) {
	t.Helper()
	out := &safeBuffer{}
	opts.Stdout = out
	opts.Stderr = out
	return NewLauncher(opts), out
}

func TestLauncher_CommandLine(t *testing.T) {
	remote := NewLauncher(Options{RemoteShell: "vagrant ssh", RemoteDir: "/vagrant", RemoteByDefault: true})
	local := NewLauncher(Options{RemoteShell: "vagrant ssh", RemoteDir: "/vagrant"})
	noVM := NewLauncher(Options{RemoteByDefault: true})

	tests := []struct {
		name string
		l    *Launcher
		mode Mode
		want string
	}{
		{"default resolves remote", remote, ModeDefault, `vagrant ssh -c 'cd /vagrant && composer install'`},
		{"local overrides", remote, ModeLocal, "composer install"},
		{"default resolves local", local, ModeDefault, "composer install"},
		{"explicit remote", local, ModeRemote, `vagrant ssh -c 'cd /vagrant && composer install'`},
		{"no remote shell", noVM, ModeDefault, "composer install"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.l.CommandLine("composer", []string{"install"}, tt.mode))
		})
	}
}

func TestLauncher_LaunchSuccess(t *testing.T) {
	l, out := newTestLauncher(t, Options{})

	h := l.Launch("echo", []string{"hello"}, ModeLocal)

	assert.Equal(t, 0, h.Wait())
	assert.NoError(t, h.Err())
	assert.Equal(t, "echo hello", h.Command())
	assert.Contains(t, out.String(), "hello")
	assert.Empty(t, h.Output(), "output is only recorded by Capture")
}

func TestLauncher_LaunchExitCode(t *testing.T) {
	l, _ := newTestLauncher(t, Options{})

	h := l.Launch("exit", []string{"3"}, ModeDefault)

	assert.Equal(t, 3, h.Wait())
	assert.NoError(t, h.Err(), "a non-zero exit is not a launch error")
}

func TestLauncher_LaunchFailure(t *testing.T) {
	l, _ := newTestLauncher(t, Options{Dir: filepath.Join(t.TempDir(), "missing")})

	h := l.Launch("true", nil, ModeLocal)

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("handle did not complete after a launch failure")
	}
	assert.Equal(t, -1, h.ExitCode())
	assert.Error(t, h.Err())
	assert.Equal(t, 0, l.Running())
}

func TestLauncher_RemoteWithoutShell(t *testing.T) {
	l, _ := newTestLauncher(t, Options{})

	h := l.Launch("composer", []string{"install"}, ModeRemote)

	assert.Equal(t, -1, h.Wait())
	require.Error(t, h.Err())
	assert.Contains(t, h.Err().Error(), "no remote machine")
}

func TestLauncher_Capture(t *testing.T) {
	l, out := newTestLauncher(t, Options{})

	h := l.Capture("printf", []string{`'a\nb\n'`}, ModeLocal)

	assert.Equal(t, 0, h.Wait())
	assert.Equal(t, "a\nb\n", h.Output())
	assert.Contains(t, out.String(), "a\nb\n", "captured output is still forwarded")
}

func TestLauncher_LaunchNode(t *testing.T) {
	l, out := newTestLauncher(t, Options{Node: "echo"})

	h := l.LaunchNode("node_modules/grunt-cli/bin/grunt", []string{"watch"})

	assert.Equal(t, 0, h.Wait())
	assert.Equal(t, "echo node_modules/grunt-cli/bin/grunt watch", h.Command())
	assert.Contains(t, out.String(), "node_modules/grunt-cli/bin/grunt watch")
}

func TestLauncher_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	l, _ := newTestLauncher(t, Options{Dir: dir})

	h := l.Capture("pwd", nil, ModeLocal)

	require.Equal(t, 0, h.Wait())
	got, err := filepath.EvalSymlinks(strings.TrimSpace(h.Output()))
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLauncher_CancelAll(t *testing.T) {
	l, _ := newTestLauncher(t, Options{})

	a := l.Launch("sleep", []string{"30"}, ModeLocal)
	b := l.Launch("sleep 30 & sleep", []string{"30"}, ModeLocal)
	assert.Equal(t, 2, l.Running())

	assert.Equal(t, 2, l.CancelAll())

	for _, h := range []*Handle{a, b} {
		select {
		case <-h.Done():
		case <-time.After(5 * time.Second):
			t.Fatalf("%q was not terminated", h.Command())
		}
		assert.NotEqual(t, 0, h.ExitCode())
		assert.True(t, h.Cancelled())
	}

	assert.Equal(t, 0, l.Running())
	assert.Equal(t, 0, l.CancelAll(), "second CancelAll is a no-op")
}

func TestLauncher_RunningDropsFinished(t *testing.T) {
	l, _ := newTestLauncher(t, Options{})

	h := l.Launch("true", nil, ModeLocal)
	h.Wait()

	assert.Eventually(t, func() bool { return l.Running() == 0 }, time.Second, 10*time.Millisecond)
	assert.NoError(t, h.Cancel(), "cancelling a finished handle is a no-op")
	assert.False(t, h.Cancelled())
}

func TestLauncher_ActivityHook(t *testing.T) {
	l, _ := newTestLauncher(t, Options{})
	var calls atomic.Int32
	l.SetActivityHook(func() { calls.Add(1) })

	l.Launch("echo", []string{"tick"}, ModeLocal).Wait()
	assert.Positive(t, calls.Load())

	l.SetActivityHook(nil)
	before := calls.Load()
	l.Launch("echo", []string{"tock"}, ModeLocal).Wait()
	assert.Equal(t, before, calls.Load())
}

type fakeProcess struct {
	done      chan struct{}
	cancelled atomic.Bool
}

func newFakeProcess() *fakeProcess {
	return &fakeProcess{done: make(chan struct{})}
}

func (f *fakeProcess) Done() <-chan struct{} { return f.done }

func (f *fakeProcess) Cancel() error {
	if f.cancelled.CompareAndSwap(false, true) {
		close(f.done)
	}
	return nil
}

func TestLauncher_Track(t *testing.T) {
	l, _ := newTestLauncher(t, Options{})

	p := newFakeProcess()
	l.Track(p)
	assert.Equal(t, 1, l.Running())

	assert.Equal(t, 1, l.CancelAll())
	assert.True(t, p.cancelled.Load())
	assert.Equal(t, 0, l.Running())
}

func TestLauncher_TrackLeavesOnDone(t *testing.T) {
	l, _ := newTestLauncher(t, Options{})

	p := newFakeProcess()
	l.Track(p)
	close(p.done)

	assert.Eventually(t, func() bool { return l.Running() == 0 }, time.Second, 10*time.Millisecond)
}

func TestLauncher_DryRun(t *testing.T) {
	l, out := newTestLauncher(t, Options{DryRun: true, RemoteShell: "vagrant ssh", RemoteDir: "/vagrant", RemoteByDefault: true})

	h := l.Launch("exit", []string{"1"}, ModeDefault)

	assert.Equal(t, 0, h.Wait())
	assert.Equal(t, `vagrant ssh -c 'cd /vagrant && exit 1'`, h.Command())
	assert.Equal(t, 0, l.Running())
	assert.Empty(t, out.String())
}

func TestCompleted(t *testing.T) {
	h := Completed("vagrant box list", 0, "laravel/homestead (virtualbox)\n")

	select {
	case <-h.Done():
	default:
		t.Fatal("Completed handle is not done")
	}
	assert.Equal(t, "laravel/homestead (virtualbox)\n", h.Output())
	assert.NoError(t, h.Cancel())
	assert.Equal(t, 2, Completed("x", 2, "").ExitCode())
}

func TestLauncher_Audit(t *testing.T) {
	log := &safeBuffer{}
	l, _ := newTestLauncher(t, Options{Audit: audit.NewLogger(log, "shop")})

	require.Equal(t, 3, l.Launch("exit", []string{"3"}, ModeLocal).Wait())
	l.Launch("vagrant", []string{"up"}, ModeRemote).Wait()

	got := log.String()
	assert.Contains(t, got, `COMPLETE project=shop cmd="exit 3" exit=3`)
	assert.Contains(t, got, `START project=shop cmd="exit 3"`)
	assert.Contains(t, got, `FAIL project=shop cmd="vagrant up" reason=`)
}

func TestLauncher_AuditCancel(t *testing.T) {
	log := &safeBuffer{}
	l, _ := newTestLauncher(t, Options{Audit: audit.NewLogger(log, "shop")})

	h := l.Launch("sleep", []string{"30"}, ModeLocal)
	require.Contains(t, log.String(), "START")
	l.CancelAll()
	h.Wait()

	assert.Contains(t, log.String(), `CANCEL project=shop cmd="sleep 30"`)
}

func TestLauncher_AuditDryRun(t *testing.T) {
	log := &safeBuffer{}
	l, _ := newTestLauncher(t, Options{DryRun: true, Audit: audit.NewLogger(log, "shop")})

	l.Launch("npm", []string{"install"}, ModeLocal).Wait()

	assert.Contains(t, log.String(), `DRYRUN project=shop cmd="npm install"`)
}

func waitHandle(t *testing.T, h *Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("%q did not finish", h.Command())
	}
}

func TestLauncher_OwnProcessGroup(t *testing.T) {
	l, _ := newTestLauncher(t, Options{})

	h := l.Launch("exec sleep", []string{"30"}, ModeLocal)
	pgid, err := syscall.Getpgid(h.cmd.Process.Pid)
	require.NoError(t, err)
	assert.Equal(t, h.cmd.Process.Pid, pgid)

	require.NoError(t, h.Cancel())
	waitHandle(t, h)
}

func TestLauncher_AttachSharesProcessGroup(t *testing.T) {
	l, _ := newTestLauncher(t, Options{Attach: true})

	h := l.Launch("exec sleep", []string{"30"}, ModeLocal)
	pgid, err := syscall.Getpgid(h.cmd.Process.Pid)
	require.NoError(t, err)
	assert.Equal(t, syscall.Getpgrp(), pgid, "attached commands stay in the foreground group")

	// Only the command is signalled, never the group it shares with us.
	assert.Equal(t, 1, l.CancelAll())
	waitHandle(t, h)
	assert.True(t, h.Cancelled())
	assert.NotEqual(t, 0, h.ExitCode())
}

func TestLauncher_CancelledServerStopsTaskList(t *testing.T) {
	l, out := newTestLauncher(t, Options{})
	var nextRan atomic.Bool

	tbl := task.NewTable()
	tbl.MustRegister("server", func(context.Context, []string) (task.Awaitable, error) {
		// Shuts down cleanly on SIGTERM, as dev servers do.
		return l.Launch("trap 'exit 0' TERM; echo ready; sleep 30 & wait", nil, ModeLocal), nil
	})
	tbl.MustRegister("next", func(context.Context, []string) (task.Awaitable, error) {
		nextRan.Store(true)
		return nil, nil
	})

	run := task.NewEngine(tbl).Run(context.Background(), task.List{task.Op("server"), task.Op("next")})
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "ready") }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, l.CancelAll())

	select {
	case <-run.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish after CancelAll")
	}
	res := run.Result()
	assert.False(t, res.OK)
	assert.Equal(t, "server", res.FailedTask)
	assert.ErrorIs(t, res.Cause, task.ErrCancelled)
	assert.False(t, nextRan.Load(), "the step after a cancelled one must not start")
}

func TestLauncher_LogsCompletionBeforeDone(t *testing.T) {
	logs := &safeBuffer{}
	old := clog.ReplaceGlobal(clog.TestLogger(logs))
	defer clog.ReplaceGlobal(old)

	l, _ := newTestLauncher(t, Options{})
	h := l.Launch("exit", []string{"3"}, ModeLocal)
	waitHandle(t, h)

	// Nothing may be logged once Done is closed.
	assert.Contains(t, logs.String(), "may not have completed successfully (exit code 3)")
}
