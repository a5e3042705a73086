// Package simon is the command surface: every named operation a user can
// run, from the command line or the interactive prompt, registered in a
// task.Table.
package simon

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/soapbox/simon/internal/config"
	"github.com/soapbox/simon/internal/executor"
	"github.com/soapbox/simon/internal/hosts"
	"github.com/soapbox/simon/internal/task"
)

// Node scripts run by the grunt and bower operations, relative to the
// project directory.
var (
	GruntScript = filepath.Join("node_modules", "grunt-cli", "bin", "grunt")
	BowerScript = filepath.Join("node_modules", "bower", "bin", "bower")
)

// Launcher is the part of executor.Launcher the operations use.
type Launcher interface {
	Launch(name string, args []string, mode executor.Mode) *executor.Handle
	LaunchNode(file string, args []string) *executor.Handle
	Capture(name string, args []string, mode executor.Mode) *executor.Handle
	Track(p executor.Process)
	CancelAll() int
}

// HostsEditor is the part of hosts.Editor the add and remove operations use.
type HostsEditor interface {
	AddEntry(host, addr string) bool
	RemoveEntry(host string) bool
}

var _ HostsEditor = (*hosts.Editor)(nil)

// Options configures a Simon.
type Options struct {
	Config   *config.Effective
	Launcher Launcher
	Hosts    HostsEditor
	// Subdomain is prefixed to the configured domain by add and remove
	// when they are called without an argument.
	Subdomain string
}

// Simon holds the operation table and everything the operations need.
type Simon struct {
	cfg       *config.Effective
	launcher  Launcher
	hosts     HostsEditor
	subdomain string

	table  *task.Table
	engine *task.Engine

	watchMu  sync.Mutex
	watching bool
}

// New creates a Simon with all operations registered. It fails when a
// configured package manager is not an operation.
func New(opts Options) (*Simon, error) {
	if opts.Config == nil || opts.Launcher == nil || opts.Hosts == nil {
		return nil, fmt.Errorf("simon: config, launcher and hosts editor are required")
	}

	s := &Simon{
		cfg:       opts.Config,
		launcher:  opts.Launcher,
		hosts:     opts.Hosts,
		subdomain: opts.Subdomain,
		table:     task.NewTable(),
	}
	s.engine = task.NewEngine(s.table)

	if err := s.register(); err != nil {
		return nil, err
	}
	for _, m := range s.cfg.Managers {
		if !s.table.Has(m) {
			return nil, fmt.Errorf("simon: package manager %q is not an operation", m)
		}
	}
	if !s.table.Has(s.cfg.Fallback) {
		return nil, fmt.Errorf("simon: fallback %q is not an operation", s.cfg.Fallback)
	}
	return s, nil
}

// Table returns the operation table.
func (s *Simon) Table() *task.Table {
	return s.table
}

// Engine returns the engine that runs composite operations.
func (s *Simon) Engine() *task.Engine {
	return s.engine
}

// Has reports whether name is a registered operation.
func (s *Simon) Has(name string) bool {
	return s.table.Has(name)
}

// Names returns the registered operation names.
func (s *Simon) Names() []string {
	return s.table.Names()
}

// Dispatch runs the named operation.
func (s *Simon) Dispatch(ctx context.Context, name string, args []string) (task.Awaitable, error) {
	return s.table.Dispatch(ctx, name, args)
}

// CancelAll terminates everything started by the operations.
func (s *Simon) CancelAll() int {
	return s.launcher.CancelAll()
}

// Host returns the host name add and remove use for subdomain, which may be
// empty.
func (s *Simon) Host(subdomain string) string {
	if subdomain == "" {
		return s.cfg.Domain
	}
	return subdomain + "." + s.cfg.Domain
}
