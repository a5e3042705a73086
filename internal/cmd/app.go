package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soapbox/simon/internal/audit"
	"github.com/soapbox/simon/internal/clog"
	"github.com/soapbox/simon/internal/config"
	"github.com/soapbox/simon/internal/executor"
	"github.com/soapbox/simon/internal/hosts"
	"github.com/soapbox/simon/internal/simon"
	"github.com/soapbox/simon/internal/task"
	"github.com/soapbox/simon/internal/term"
)

// app is everything one simon invocation runs with.
type app struct {
	cfg      *config.Effective
	launcher *executor.Launcher
	simon    *simon.Simon
	auditLog io.Closer
}

// streams are the standard streams handed to launched commands. Nil
// writers mean os.Stdout and os.Stderr; a nil reader gives commands no
// input.
type streams struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// loadConfig resolves the configuration for the current directory and sets
// up logging and output from it.
func loadConfig(requireProject bool) (*config.Effective, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := config.ResolveConfig(dir, config.Overrides{
		Local:          opts.local,
		HHVM:           opts.super,
		RequireProject: requireProject,
	})
	if err != nil {
		if errors.Is(err, config.ErrNoProjectConfig) {
			return nil, fmt.Errorf("no simon.yaml found in %s; run 'simon config init' to create one", dir)
		}
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	term.SetSilent(opts.silent)
	if err := clog.Configure(cfg.LogFile, opts.debug, false); err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	if !opts.debug {
		clog.SetLevel(clog.ParseLevel(cfg.LogLevel))
	}
	clog.Debug("config: project=%q remote=%v hhvm=%v", cfg.ProjectFile, cfg.RemoteByDefault(), cfg.HHVM)
	return cfg, nil
}

func newApp(cfg *config.Effective, s streams) (*app, error) {
	a := &app{cfg: cfg}

	var auditor *audit.Logger
	if cfg.AuditFile != "" {
		f, err := clog.OpenLogFile(cfg.AuditFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		a.auditLog = f
		auditor = audit.NewLogger(f, filepath.Base(cfg.ProjectDir))
	}

	a.launcher = executor.NewLauncher(executor.Options{
		RemoteShell:     cfg.RemoteShell,
		RemoteDir:       cfg.RemoteDir,
		RemoteByDefault: cfg.RemoteByDefault(),
		Dir:             cfg.ProjectDir,
		DryRun:          opts.dryRun,
		Audit:           auditor,
		Attach:          term.IsTerminal(s.stdin),
		Stdin:           s.stdin,
		Stdout:          s.stdout,
		Stderr:          s.stderr,
	})

	sim, err := simon.New(simon.Options{
		Config:    cfg,
		Launcher:  a.launcher,
		Hosts:     hosts.New(cfg.HostsFile),
		Subdomain: opts.subdomain,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.simon = sim
	return a, nil
}

func (a *app) close() {
	if n := a.launcher.CancelAll(); n > 0 {
		clog.Debug("cancelled %d command(s) on exit", n)
	}
	if a.auditLog != nil {
		_ = a.auditLog.Close()
	}
	_ = clog.Close()
}

// operations is what runScripted needs from simon.Simon.
type operations interface {
	Dispatch(ctx context.Context, name string, args []string) (task.Awaitable, error)
	CancelAll() int
}

// requiresProject reports whether the named operation needs a project
// config to run.
func requiresProject(name string) bool {
	return name != "help" && name != "list"
}

// runOperation runs one operation from the command line and waits for it.
func runOperation(cmd *cobra.Command, name string, args []string) error {
	cfg, err := loadConfig(requiresProject(name))
	if err != nil {
		return err
	}
	a, err := newApp(cfg, streams{stdin: os.Stdin})
	if err != nil {
		return err
	}
	defer a.close()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	return runScripted(cmd.Context(), a.simon, name, args, sigs)
}

// runScripted dispatches name and waits for it to finish. Each signal
// cancels the operation and every running command; the operation then
// finishes with its failure code.
func runScripted(ctx context.Context, ops operations, name string, args []string, signals <-chan os.Signal) error {
	aw, err := ops.Dispatch(ctx, name, args)
	if err != nil {
		return err
	}
	if aw == nil {
		return nil
	}

	for {
		select {
		case <-aw.Done():
			return exitError(aw.ExitCode())
		case sig := <-signals:
			clog.Debug("received %v, cancelling", sig)
			term.Warn("Cancelling running task(s)")
			if c, ok := aw.(interface{ Cancel() error }); ok {
				if err := c.Cancel(); err != nil {
					clog.Warn("cancel %s: %v", name, err)
				}
			}
			ops.CancelAll()
		}
	}
}
