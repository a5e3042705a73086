package simon

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/soapbox/simon/internal/clog"
	"github.com/soapbox/simon/internal/executor"
	"github.com/soapbox/simon/internal/hosts"
	"github.com/soapbox/simon/internal/task"
	"github.com/soapbox/simon/internal/term"
	"github.com/soapbox/simon/internal/watch"
)

// Operation describes a registered operation for help output.
type Operation struct {
	Name    string
	Summary string
}

// Operations lists the built-in operations in help order.
var Operations = []Operation{
	{"start", "Provision the virtual machine, install dependencies, migrate and start the server"},
	{"install", "Install dependencies with every package manager and start the server"},
	{"update", "Update and install dependencies with every package manager and start the server"},
	{"refresh", "Refresh and seed the database"},
	{"permissions", "Make app/storage writable"},
	{"watch", "Rebuild when files change"},
	{"add", "Add the project domain to the hosts file"},
	{"remove", "Remove the project domain from the hosts file"},
	{"npm", "Run npm locally"},
	{"vagrant", "Run vagrant locally"},
	{"composer", "Run composer"},
	{"php", "Run php (hhvm with --super)"},
	{"artisan", "Run php artisan"},
	{"phpunit", "Run the project's phpunit"},
	{"grunt", "Run the project's grunt"},
	{"bower", "Run the project's bower"},
	{"ssh", "Run a command on the virtual machine"},
	{"cancel", "Cancel commands still running in the background"},
	{"help", "Show this help"},
	{"list", "Show this help"},
}

func (s *Simon) register() error {
	handlers := map[string]task.Handler{
		"npm":      s.proxy("npm", executor.ModeLocal, "--color", "always"),
		"vagrant":  s.proxy("vagrant", executor.ModeLocal),
		"composer": s.proxy("composer", executor.ModeDefault, "--ansi"),
		"php":      s.php,
		"artisan":  s.prefixed("artisan", "--ansi"),
		"phpunit":  s.prefixed("vendor/bin/phpunit", "--colors"),
		"grunt":    s.node(GruntScript),
		"bower":    s.node(BowerScript),
		"ssh":      s.ssh,

		"install":     s.install,
		"update":      s.update,
		"start":       s.start,
		"refresh":     s.refresh,
		"permissions": s.permissions,
		"watch":       s.watch,
		"add":         s.add,
		"remove":      s.remove,
		"cancel":      s.cancel,
		"help":        s.help,
		"list":        s.help,
	}
	for _, op := range Operations {
		if err := s.table.Register(op.Name, handlers[op.Name]); err != nil {
			return err
		}
	}
	return nil
}

// proxy runs name with the user's arguments followed by colour, the flags
// that keep the tool's output coloured when it is not writing to a terminal.
func (s *Simon) proxy(name string, mode executor.Mode, colour ...string) task.Handler {
	return func(_ context.Context, args []string) (task.Awaitable, error) {
		return s.launcher.Launch(name, withFlags(args, colour), mode), nil
	}
}

func withFlags(args, flags []string) []string {
	return append(append(make([]string, 0, len(args)+len(flags)), args...), flags...)
}

func (s *Simon) runtime() string {
	if s.cfg.HHVM {
		return "hhvm"
	}
	return "php"
}

func (s *Simon) php(_ context.Context, args []string) (task.Awaitable, error) {
	return s.launcher.Launch(s.runtime(), args, executor.ModeDefault), nil
}

// prefixed runs a php script with the given first argument, appending
// colour like proxy does.
func (s *Simon) prefixed(script string, colour ...string) task.Handler {
	return func(ctx context.Context, args []string) (task.Awaitable, error) {
		return s.php(ctx, append([]string{script}, withFlags(args, colour)...))
	}
}

func (s *Simon) node(file string) task.Handler {
	return func(_ context.Context, args []string) (task.Awaitable, error) {
		return s.launcher.LaunchNode(file, args), nil
	}
}

func (s *Simon) ssh(_ context.Context, args []string) (task.Awaitable, error) {
	if len(args) == 0 {
		return nil, errors.New("ssh: no command given")
	}
	return s.launcher.Launch(args[0], args[1:], executor.ModeRemote), nil
}

// serverStep starts the development server after dependencies change.
var serverStep = task.Op("npm", "start")

// InstallList returns the steps of the install operation.
func (s *Simon) InstallList() task.List {
	list := make(task.List, 0, len(s.cfg.Managers)+1)
	for _, m := range s.cfg.Managers {
		list = append(list, task.Op(m, "install"))
	}
	return append(list, serverStep)
}

// UpdateList returns the steps of the update operation.
func (s *Simon) UpdateList() task.List {
	list := make(task.List, 0, 2*len(s.cfg.Managers)+1)
	for _, m := range s.cfg.Managers {
		list = append(list, task.Op(m, "update"), task.Op(m, "install"))
	}
	return append(list, serverStep)
}

func (s *Simon) install(ctx context.Context, _ []string) (task.Awaitable, error) {
	return s.engine.Run(ctx, s.InstallList()), nil
}

func (s *Simon) update(ctx context.Context, _ []string) (task.Awaitable, error) {
	return s.engine.Run(ctx, s.UpdateList()), nil
}

// StartList returns the steps of the start operation. installBox prepends
// adding the configured base box.
func (s *Simon) StartList(installBox bool) task.List {
	var list task.List
	if box := s.cfg.Box; installBox && box != nil {
		args := []string{"box", "add", box.Name}
		if box.URL != "" {
			args = append(args, box.URL)
		}
		list = append(list, task.Op("vagrant", args...))
	}
	if s.cfg.RemoteByDefault() {
		list = append(list, task.Op("vagrant", "up"))
	}
	return append(list,
		task.Op("composer", "install"),
		task.Op("artisan", "migrate"),
		task.Op("npm", "install"),
		task.Op("bower", "install"),
		serverStep,
	)
}

// BoxPattern matches the line "vagrant box list" prints for the configured
// box, e.g. "laravel/homestead (virtualbox, 0.4.0)".
func BoxPattern(name, provider string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(name) + `\s+\(` + regexp.QuoteMeta(provider) + `(,[^)]*)?\)\s*$`)
}

func (s *Simon) start(ctx context.Context, _ []string) (task.Awaitable, error) {
	if !s.cfg.RemoteByDefault() || s.cfg.Box == nil {
		return s.engine.Run(ctx, s.StartList(false)), nil
	}

	box := s.cfg.Box
	return s.engine.Plan(ctx, "start", func(ctx context.Context) (task.List, error) {
		h := s.launcher.Capture("vagrant", []string{"box", "list"}, executor.ModeLocal)
		select {
		case <-h.Done():
		case <-ctx.Done():
			_ = h.Cancel()
			<-h.Done()
			return nil, ctx.Err()
		}
		if h.ExitCode() != 0 {
			if err := h.Err(); err != nil {
				return nil, fmt.Errorf("vagrant box list: %w", err)
			}
			return nil, fmt.Errorf("vagrant box list exited with code %d", h.ExitCode())
		}

		installed := BoxPattern(box.Name, box.Provider).MatchString(h.Output())
		clog.Debug("start: box %s (%s) installed=%v", box.Name, box.Provider, installed)
		return s.StartList(!installed), nil
	}), nil
}

// reporter wraps an Awaitable and prints a message once it finishes.
type reporter struct {
	task.Awaitable
	done chan struct{}
}

func (r *reporter) Done() <-chan struct{} { return r.done }

func (r *reporter) Cancel() error {
	if c, ok := r.Awaitable.(interface{ Cancel() error }); ok {
		return c.Cancel()
	}
	return nil
}

func (r *reporter) Cancelled() bool { return task.Cancelled(r.Awaitable) }

func report(aw task.Awaitable, onDone func(code int)) task.Awaitable {
	r := &reporter{Awaitable: aw, done: make(chan struct{})}
	go func() {
		<-aw.Done()
		onDone(aw.ExitCode())
		close(r.done)
	}()
	return r
}

func (s *Simon) refresh(ctx context.Context, _ []string) (task.Awaitable, error) {
	aw, err := s.prefixed("artisan", "--ansi")(ctx, []string{"migrate:refresh", "--seed"})
	if err != nil {
		return nil, err
	}
	return report(aw, func(code int) {
		if code != 0 {
			term.Error("The database did not refresh successfully")
			return
		}
		term.Success("Database refreshed and seeded successfully")
	}), nil
}

func (s *Simon) permissions(_ context.Context, _ []string) (task.Awaitable, error) {
	return s.launcher.Launch("chmod", []string{"-R", "+w", "app/storage"}, executor.ModeDefault), nil
}

// watch rebuilds with the configured grunt task when files change. Without
// watch paths it hands over to "grunt watch".
func (s *Simon) watch(ctx context.Context, args []string) (task.Awaitable, error) {
	if len(s.cfg.WatchPaths) == 0 {
		return s.node(GruntScript)(ctx, append([]string{"watch"}, args...))
	}

	w, err := watch.New(watch.Options{
		Paths:    s.cfg.WatchPaths,
		Ignore:   s.cfg.WatchIgnore,
		Debounce: s.cfg.WatchDebounce,
		OnChange: func(changed []string) { s.rebuild(ctx, changed) },
	})
	if err != nil {
		return nil, err
	}
	s.launcher.Track(w)
	w.Start()
	term.Notice("Watching %s for changes", strings.Join(s.cfg.WatchPaths, ", "))
	return w, nil
}

// rebuild runs the watch task unless a previous rebuild is still going.
func (s *Simon) rebuild(ctx context.Context, changed []string) {
	s.watchMu.Lock()
	if s.watching {
		s.watchMu.Unlock()
		clog.Debug("watch: rebuild already running, skipping %d change(s)", len(changed))
		return
	}
	s.watching = true
	s.watchMu.Unlock()

	term.Info("%d file(s) changed", len(changed))
	h := s.launcher.LaunchNode(GruntScript, []string{s.cfg.WatchTask})
	go func() {
		select {
		case <-h.Done():
		case <-ctx.Done():
		}
		s.watchMu.Lock()
		s.watching = false
		s.watchMu.Unlock()
	}()
}

func (s *Simon) hostArg(args []string) string {
	sub := s.subdomain
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		sub = strings.TrimSpace(args[0])
	}
	return s.Host(sub)
}

// siteHost resolves the host for add and remove. The localhost entry is
// what new entries are anchored to, so it is never a site.
func (s *Simon) siteHost(args []string) (string, bool) {
	host := s.hostArg(args)
	if hosts.Reserved(host) {
		term.Error("The site %q cannot be changed; set domain in simon.yaml", host)
		return "", false
	}
	return host, true
}

func (s *Simon) add(_ context.Context, args []string) (task.Awaitable, error) {
	host, ok := s.siteHost(args)
	if !ok {
		return task.Bool(false), nil
	}
	return task.Bool(s.hosts.AddEntry(host, s.cfg.IP)), nil
}

func (s *Simon) remove(_ context.Context, args []string) (task.Awaitable, error) {
	host, ok := s.siteHost(args)
	if !ok {
		return task.Bool(false), nil
	}
	return task.Bool(s.hosts.RemoveEntry(host)), nil
}

func (s *Simon) cancel(_ context.Context, _ []string) (task.Awaitable, error) {
	if n := s.launcher.CancelAll(); n > 0 {
		term.Warn("Cancelled %d running task(s)", n)
	}
	return nil, nil
}

// Banner is printed at the top of the help output.
const Banner = "SoapBox Simon"

func (s *Simon) help(_ context.Context, _ []string) (task.Awaitable, error) {
	term.Println()
	term.Info("%s", Banner)
	term.Println()
	for _, op := range Operations {
		term.Printf("  %-12s %s\n", op.Name, op.Summary)
	}
	term.Println()
	term.Println("  Any other command runs the grunt task of that name.")
	term.Println("  In interactive mode, hit TAB to show autocompletions")
	term.Println("  Note: Command-line options are not available in interactive mode")
	term.Println()
	return nil, nil
}
