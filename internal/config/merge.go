package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// Effective is the resolved configuration for one simon process. It is
// built once by ResolveConfig and only read afterwards.
type Effective struct {
	Local bool
	HHVM  bool

	IP     string
	Domain string

	PromptText     string
	PromptDebounce time.Duration
	Blacklist      []string
	Quit           []string
	Fallback       string

	// RemoteShell is empty when no virtual machine is configured.
	RemoteShell string
	RemoteDir   string
	Box         *BoxConfig

	Managers []string

	WatchPaths    []string
	WatchIgnore   []string
	WatchTask     string
	WatchDebounce time.Duration

	// HostsFile is empty when the platform default should be used.
	HostsFile string

	LogFile   string
	LogLevel  string
	AuditFile string

	ProjectDir  string
	ProjectFile string
}

// RemoteByDefault reports whether commands without an explicit execution
// mode run on the virtual machine.
func (e *Effective) RemoteByDefault() bool {
	return !e.Local && e.RemoteShell != ""
}

// Overrides carries the command-line flags that take precedence over every
// config file.
type Overrides struct {
	Local bool
	HHVM  bool
	// RequireProject makes a missing project config an error.
	RequireProject bool
}

// MergeNames combines two name lists, base first, dropping duplicates.
func MergeNames(base, extra []string) []string {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(base)+len(extra))
	result := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, name := range list {
			if !seen[name] {
				seen[name] = true
				result = append(result, name)
			}
		}
	}
	return result
}

// Merge returns base with every field set in over applied on top.
// Scalars and ordered lists (managers, watch paths) replace; the prompt
// blacklist and quit list accumulate.
func Merge(base, over *Config) *Config {
	out := *base
	if over == nil {
		return &out
	}

	if over.Local != nil {
		out.Local = over.Local
	}
	if over.HHVM != nil {
		out.HHVM = over.HHVM
	}
	if over.IP != "" {
		out.IP = over.IP
	}
	if over.Domain != "" {
		out.Domain = over.Domain
	}

	if over.Prompt.Text != "" {
		out.Prompt.Text = over.Prompt.Text
	}
	if over.Prompt.Debounce != "" {
		out.Prompt.Debounce = over.Prompt.Debounce
	}
	if over.Prompt.Fallback != "" {
		out.Prompt.Fallback = over.Prompt.Fallback
	}
	out.Prompt.Blacklist = MergeNames(base.Prompt.Blacklist, over.Prompt.Blacklist)
	out.Prompt.Quit = MergeNames(base.Prompt.Quit, over.Prompt.Quit)

	if over.Vagrant != nil {
		v := *over.Vagrant
		if base.Vagrant != nil {
			if v.Dir == "" {
				v.Dir = base.Vagrant.Dir
			}
			if v.Shell == "" {
				v.Shell = base.Vagrant.Shell
			}
			if v.Box == nil {
				v.Box = base.Vagrant.Box
			}
		}
		out.Vagrant = &v
	}

	if len(over.Managers) > 0 {
		out.Managers = over.Managers
	}

	if len(over.Watch.Paths) > 0 {
		out.Watch.Paths = over.Watch.Paths
	}
	out.Watch.Ignore = MergeNames(base.Watch.Ignore, over.Watch.Ignore)
	if over.Watch.Task != "" {
		out.Watch.Task = over.Watch.Task
	}
	if over.Watch.Debounce != "" {
		out.Watch.Debounce = over.Watch.Debounce
	}

	if over.HostsFile != "" {
		out.HostsFile = over.HostsFile
	}
	if over.Log.File != "" {
		out.Log.File = over.Log.File
	}
	if over.Log.Level != "" {
		out.Log.Level = over.Log.Level
	}
	if over.Log.Audit != "" {
		out.Log.Audit = over.Log.Audit
	}

	return &out
}

// MergedConfig returns DefaultConfig with the global config and the project
// config in dir merged over it, and the project file used. When dir has no
// project config the merge of the other two is returned together with an
// error wrapping ErrNoProjectConfig.
func MergedConfig(dir string) (*Config, string, error) {
	global, err := LoadGlobalConfig()
	if err != nil {
		return nil, "", err
	}
	base := Merge(DefaultConfig(), global)

	project, projectFile, err := LoadProjectConfig(dir)
	if err != nil {
		if errors.Is(err, ErrNoProjectConfig) {
			return base, "", err
		}
		return nil, "", err
	}
	return Merge(base, project), projectFile, nil
}

// ResolveConfig loads the global config and the project config in dir,
// merges them over DefaultConfig, applies the flag overrides and returns
// the result as an Effective configuration.
func ResolveConfig(dir string, o Overrides) (*Effective, error) {
	merged, projectFile, err := MergedConfig(dir)
	if err != nil {
		if o.RequireProject || !errors.Is(err, ErrNoProjectConfig) {
			return nil, err
		}
	}

	if o.Local {
		merged.Local = boolPtr(true)
	}
	if o.HHVM {
		merged.HHVM = boolPtr(true)
	}

	if err := Validate(merged); err != nil {
		return nil, fmt.Errorf("resolve config: %w", err)
	}

	eff, err := resolve(merged)
	if err != nil {
		return nil, err
	}
	eff.ProjectDir = dir
	eff.ProjectFile = projectFile
	for i, p := range eff.WatchPaths {
		if !filepath.IsAbs(p) {
			eff.WatchPaths[i] = filepath.Join(dir, p)
		}
	}
	return eff, nil
}

// resolve flattens a fully merged Config.
func resolve(cfg *Config) (*Effective, error) {
	promptDebounce, err := time.ParseDuration(orDefault(cfg.Prompt.Debounce, DefaultPromptDebounce))
	if err != nil {
		return nil, fmt.Errorf("prompt.debounce: %w", err)
	}
	watchDebounce, err := time.ParseDuration(orDefault(cfg.Watch.Debounce, DefaultWatchDebounce))
	if err != nil {
		return nil, fmt.Errorf("watch.debounce: %w", err)
	}

	eff := &Effective{
		Local:          cfg.Local != nil && *cfg.Local,
		HHVM:           cfg.HHVM != nil && *cfg.HHVM,
		IP:             orDefault(cfg.IP, DefaultIP),
		Domain:         orDefault(cfg.Domain, DefaultDomain),
		PromptText:     orDefault(cfg.Prompt.Text, DefaultPromptText),
		PromptDebounce: promptDebounce,
		Blacklist:      append([]string(nil), cfg.Prompt.Blacklist...),
		Quit:           append([]string(nil), cfg.Prompt.Quit...),
		Fallback:       orDefault(cfg.Prompt.Fallback, DefaultFallback),
		Managers:       append([]string(nil), cfg.Managers...),
		WatchPaths:     append([]string(nil), cfg.Watch.Paths...),
		WatchIgnore:    append([]string(nil), cfg.Watch.Ignore...),
		WatchTask:      orDefault(cfg.Watch.Task, DefaultWatchTask),
		WatchDebounce:  watchDebounce,
		HostsFile:      cfg.HostsFile,
		LogFile:        cfg.Log.File,
		LogLevel:       orDefault(cfg.Log.Level, "info"),
		AuditFile:      cfg.Log.Audit,
	}

	if v := cfg.Vagrant; v != nil {
		eff.RemoteShell = orDefault(v.Shell, DefaultVagrantShell)
		eff.RemoteDir = orDefault(v.Dir, DefaultVagrantDir)
		if v.Box != nil {
			box := *v.Box
			eff.Box = &box
		}
	}

	return eff, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
