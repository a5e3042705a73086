package config

// Defaults for settings that have no natural zero value.
const (
	DefaultIP             = "127.0.0.1"
	DefaultDomain         = "localhost"
	DefaultPromptText     = "Simon says (enter a command): "
	DefaultPromptDebounce = "3s"
	DefaultFallback       = "grunt"
	DefaultVagrantShell   = "vagrant ssh"
	DefaultVagrantDir     = "/vagrant"
	DefaultWatchTask      = "default"
	DefaultWatchDebounce  = "300ms"
)

func boolPtr(b bool) *bool {
	return &b
}

// DefaultConfig returns a Config with every default populated. It is the
// bottom layer of the merge in ResolveConfig.
//
// The blacklist holds operations that either take over the terminal
// (vagrant, ssh, watch), need elevated rights (add, remove), or only make
// sense once per session (start).
func DefaultConfig() *Config {
	return &Config{
		Local:  boolPtr(false),
		HHVM:   boolPtr(false),
		IP:     DefaultIP,
		Domain: DefaultDomain,
		Prompt: PromptConfig{
			Text:     DefaultPromptText,
			Debounce: DefaultPromptDebounce,
			Blacklist: []string{
				"init",
				"configure",
				"start",
				"vagrant",
				"ssh",
				"exec",
				"prompt",
				"interactive",
				"add",
				"remove",
				"watch",
			},
			Quit:     []string{"stop", "exit", "quit"},
			Fallback: DefaultFallback,
		},
		Managers: []string{"npm", "composer", "bower"},
		Watch: WatchConfig{
			Ignore:   []string{".git", "node_modules", "vendor", "bower_components"},
			Task:     DefaultWatchTask,
			Debounce: DefaultWatchDebounce,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// projectTemplate is written by `simon config init`.
const projectTemplate = `# simon project configuration
#
# Values here override ~/.config/simon/config.yaml; the --local and --super
# flags override both.

# Run every command on this machine instead of the virtual machine.
# local: false

# Run php, artisan and phpunit with hhvm.
# hhvm: false

# Address and domain written to the hosts file by "simon add".
ip: "127.0.0.1"
domain: "myproject.dev"

# Remote execution. Remove this section to run everything locally.
vagrant:
  dir: "/vagrant"
  # shell: "vagrant ssh"
  # box:
  #   name: "laravel/homestead"
  #   provider: "virtualbox"
  #   url: "https://example.com/homestead.box"

# Package managers used by "simon install" and "simon update", in order.
managers:
  - npm
  - composer
  - bower

# Rebuild on change. Without paths, "simon watch" runs "grunt watch".
# watch:
#   paths: ["app", "public/js"]
#   task: "build"
#   debounce: "300ms"

# prompt:
#   text: "Simon says (enter a command): "

# log:
#   file: "~/.local/state/simon/simon.log"
#   level: "info"
#   audit: "~/.local/state/simon/commands.log"
`
