// Package config provides configuration types for simon global and
// per-project settings. These types map to YAML configuration files;
// a legacy simon.json is read by the same decoder.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape shared by the global config file
// (~/.config/simon/config.yaml) and a project's simon.yaml.
// Pointer and empty fields mean "not set" and are filled by lower layers.
type Config struct {
	Local     *bool          `yaml:"local,omitempty"`
	HHVM      *bool          `yaml:"hhvm,omitempty"`
	IP        string         `yaml:"ip,omitempty"`
	Domain    string         `yaml:"domain,omitempty"`
	Prompt    PromptConfig   `yaml:"prompt,omitempty"`
	Vagrant   *VagrantConfig `yaml:"vagrant,omitempty"`
	Managers  []string       `yaml:"managers,omitempty"`
	Watch     WatchConfig    `yaml:"watch,omitempty"`
	HostsFile string         `yaml:"hosts_file,omitempty"`
	Log       LogConfig      `yaml:"log,omitempty"`
}

// PromptConfig contains interactive mode settings.
type PromptConfig struct {
	Text      string   `yaml:"text,omitempty"`
	Debounce  string   `yaml:"debounce,omitempty"`
	Blacklist []string `yaml:"blacklist,omitempty"`
	Quit      []string `yaml:"quit,omitempty"`
	Fallback  string   `yaml:"fallback,omitempty"`
}

// UnmarshalYAML accepts either a mapping or, as older simon.json files
// have it, a bare string holding the prompt text.
func (p *PromptConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var text string
		if err := node.Decode(&text); err != nil {
			return err
		}
		*p = PromptConfig{Text: text}
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: prompt must be a string or a mapping", node.Line)
	}
	type plain PromptConfig
	var out plain
	if err := node.Decode(&out); err != nil {
		return err
	}
	*p = PromptConfig(out)
	return nil
}

// VagrantConfig describes the virtual machine that remote commands run on.
// Its presence switches the default execution mode to remote.
type VagrantConfig struct {
	Dir   string     `yaml:"dir,omitempty"`
	Shell string     `yaml:"shell,omitempty"`
	Box   *BoxConfig `yaml:"box,omitempty"`
}

// BoxConfig names the base box that `start` provisions when it is missing.
type BoxConfig struct {
	Name     string `yaml:"name,omitempty"`
	Provider string `yaml:"provider,omitempty"`
	URL      string `yaml:"url,omitempty"`
}

// WatchConfig controls the rebuild-on-change watcher.
type WatchConfig struct {
	Paths    []string `yaml:"paths,omitempty"`
	Ignore   []string `yaml:"ignore,omitempty"`
	Task     string   `yaml:"task,omitempty"`
	Debounce string   `yaml:"debounce,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	File  string `yaml:"file,omitempty"`
	Level string `yaml:"level,omitempty"`
	// Audit is a file that receives one line per command started.
	Audit string `yaml:"audit,omitempty"`
}
