package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/soapbox/simon/internal/clog"
)

// LoadGlobalConfig loads the global configuration from GlobalConfigPath.
// A missing file is not an error and yields an empty Config, so that only
// DefaultConfig applies. A file that cannot be read, parsed or validated is.
func LoadGlobalConfig() (*Config, error) {
	path := GlobalConfigPath()
	clog.Debug("config: loading global config from %s", path)

	cfg, err := loadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		clog.Debug("config: no global config, using defaults")
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load global config: %w", err)
	}
	return cfg, nil
}

// LoadProjectConfig loads the project configuration found in dir and
// returns it with the path it was read from. It returns an error wrapping
// ErrNoProjectConfig when dir has no project file.
func LoadProjectConfig(dir string) (*Config, string, error) {
	path, err := FindProjectConfig(dir)
	if err != nil {
		return nil, "", err
	}
	clog.Debug("config: loading project config from %s", path)

	cfg, err := loadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("load project config: %w", err)
	}
	return cfg, path, nil
}

// loadFile reads, parses and validates one config file and expands ~ in
// its path fields.
func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	expandPaths(cfg)
	return cfg, nil
}

// expandPaths expands ~ to the home directory in all path fields.
func expandPaths(cfg *Config) {
	cfg.HostsFile = ExpandHome(cfg.HostsFile)
	cfg.Log.File = ExpandHome(cfg.Log.File)
	cfg.Log.Audit = ExpandHome(cfg.Log.Audit)
	for i, p := range cfg.Watch.Paths {
		cfg.Watch.Paths[i] = ExpandHome(p)
	}
}
