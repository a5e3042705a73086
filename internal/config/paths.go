package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoProjectConfig indicates that none of ProjectFileNames exists in the
// searched directory.
var ErrNoProjectConfig = errors.New("no simon.yaml found")

// ProjectFileNames lists the project config files looked for, in order.
var ProjectFileNames = []string{"simon.yaml", "simon.yml", "simon.json"}

// ExpandHome replaces a leading ~ in path with the user's home directory.
// If the home directory cannot be determined, the path is returned unchanged.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

// Dir returns the simon configuration directory path.
// By default, this is ~/.config/simon/. If the XDG_CONFIG_HOME
// environment variable is set, it uses $XDG_CONFIG_HOME/simon/ instead.
func Dir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = "~/.config"
	}
	return filepath.Join(ExpandHome(base), "simon")
}

// EnsureDir creates the simon configuration directory if it doesn't exist.
func EnsureDir() error {
	if err := os.MkdirAll(Dir(), 0o700); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}
	return nil
}

// GlobalConfigPath returns the full path to the global configuration file.
func GlobalConfigPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// FindProjectConfig returns the first of ProjectFileNames present in dir.
// It returns ErrNoProjectConfig when there is none.
func FindProjectConfig(dir string) (string, error) {
	for _, name := range ProjectFileNames {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNoProjectConfig, dir)
}
