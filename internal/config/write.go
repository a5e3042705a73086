package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// WriteProjectTemplate creates a commented simon.yaml in dir.
// If the file already exists, it returns its path without overwriting.
func WriteProjectTemplate(dir string) (string, error) {
	path := filepath.Join(dir, ProjectFileNames[0])

	_, err := os.Stat(path)
	if err == nil {
		return path, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat project config file: %w", err)
	}

	if err := os.WriteFile(path, []byte(projectTemplate), 0o644); err != nil {
		return "", fmt.Errorf("write project config: %w", err)
	}
	return path, nil
}

// WriteGlobalConfig writes cfg to GlobalConfigPath, creating the config
// directory if needed. This will overwrite any existing config file.
func WriteGlobalConfig(cfg *Config) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.WriteFile(GlobalConfigPath(), data, 0o600); err != nil {
		return fmt.Errorf("write global config: %w", err)
	}
	return nil
}
