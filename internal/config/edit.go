package config

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/soapbox/simon/internal/clog"
)

// EditProjectConfig opens the project configuration in dir in the user's
// editor, creating it from the template first when it doesn't exist.
// The editor is determined by the EDITOR environment variable, falling back
// to "vi". Validation problems after the edit are logged, not returned, so
// the user can fix the file later.
func EditProjectConfig(dir string) error {
	path, err := FindProjectConfig(dir)
	if err != nil {
		if path, err = WriteProjectTemplate(dir); err != nil {
			return fmt.Errorf("create initial config: %w", err)
		}
	}

	if err := openEditor(path); err != nil {
		return err
	}

	if _, _, err := LoadProjectConfig(dir); err != nil {
		clog.Warn("project config %s has errors after edit: %v", path, err)
	}
	return nil
}

// openEditor opens the specified file in the user's editor.
func openEditor(path string) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	cmd := exec.Command(editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor %q failed: %w", editor, err)
	}
	return nil
}
