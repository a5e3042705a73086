package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soapbox/simon/internal/config"
	"github.com/soapbox/simon/internal/term"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage simon configuration",
	Long: `Manage simon's configuration.

Settings are read from the global file at ~/.config/simon/config.yaml
(or $XDG_CONFIG_HOME/simon/config.yaml if XDG_CONFIG_HOME is set) and from
simon.yaml in the project directory, which takes precedence.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective config",
	Long: `Print the defaults merged with the global and project configuration as YAML.

Command-line options are not applied.`,
	RunE: runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit project config in $EDITOR",
	Long: `Open the project's simon.yaml in your editor.

The editor is determined by the EDITOR environment variable, falling back to vi.
If the project has no configuration yet, one is created from the template first.`,
	RunE: runConfigEdit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print config file paths",
	Long:  `Print the path to the global configuration file and, if there is one, the project file.`,
	RunE:  runConfigPath,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create project config file",
	Long: `Create a commented simon.yaml in the current directory.

With --global, write the default settings to the global configuration file
instead. If the file already exists, this command does nothing.`,
	RunE: runConfigInit,
}

var configInitGlobal bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().BoolVar(&configInitGlobal, "global", false, "Write the global config instead of simon.yaml")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, _, err := config.MergedConfig(dir)
	if err != nil && !errors.Is(err, config.ErrNoProjectConfig) {
		return fmt.Errorf("failed to load config: %w", err)
	}

	data, err := config.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	if err := config.EditProjectConfig(dir); err != nil {
		return fmt.Errorf("failed to edit config: %w", err)
	}
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, config.GlobalConfigPath())

	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	path, err := config.FindProjectConfig(dir)
	switch {
	case err == nil:
		fmt.Fprintln(out, path)
	case !errors.Is(err, config.ErrNoProjectConfig):
		return err
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if configInitGlobal {
		return initGlobalConfig()
	}

	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	if existing, err := config.FindProjectConfig(dir); err == nil {
		term.Warn("%s already exists", existing)
		return nil
	}

	path, err := config.WriteProjectTemplate(dir)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	term.Success("Created project config at: %s", path)
	return nil
}

func initGlobalConfig() error {
	path := config.GlobalConfigPath()
	if _, err := os.Stat(path); err == nil {
		term.Warn("%s already exists", path)
		return nil
	}

	if err := config.WriteGlobalConfig(config.DefaultConfig()); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	term.Success("Created global config at: %s", path)
	return nil
}
