package cmd

import (
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soapbox/simon/internal/config"
	"github.com/soapbox/simon/internal/prompt"
	"github.com/soapbox/simon/internal/simon"
	"github.com/soapbox/simon/internal/term"
	"github.com/soapbox/simon/internal/version"
)

// runInteractive reads commands from the terminal until the user quits.
func runInteractive(cmd *cobra.Command) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	var (
		reader prompt.LineReader
		out    io.Writer = os.Stdout
	)
	if term.IsInteractive() {
		// Command output goes through the line editor so it is printed
		// above the prompt instead of over it.
		tr := prompt.NewTerminalReader(os.Stdin, os.Stdout, completions(cfg))
		reader, out = tr, tr
	} else {
		reader = prompt.NewStreamReader(os.Stdin, os.Stdout)
	}

	a, err := newApp(cfg, streams{stdout: out, stderr: out})
	if err != nil {
		return err
	}
	defer a.close()

	loop := prompt.NewLoop(prompt.Options{
		Text:      term.Prompt(cfg.PromptText),
		Blacklist: cfg.Blacklist,
		Quit:      cfg.Quit,
		Fallback:  cfg.Fallback,
		Debounce:  cfg.PromptDebounce,
		Out:       out,
	}, reader, a.simon, a.simon)
	a.launcher.SetActivityHook(loop.Activity)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	term.Info("%s %s", simon.Banner, version.Version)
	term.Printf("Type help for a list of commands, or %s to leave.\n", strings.Join(cfg.Quit, ", "))
	return loop.Ask(cmd.Context(), sigs)
}

// notCompleted are operations that can never do anything at the prompt.
// The prompt reads no input while a command runs, so there is nothing left
// for cancel to stop by the time it can be typed.
var notCompleted = []string{"cancel"}

// completions lists what TAB offers at the prompt: every operation usable
// interactively plus the loop's own commands.
func completions(cfg *config.Effective) []string {
	var names []string
	for _, op := range simon.Operations {
		if !slices.Contains(cfg.Blacklist, op.Name) && !slices.Contains(notCompleted, op.Name) {
			names = append(names, op.Name)
		}
	}
	names = append(names, "clear")
	return append(names, cfg.Quit...)
}
