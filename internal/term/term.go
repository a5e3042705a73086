// Package term provides user-facing terminal output for the simon CLI.
// This is distinct from operational logging (see internal/clog).
//
// Output functions:
//   - Print/Printf/Println: plain output to stdout (suppressed with --silent)
//   - Info/Success/Notice: coloured status lines to stdout (suppressed with --silent)
//   - Warn/Error: prefixed messages to stderr (NOT suppressed with --silent)
//
// Colours are rendered with lipgloss against the configured writer, so a
// buffer or a pipe receives plain text.
package term

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	xterm "golang.org/x/term"
)

// ANSI colour numbers used by the palette below.
const (
	colorRed     = "1"
	colorGreen   = "2"
	colorYellow  = "3"
	colorMagenta = "5"
	colorCyan    = "6"
)

type palette struct {
	info    lipgloss.Style
	success lipgloss.Style
	notice  lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
	prompt  lipgloss.Style
	bold    lipgloss.Style
}

func newPalette(out, errOut io.Writer) palette {
	r := lipgloss.NewRenderer(out)
	er := lipgloss.NewRenderer(errOut)
	return palette{
		info:    r.NewStyle().Foreground(lipgloss.Color(colorCyan)),
		success: r.NewStyle().Foreground(lipgloss.Color(colorGreen)),
		notice:  r.NewStyle().Foreground(lipgloss.Color(colorMagenta)),
		warn:    er.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		err:     er.NewStyle().Foreground(lipgloss.Color(colorRed)),
		prompt:  r.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		bold:    r.NewStyle().Bold(true),
	}
}

var (
	mu     sync.Mutex
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	silent bool
	styles = newPalette(os.Stdout, os.Stderr)
)

// SetSilent enables or disables silent mode.
// When silent, stdout output is suppressed; Warn and Error are not.
func SetSilent(s bool) {
	mu.Lock()
	defer mu.Unlock()
	silent = s
}

// IsSilent returns whether silent mode is enabled.
func IsSilent() bool {
	mu.Lock()
	defer mu.Unlock()
	return silent
}

// SetOutput sets the writer for stdout output.
// Pass nil to use os.Stdout.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	stdout = w
	styles = newPalette(stdout, stderr)
}

// SetErrOutput sets the writer for stderr output.
// Pass nil to use os.Stderr.
func SetErrOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	stderr = w
	styles = newPalette(stdout, stderr)
}

// IsInteractive reports whether both stdin and stdout are terminals.
func IsInteractive() bool {
	return xterm.IsTerminal(int(os.Stdin.Fd())) && xterm.IsTerminal(int(os.Stdout.Fd()))
}

// IsTerminal reports whether r is a file open on a terminal.
func IsTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && f != nil && xterm.IsTerminal(int(f.Fd()))
}

// Print formats and writes to stdout.
func Print(a ...any) {
	mu.Lock()
	defer mu.Unlock()
	if silent {
		return
	}
	_, _ = fmt.Fprint(stdout, a...)
}

// Printf formats according to a format specifier and writes to stdout.
func Printf(format string, a ...any) {
	mu.Lock()
	defer mu.Unlock()
	if silent {
		return
	}
	_, _ = fmt.Fprintf(stdout, format, a...)
}

// Println formats and writes to stdout with a trailing newline.
func Println(a ...any) {
	mu.Lock()
	defer mu.Unlock()
	if silent {
		return
	}
	_, _ = fmt.Fprintln(stdout, a...)
}

// Info writes a cyan status line to stdout.
func Info(format string, a ...any) {
	styled(func(p palette) lipgloss.Style { return p.info }, format, a...)
}

// Success writes a green status line to stdout.
func Success(format string, a ...any) {
	styled(func(p palette) lipgloss.Style { return p.success }, format, a...)
}

// Notice writes a magenta status line to stdout.
func Notice(format string, a ...any) {
	styled(func(p palette) lipgloss.Style { return p.notice }, format, a...)
}

func styled(pick func(palette) lipgloss.Style, format string, a ...any) {
	mu.Lock()
	defer mu.Unlock()
	if silent {
		return
	}
	_, _ = fmt.Fprintln(stdout, pick(styles).Render(fmt.Sprintf(format, a...)))
}

// Warn writes a warning message to stderr with "Warning: " prefix.
// NOT suppressed by silent mode.
func Warn(format string, a ...any) {
	mu.Lock()
	defer mu.Unlock()
	msg := fmt.Sprintf(format, a...)
	_, _ = fmt.Fprintln(stderr, styles.warn.Render("Warning: "+msg))
}

// Error writes an error message to stderr with "Error: " prefix.
// NOT suppressed by silent mode.
func Error(format string, a ...any) {
	mu.Lock()
	defer mu.Unlock()
	msg := fmt.Sprintf(format, a...)
	_, _ = fmt.Fprintln(stderr, styles.err.Render("Error: "+msg))
}

// Prompt returns text styled for the interactive prompt.
func Prompt(text string) string {
	mu.Lock()
	defer mu.Unlock()
	return styles.prompt.Render(text)
}

// Bold returns s rendered in bold.
func Bold(s string) string {
	mu.Lock()
	defer mu.Unlock()
	return styles.bold.Render(s)
}

// Stdout returns the current stdout writer.
func Stdout() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	if silent {
		return io.Discard
	}
	return stdout
}

// Stderr returns the current stderr writer.
func Stderr() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return stderr
}

// Reset resets the package to default state.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	stdout = os.Stdout
	stderr = os.Stderr
	silent = false
	styles = newPalette(stdout, stderr)
}

// Discard configures the package to discard all output.
func Discard() {
	mu.Lock()
	defer mu.Unlock()
	stdout = io.Discard
	stderr = io.Discard
	styles = newPalette(stdout, stderr)
}
