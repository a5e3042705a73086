// Package prompt implements simon's interactive mode: a loop that reads one
// command per line and runs it, waiting for started tasks to finish before
// asking for the next line.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	xterm "golang.org/x/term"
)

// LineReader reads one line of input after showing prompt.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// redrawer is implemented by readers that can repaint their own prompt.
type redrawer interface {
	Redraw()
}

// StreamReader reads lines from any io.Reader and writes the prompt to Out.
// It is used when stdin is not a terminal, and in tests.
type StreamReader struct {
	in  *bufio.Reader
	Out io.Writer
}

// NewStreamReader creates a StreamReader.
func NewStreamReader(r io.Reader, w io.Writer) *StreamReader {
	return &StreamReader{in: bufio.NewReader(r), Out: w}
}

// ReadLine writes prompt and returns the next line without its terminator.
// A final line without a newline is returned before io.EOF.
func (s *StreamReader) ReadLine(prompt string) (string, error) {
	_, _ = fmt.Fprint(s.Out, prompt)
	line, err := s.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// TerminalReader edits lines on a real terminal with history and TAB
// completion. The terminal is in raw mode only while a line is being read.
//
// Output written through the TerminalReader is placed above the prompt
// line, so child process output should be routed through it.
type TerminalReader struct {
	fd int

	mu sync.Mutex
	t  *xterm.Terminal

	completions []string
}

// NewTerminalReader creates a TerminalReader on in and out. completions are
// offered on TAB.
func NewTerminalReader(in, out *os.File, completions []string) *TerminalReader {
	sorted := append([]string(nil), completions...)
	sort.Strings(sorted)

	r := &TerminalReader{
		fd:          int(in.Fd()),
		completions: sorted,
	}
	r.t = xterm.NewTerminal(struct {
		io.Reader
		io.Writer
	}{in, out}, "")
	r.t.AutoCompleteCallback = r.complete
	if w, h, err := xterm.GetSize(int(out.Fd())); err == nil {
		_ = r.t.SetSize(w, h)
	}
	return r
}

// ReadLine shows prompt and reads one edited line. Ctrl-C and Ctrl-D on an
// empty line return io.EOF.
func (r *TerminalReader) ReadLine(prompt string) (string, error) {
	state, err := xterm.MakeRaw(r.fd)
	if err != nil {
		return "", fmt.Errorf("enter raw mode: %w", err)
	}
	defer func() { _ = xterm.Restore(r.fd, state) }()

	r.t.SetPrompt(prompt)
	return r.t.ReadLine()
}

// Write prints p above the prompt line.
func (r *TerminalReader) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.t.Write(p)
}

// Redraw repaints the prompt and the line being edited.
func (r *TerminalReader) Redraw() {
	_, _ = r.Write(nil)
}

// complete handles TAB: it completes the first word to the longest common
// prefix of the matching names, or lists them when that adds nothing.
func (r *TerminalReader) complete(line string, pos int, key rune) (string, int, bool) {
	if key != '\t' || strings.ContainsAny(line[:pos], " \t") {
		return "", 0, false
	}

	matches := Complete(r.completions, line[:pos])
	switch len(matches) {
	case 0:
		return "", 0, false
	case 1:
		return matches[0] + " " + line[pos:], len(matches[0]) + 1, true
	}

	prefix := commonPrefix(matches)
	if len(prefix) > pos {
		return prefix + line[pos:], len(prefix), true
	}
	_, _ = r.t.Write([]byte(strings.Join(matches, "  ") + "\n"))
	return "", 0, false
}

// Complete returns the candidates starting with prefix. When none match,
// every candidate is returned.
func Complete(candidates []string, prefix string) []string {
	var hits []string
	for _, c := range candidates {
		if strings.HasPrefix(c, prefix) {
			hits = append(hits, c)
		}
	}
	if len(hits) == 0 {
		return append([]string(nil), candidates...)
	}
	return hits
}

func commonPrefix(words []string) string {
	if len(words) == 0 {
		return ""
	}
	prefix := words[0]
	for _, w := range words[1:] {
		for !strings.HasPrefix(w, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	return prefix
}
