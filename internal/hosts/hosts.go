// Package hosts edits the system hosts file so that project domains resolve
// to the development machine.
//
// Entries are single lines of the form "<address><whitespace><host>". New
// entries go directly below the first localhost line; an existing entry for
// the same host is rewritten in place.
package hosts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/soapbox/simon/internal/clog"
	"github.com/soapbox/simon/internal/term"
)

// ErrNoAnchor is returned by Add when the file has no localhost line to
// insert a new entry after.
var ErrNoAnchor = errors.New("invalid hosts file: no localhost entry")

// ErrReservedHost is returned when asked to change the localhost entry,
// which every other entry is placed relative to.
var ErrReservedHost = errors.New("localhost entry cannot be changed")

// Reserved reports whether host names the localhost entry.
func Reserved(host string) bool {
	return strings.EqualFold(strings.TrimSpace(host), "localhost")
}

// addrClass matches IPv4 and IPv6 literals loosely.
const addrClass = `[0-9A-Fa-f.:]+`

var anchorPattern = regexp.MustCompile(`^` + addrClass + `\s+localhost(\r?)$`)

// DefaultPath returns the hosts file location for goos.
func DefaultPath(goos string) string {
	if goos == "windows" {
		return `C:\Windows\System32\drivers\etc\hosts`
	}
	return "/etc/hosts"
}

// DefaultEOL returns the line terminator used by hosts files on goos.
func DefaultEOL(goos string) string {
	if goos == "windows" {
		return "\r\n"
	}
	return "\n"
}

// Editor modifies one hosts file.
type Editor struct {
	Path string
	EOL  string
}

// New returns an Editor for path using the platform line terminator.
// An empty path selects the platform default.
func New(path string) *Editor {
	if path == "" {
		path = DefaultPath(runtime.GOOS)
	}
	return &Editor{Path: path, EOL: DefaultEOL(runtime.GOOS)}
}

func (e *Editor) eol() string {
	if e.EOL == "" {
		return "\n"
	}
	return e.EOL
}

func entryPattern(host string) *regexp.Regexp {
	return regexp.MustCompile(`^` + addrClass + `(\s+)` + regexp.QuoteMeta(host) + `(\r?)$`)
}

// Add points host at addr. An existing entry is rewritten with the new
// address and any further entries for host are dropped; otherwise a new
// line is inserted after the localhost line.
func (e *Editor) Add(host, addr string) error {
	if Reserved(host) {
		return fmt.Errorf("%s: %w", e.Path, ErrReservedHost)
	}
	lines, mode, err := e.read()
	if err != nil {
		return err
	}

	entry := entryPattern(host)
	out := make([]string, 0, len(lines)+1)
	found := false
	for _, line := range lines {
		m := entry.FindStringSubmatch(line)
		if m == nil {
			out = append(out, line)
			continue
		}
		if found {
			clog.Debug("hosts: dropping duplicate entry %q", line)
			continue
		}
		found = true
		out = append(out, addr+m[1]+host+m[2])
	}

	if !found {
		at := -1
		cr := ""
		for i, line := range out {
			if m := anchorPattern.FindStringSubmatch(line); m != nil {
				at, cr = i, m[1]
				break
			}
		}
		if at < 0 {
			return fmt.Errorf("%s: %w", e.Path, ErrNoAnchor)
		}
		out = append(out[:at+1], append([]string{addr + "\t" + host + cr}, out[at+1:]...)...)
	}

	return e.write(out, mode)
}

// Remove deletes every entry for host. It reports whether anything was
// removed; the file is left untouched when nothing matched.
func (e *Editor) Remove(host string) (bool, error) {
	if Reserved(host) {
		return false, fmt.Errorf("%s: %w", e.Path, ErrReservedHost)
	}
	lines, mode, err := e.read()
	if err != nil {
		return false, err
	}

	entry := entryPattern(host)
	out := lines[:0:0]
	for _, line := range lines {
		if !entry.MatchString(line) {
			out = append(out, line)
		}
	}
	if len(out) == len(lines) {
		return false, nil
	}
	return true, e.write(out, mode)
}

// Lookup returns the address host is mapped to, if any.
func (e *Editor) Lookup(host string) (string, bool, error) {
	lines, _, err := e.read()
	if err != nil {
		return "", false, err
	}
	entry := entryPattern(host)
	for _, line := range lines {
		if entry.MatchString(line) {
			return strings.Fields(line)[0], true, nil
		}
	}
	return "", false, nil
}

// AddEntry is Add with the outcome reported to the user.
func (e *Editor) AddEntry(host, addr string) bool {
	if err := e.Add(host, addr); err != nil {
		term.Error("%v", err)
		term.Error("The site %q could not be added.", host)
		return false
	}
	clog.Info("hosts: %s -> %s in %s", host, addr, e.Path)
	term.Success("Added new site at %s", term.Bold(host))
	return true
}

// RemoveEntry is Remove with the outcome reported to the user. A host that
// has no entry counts as removed.
func (e *Editor) RemoveEntry(host string) bool {
	removed, err := e.Remove(host)
	if err != nil {
		term.Error("%v", err)
		term.Error("The site %q could not be removed.", host)
		return false
	}
	if !removed {
		term.Warn("The site %q does not exist", host)
		return true
	}
	clog.Info("hosts: removed %s from %s", host, e.Path)
	term.Success("The site %s was removed successfully.", term.Bold(host))
	return true
}

func (e *Editor) read() ([]string, os.FileMode, error) {
	info, err := os.Stat(e.Path)
	if err != nil {
		return nil, 0, fmt.Errorf("read hosts file: %w", err)
	}
	data, err := os.ReadFile(e.Path)
	if err != nil {
		return nil, 0, fmt.Errorf("read hosts file: %w", err)
	}
	return strings.Split(string(data), e.eol()), info.Mode().Perm(), nil
}

// write replaces the file through a temporary file in the same directory,
// falling back to an in-place write where that is not possible (for
// example a bind-mounted /etc/hosts). A symlinked path is resolved first so
// the link itself survives.
func (e *Editor) write(lines []string, mode os.FileMode) error {
	data := []byte(strings.Join(lines, e.eol()))

	path, err := filepath.EvalSymlinks(e.Path)
	if err != nil {
		return fmt.Errorf("write hosts file: %w", err)
	}
	if err := writeAtomic(path, data, mode); err != nil {
		clog.Debug("hosts: atomic write failed, writing in place: %v", err)
		if err := os.WriteFile(path, data, mode); err != nil {
			return fmt.Errorf("write hosts file: %w", err)
		}
	}
	return nil
}

func writeAtomic(path string, data []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".hosts-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer func() { _ = os.Remove(name) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(name, path)
}
