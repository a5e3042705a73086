// Package executor launches the external tools simon orchestrates and keeps
// track of the ones still running so they can be cancelled together.
//
// Every command is a single shell line. In remote mode the line is wrapped
// so that it runs inside the project directory of the virtual machine:
//
//	vagrant ssh -c 'cd /vagrant && composer install'
package executor

import (
	"strings"
)

// Mode selects where a command runs.
type Mode int

const (
	// ModeDefault runs remotely when the launcher is configured to, and
	// locally otherwise.
	ModeDefault Mode = iota
	// ModeLocal always runs on this machine.
	ModeLocal
	// ModeRemote always runs on the virtual machine.
	ModeRemote
)

// String returns the lowercase name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeLocal:
		return "local"
	case ModeRemote:
		return "remote"
	default:
		return "default"
	}
}

// Process is anything the launcher can track and cancel: spawned commands
// as well as long-lived helpers such as the file watcher.
type Process interface {
	// Done is closed once the process has finished.
	Done() <-chan struct{}
	// Cancel asks the process to stop. It is a no-op once Done is closed.
	Cancel() error
}

// JoinLine joins a command name and its arguments with single spaces.
// Arguments are not quoted; they reach the shell as typed.
func JoinLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

// RemoteLine wraps line so that shell runs it inside dir on the remote
// machine. Every single quote in the wrapped command is escaped as '\''.
func RemoteLine(shell, dir, line string) string {
	inner := "cd " + dir + " && " + line
	return shell + " -c '" + strings.ReplaceAll(inner, "'", `'\''`) + "'"
}
