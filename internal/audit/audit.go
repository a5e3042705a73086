// Package audit records every command simon runs as one key=value line per
// event, suitable for parsing and analysis.
package audit

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
)

// EventType represents the type of command event.
type EventType string

// Event types.
const (
	EventStart    EventType = "START"
	EventComplete EventType = "COMPLETE"
	EventCancel   EventType = "CANCEL"
	EventFail     EventType = "FAIL"
	EventDryRun   EventType = "DRYRUN"
)

// Event is one audit log entry.
type Event struct {
	// Timestamp is when the event occurred.
	Timestamp time.Time

	// Type is the event type (START, COMPLETE, etc.)
	Type EventType

	// Project is the project directory name.
	Project string

	// Cmd is the shell line, including any remote wrapper.
	Cmd string

	// ExitCode is the command exit code (for COMPLETE events).
	ExitCode int

	// Duration is the run time (for COMPLETE and CANCEL events).
	Duration time.Duration

	// Reason is why the command could not be started (for FAIL events).
	Reason string
}

// Format returns the log entry as a formatted string.
// Format: 2024-01-15T14:32:05Z COMMAND COMPLETE project=shop cmd="npm install" exit=0 duration=2.3s
func (e *Event) Format() string {
	var b strings.Builder

	b.WriteString(e.Timestamp.UTC().Format(time.RFC3339))
	b.WriteString(" COMMAND ")
	b.WriteString(string(e.Type))

	b.WriteString(" project=")
	b.WriteString(e.Project)
	b.WriteString(" cmd=")
	b.WriteString(quoteValue(e.Cmd))

	switch e.Type {
	case EventComplete:
		b.WriteString(" exit=")
		b.WriteString(strconv.Itoa(e.ExitCode))
		b.WriteString(" duration=")
		b.WriteString(formatDuration(e.Duration))
	case EventCancel:
		b.WriteString(" duration=")
		b.WriteString(formatDuration(e.Duration))
	case EventFail:
		if e.Reason != "" {
			b.WriteString(" reason=")
			b.WriteString(quoteValue(e.Reason))
		}
	}

	return b.String()
}

// quoteValue returns a quoted string value.
// Values are always quoted for consistency and to handle spaces/special chars.
func quoteValue(s string) string {
	return strconv.Quote(s)
}

// formatDuration formats a duration as a human-readable string (e.g., "2.3s", "1m30s").
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}

// Logger writes audit events for one project to an io.Writer. A nil
// Logger discards everything.
type Logger struct {
	mu      sync.Mutex
	w       io.Writer
	project string
	now     func() time.Time
}

// NewLogger creates a new audit logger that writes to the given writer.
func NewLogger(w io.Writer, project string) *Logger {
	return &Logger{w: w, project: project, now: time.Now}
}

// Log writes an event to the audit log. Timestamp and Project are filled
// in when empty.
func (l *Logger) Log(e *Event) error {
	if l == nil || l.w == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}
	if e.Project == "" {
		e.Project = l.project
	}

	if _, err := io.WriteString(l.w, e.Format()+"\n"); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

// LogStart logs a START event.
func (l *Logger) LogStart(cmd string) error {
	return l.Log(&Event{Type: EventStart, Cmd: cmd})
}

// LogComplete logs a COMPLETE event.
func (l *Logger) LogComplete(cmd string, exitCode int, duration time.Duration) error {
	return l.Log(&Event{Type: EventComplete, Cmd: cmd, ExitCode: exitCode, Duration: duration})
}

// LogCancel logs a CANCEL event.
func (l *Logger) LogCancel(cmd string, duration time.Duration) error {
	return l.Log(&Event{Type: EventCancel, Cmd: cmd, Duration: duration})
}

// LogFail logs a FAIL event for a command that could not be started.
func (l *Logger) LogFail(cmd string, reason error) error {
	e := &Event{Type: EventFail, Cmd: cmd}
	if reason != nil {
		e.Reason = reason.Error()
	}
	return l.Log(e)
}

// LogDryRun logs a DRYRUN event for a command that was only printed.
func (l *Logger) LogDryRun(cmd string) error {
	return l.Log(&Event{Type: EventDryRun, Cmd: cmd})
}
