package clog

import (
	"errors"
	"io"
	"os"
)

// std is the global logger instance used by package-level functions.
var std = NewLogger()

// Configure sets up the global logger.
// If logPath is empty, file logging is disabled.
// If debug is true, debug-level messages are logged.
// If quiet is true, stderr output is disabled.
func Configure(logPath string, debug bool, quiet bool) error {
	level := LevelInfo
	if debug {
		level = LevelDebug
	}
	std.SetLevel(level)
	std.SetQuiet(quiet)

	if logPath != "" {
		f, err := OpenLogFile(logPath)
		if err != nil {
			return err
		}
		std.SetFileOutput(f)
	}

	return nil
}

// SetLevel sets the minimum log level for the global logger.
func SetLevel(level Level) {
	std.SetLevel(level)
}

// SetFileOutput sets the file writer for the global logger.
func SetFileOutput(w io.Writer) {
	std.SetFileOutput(w)
}

// SetErrOutput sets the stderr writer for the global logger.
func SetErrOutput(w io.Writer) {
	std.SetErrOutput(w)
}

// SetQuiet enables or disables quiet mode for the global logger.
func SetQuiet(quiet bool) {
	std.SetQuiet(quiet)
}

// Global returns the global logger, for components that take a *Logger.
func Global() *Logger {
	return std
}

// With returns a child of the global logger carrying key=value.
func With(key string, value any) *Logger {
	return std.With(key, value)
}

// Debug logs a debug message using the global logger.
func Debug(format string, args ...any) {
	std.Debug(format, args...)
}

// Info logs an informational message using the global logger.
func Info(format string, args ...any) {
	std.Info(format, args...)
}

// Warn logs a warning message using the global logger.
func Warn(format string, args ...any) {
	std.Warn(format, args...)
}

// Error logs an error message using the global logger.
func Error(format string, args ...any) {
	std.Error(format, args...)
}

// Close flushes the file sink and closes it if it implements io.Closer.
func Close() error {
	std.mu.Lock()
	defer std.mu.Unlock()

	syncErr := std.sync()
	if closer, ok := std.sink.(io.Closer); ok {
		return errors.Join(syncErr, closer.Close())
	}
	return syncErr
}

// Reset resets the global logger to default state.
// This is primarily useful for testing.
func Reset() {
	std = NewLogger()
}

// Discard configures the global logger to discard all output.
func Discard() {
	std.SetFileOutput(nil)
	std.SetErrOutput(io.Discard)
}

// TestLogger returns a debug-level logger whose file sink and stderr both
// write to w.
func TestLogger(w io.Writer) *Logger {
	l := NewLogger()
	l.SetFileOutput(w)
	l.SetErrOutput(w)
	l.SetLevel(LevelDebug)
	return l
}

// ReplaceGlobal replaces the global logger and returns the previous one.
// Caller should restore the original logger after the test.
func ReplaceGlobal(l *Logger) *Logger {
	old := std
	std = l
	return old
}

func init() {
	std.SetErrOutput(os.Stderr)
}
