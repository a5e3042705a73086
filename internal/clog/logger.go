package clog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger handles leveled logging to a structured file sink and stderr.
type Logger struct {
	mu        sync.Mutex
	level     Level       // minimum level to log
	sink      io.Writer   // raw writer behind file, kept for Close
	file      *zap.Logger // nil when file logging is disabled
	fields    []zap.Field // attached by With
	errWriter io.Writer   // receives warn/error unless quiet
	quiet     bool
}

// NewLogger creates a new logger with default settings.
// By default, warnings and errors go to stderr at Info level.
func NewLogger() *Logger {
	return &Logger{
		level:     LevelInfo,
		errWriter: os.Stderr,
	}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetFileOutput sets the writer receiving JSON log lines.
// Pass nil to disable file logging.
func (l *Logger) SetFileOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = w
	if w == nil {
		l.file = nil
		return
	}
	l.file = newFileLogger(w).With(l.fields...)
}

// SetErrOutput sets the stderr writer for warn/error output.
// Pass nil to disable stderr logging.
func (l *Logger) SetErrOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errWriter = w
}

// SetQuiet enables or disables quiet mode.
// In quiet mode, logs only go to the file sink, not stderr.
func (l *Logger) SetQuiet(quiet bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quiet = quiet
}

// With returns a child logger that adds key=value to every file entry.
// The child shares the parent's outputs and level at the time of the call.
func (l *Logger) With(key string, value any) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	fields := make([]zap.Field, 0, len(l.fields)+1)
	fields = append(fields, l.fields...)
	fields = append(fields, zap.Any(key, value))

	child := &Logger{
		level:     l.level,
		sink:      l.sink,
		fields:    fields,
		errWriter: l.errWriter,
		quiet:     l.quiet,
	}
	if l.file != nil {
		child.file = l.file.With(zap.Any(key, value))
	}
	return child
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	l.log(LevelDebug, format, args...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...any) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	l.log(LevelError, format, args...)
}

// log writes a log message to the appropriate outputs.
func (l *Logger) log(level Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	msg := fmt.Sprintf(format, args...)

	if l.file != nil {
		if ce := l.file.Check(level.zapLevel(), msg); ce != nil {
			ce.Write()
		}
	}

	if !l.quiet && l.errWriter != nil && level >= LevelWarn {
		_, _ = fmt.Fprintf(l.errWriter, "[%s] %s\n", level, msg)
	}
}

// sync flushes the file sink.
func (l *Logger) sync() error {
	if l.file == nil {
		return nil
	}
	return l.file.Sync()
}

// newFileLogger builds a zap logger writing one JSON object per line.
// Level filtering is done by Logger, so the core accepts everything.
func newFileLogger(w io.Writer) *zap.Logger {
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.UTC().Format(time.RFC3339))
		},
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(w),
		zapcore.DebugLevel,
	)
	return zap.New(core)
}

// OpenLogFile opens a log file for writing, creating parent directories if needed.
// The file is opened in append mode.
func OpenLogFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return f, nil
}

// DefaultLogPath returns the default log file path following XDG conventions.
// Returns ~/.local/state/simon/simon.log
func DefaultLogPath() string {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "simon", "simon.log")
}
