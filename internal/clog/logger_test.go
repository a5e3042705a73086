package clog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// entries decodes the JSON lines written by the file sink.
func entries(t *testing.T, data string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(data), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("log line is not JSON: %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger()
	l.SetFileOutput(&buf)
	l.SetErrOutput(nil)
	l.SetLevel(LevelDebug)

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	got := entries(t, buf.String())
	want := []struct{ level, msg string }{
		{"DEBUG", "debug message"},
		{"INFO", "info message"},
		{"WARN", "warn message"},
		{"ERROR", "error message"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d: %s", len(got), len(want), buf.String())
	}
	for i, w := range want {
		if got[i]["level"] != w.level || got[i]["msg"] != w.msg {
			t.Errorf("entry %d = %v, want level=%s msg=%s", i, got[i], w.level, w.msg)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger()
	l.SetFileOutput(&buf)
	l.SetErrOutput(nil)
	l.SetLevel(LevelWarn)

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Errorf("debug message should be filtered, got: %s", output)
	}
	if strings.Contains(output, "info message") {
		t.Errorf("info message should be filtered, got: %s", output)
	}
	if !strings.Contains(output, "warn message") {
		t.Errorf("expected warn message in output, got: %s", output)
	}
	if !strings.Contains(output, "error message") {
		t.Errorf("expected error message in output, got: %s", output)
	}
}

func TestLogger_QuietMode(t *testing.T) {
	var fileBuf, errBuf bytes.Buffer
	l := NewLogger()
	l.SetFileOutput(&fileBuf)
	l.SetErrOutput(&errBuf)
	l.SetLevel(LevelDebug)

	l.Info("info only in file")
	l.Warn("cli warning")

	if !strings.Contains(fileBuf.String(), "cli warning") {
		t.Errorf("expected warning in file output")
	}
	if !strings.Contains(errBuf.String(), "[WARN] cli warning") {
		t.Errorf("expected warning in stderr output, got: %q", errBuf.String())
	}
	if strings.Contains(errBuf.String(), "info only in file") {
		t.Errorf("info should not reach stderr")
	}

	fileBuf.Reset()
	errBuf.Reset()

	l.SetQuiet(true)
	l.Error("quiet error")

	if !strings.Contains(fileBuf.String(), "quiet error") {
		t.Errorf("expected error in file output")
	}
	if errBuf.Len() != 0 {
		t.Errorf("quiet mode should not write to stderr, got: %q", errBuf.String())
	}
}

func TestLogger_FormatWithArgs(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger()
	l.SetFileOutput(&buf)
	l.SetErrOutput(nil)

	l.Info("count: %d, name: %s", 42, "test")

	got := entries(t, buf.String())
	if len(got) != 1 || got[0]["msg"] != "count: 42, name: test" {
		t.Errorf("expected formatted message, got: %s", buf.String())
	}
}

func TestLogger_TimestampFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger()
	l.SetFileOutput(&buf)
	l.SetErrOutput(nil)

	l.Info("test")

	got := entries(t, buf.String())
	ts, _ := got[0]["ts"].(string)
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Errorf("expected RFC3339 timestamp, got %q: %v", ts, err)
	}
	if !strings.HasSuffix(ts, "Z") {
		t.Errorf("expected UTC timestamp, got %q", ts)
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger()
	l.SetFileOutput(&buf)
	l.SetErrOutput(nil)

	child := l.With("run", "abc123")
	child.Info("step started")
	l.Info("plain")

	got := entries(t, buf.String())
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0]["run"] != "abc123" {
		t.Errorf("child entry missing field: %v", got[0])
	}
	if _, ok := got[1]["run"]; ok {
		t.Errorf("parent entry should not carry child field: %v", got[1])
	}
}

func TestLogger_NoFileOutput(t *testing.T) {
	var errBuf bytes.Buffer
	l := NewLogger()
	l.SetFileOutput(nil)
	l.SetErrOutput(&errBuf)

	l.Info("dropped")
	l.Error("shown")

	if got := errBuf.String(); got != "[ERROR] shown\n" {
		t.Errorf("stderr = %q", got)
	}
}

func TestOpenLogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "test.log")

	f, err := OpenLogFile(path)
	if err != nil {
		t.Fatalf("OpenLogFile() error = %v", err)
	}
	if _, err := f.WriteString("first entry\n"); err != nil {
		t.Fatalf("WriteString() error = %v", err)
	}
	f.Close()

	f, err = OpenLogFile(path)
	if err != nil {
		t.Fatalf("OpenLogFile() reopen error = %v", err)
	}
	if _, err := f.WriteString("second entry\n"); err != nil {
		t.Fatalf("WriteString() error = %v", err)
	}
	f.Close()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(content) != "first entry\nsecond entry\n" {
		t.Errorf("expected appended entries, got %q", content)
	}
}

func TestDefaultLogPath(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/state")
	path := DefaultLogPath()
	if path != filepath.Join("/tmp/state", "simon", "simon.log") {
		t.Errorf("DefaultLogPath() = %s", path)
	}
}
