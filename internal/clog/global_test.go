package clog

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGlobalFunctions(t *testing.T) {
	defer Reset()

	var buf bytes.Buffer
	l := NewLogger()
	l.SetFileOutput(&buf)
	l.SetErrOutput(nil)
	l.SetLevel(LevelDebug)
	ReplaceGlobal(l)

	Debug("debug %s", "msg")
	Info("info %s", "msg")
	Warn("warn %s", "msg")
	Error("error %s", "msg")

	output := buf.String()
	for _, want := range []string{"debug msg", "info msg", "warn msg", "error msg"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestConfigure(t *testing.T) {
	defer Reset()

	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")

	if err := Configure(logPath, true, true); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	Debug("test message")
	if err := Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(content), `"msg":"test message"`) {
		t.Errorf("expected message in log file, got: %s", content)
	}
}

func TestConfigureEmptyPath(t *testing.T) {
	defer Reset()

	if err := Configure("", false, false); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	Info("test")
	if err := Close(); err != nil {
		t.Errorf("Close() without file = %v", err)
	}
}

func TestDiscard(t *testing.T) {
	defer Reset()
	Discard()

	Debug("test")
	Info("test")
	Warn("test")
	Error("test")
}

func TestWith_Global(t *testing.T) {
	defer Reset()

	var buf bytes.Buffer
	ReplaceGlobal(TestLogger(&buf))

	With("task", "npm").Info("launching")

	if !strings.Contains(buf.String(), `"task":"npm"`) {
		t.Errorf("expected field in output, got: %s", buf.String())
	}
}

func TestSetFunctions(t *testing.T) {
	defer Reset()

	var buf bytes.Buffer

	SetFileOutput(&buf)
	SetLevel(LevelDebug)
	SetQuiet(false)
	SetErrOutput(io.Discard)

	Debug("test debug")

	if !strings.Contains(buf.String(), "test debug") {
		t.Errorf("expected debug message after SetLevel")
	}
	if Global() == nil {
		t.Error("Global() returned nil")
	}
}
