package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"ERROR":   LevelError,
		"none":    LevelNone,
		"bogus":   LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestFileOutputRespectsLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "service.log")

	l, err := New(LevelWarn, logPath, "test")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer l.Close()

	l.Debug("hidden debug line")
	l.Info("hidden info line")
	l.Warn("visible warn line")
	l.Error("visible error line")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	content := string(data)
	if strings.Contains(content, "hidden") {
		t.Errorf("log contains suppressed lines: %s", content)
	}
	if !strings.Contains(content, "visible warn line") || !strings.Contains(content, "visible error line") {
		t.Errorf("log missing expected lines: %s", content)
	}
	if !strings.Contains(content, "[test]") {
		t.Errorf("log missing prefix: %s", content)
	}
}

func TestWithPrefixChains(t *testing.T) {
	l, err := New(LevelNone, "", "outer")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	child := l.WithPrefix("inner")
	if child.prefix != "outer:inner" {
		t.Errorf("expected chained prefix, got %q", child.prefix)
	}
}
