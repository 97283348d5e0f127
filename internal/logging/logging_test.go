package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewLoggerConfig(t *testing.T) {
	cfg := NewLoggerConfig()
	if cfg.Level.Level() != zap.InfoLevel {
		t.Errorf("level: got %v, want info", cfg.Level.Level())
	}
	if len(cfg.OutputPaths) != 1 || cfg.OutputPaths[0] != "stderr" {
		t.Errorf("output paths: got %v", cfg.OutputPaths)
	}
	if !cfg.DisableStacktrace {
		t.Error("stacktraces should be disabled")
	}
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")

	logger, err := NewLogger("calibrate", true, path)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	logger.Debugw("debug entry", "dots", 64)
	logger.Infow("info entry")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{"DEBUG", "calibrate", "debug entry", "dots", "INFO"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestNewLogger_InfoLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	logger, err := NewLogger("calibrate", false, path)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hidden")
	_ = logger.Sync()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "hidden") {
		t.Error("debug entry written at info level")
	}
}

func TestNewLogger_BadPath(t *testing.T) {
	if _, err := NewLogger("x", false, filepath.Join(t.TempDir(), "missing", "dir", "log")); err == nil {
		t.Error("expected error for unwritable path")
	}
}
