package obslog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNew_JSONToWriter(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "debug", Format: "json", Console: true}, &buf)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	l.Info("round_resolve", zap.Int("round", 3))
	_ = l.Sync()

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if entry["msg"] != "round_resolve" || entry["round"].(float64) != 3 || entry["level"] != "info" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "warn", Format: "console", Console: true}, &buf)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	l.Info("hidden")
	l.Warn("shown")
	_ = l.Sync()
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "blotto.log")
	l, err := New(Options{Format: "legacy", File: path}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	l.Info("session_create")
	_ = l.Sync()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), " | session_create") {
		t.Fatalf("legacy separator missing: %q", string(b))
	}
}

func TestNew_NoSinksIsNop(t *testing.T) {
	l, err := New(Options{}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if l.Core().Enabled(zap.ErrorLevel) {
		t.Fatalf("expected nop logger")
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_TO_FILE", "true")
	t.Setenv("LOG_FILE", "x/y.log")
	o := OptionsFromEnv()
	if o.Level != "debug" || o.Format != "json" || o.File != "x/y.log" || !o.Console {
		t.Fatalf("unexpected options: %+v", o)
	}
}

func TestReplace(t *testing.T) {
	l := zap.NewExample()
	restore := Replace(l)
	if L() != l {
		t.Fatalf("replace did not take effect")
	}
	restore()
	if L() == l {
		t.Fatalf("restore did not take effect")
	}
}
