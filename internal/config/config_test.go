package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/park285/castle-blotto/internal/blotto"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":3000" || cfg.Mode != blotto.ModeMultiRound || cfg.AuthorityPolicy != blotto.AuthorityRetain {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.MaxObjectives != blotto.DefaultMaxObjectives || cfg.SendQueue != 64 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("BLOTTO_MODE", "Single-Shot")
	t.Setenv("AUTHORITY_POLICY", "transfer")
	t.Setenv("MAX_OBJECTIVES", "12")
	t.Setenv("INBOUND_RATE", "2.5")
	t.Setenv("ALLOWED_ORIGINS", "example.com, , *.local")
	t.Setenv("SNAPSHOT_TTL", "10m")
	t.Setenv("HISTORY_LIMIT", "abc")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.Mode != blotto.ModeSingleShot || cfg.AuthorityPolicy != blotto.AuthorityTransfer {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.MaxObjectives != 12 || cfg.InboundRate != 2.5 || cfg.SnapshotTTL != 10*time.Minute {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "*.local" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
	if cfg.HistoryLimit != 20 {
		t.Fatalf("bad HISTORY_LIMIT should keep default, got %d", cfg.HistoryLimit)
	}
	opts := cfg.EngineOptions()
	if opts.Mode != blotto.ModeSingleShot || opts.MaxObjectives != 12 {
		t.Fatalf("unexpected engine options: %+v", opts)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("PORT", "http")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid PORT")
	}
}

func TestLoad_InvalidWebhook(t *testing.T) {
	t.Setenv("RESULTS_WEBHOOK_URL", "ftp://x")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-http webhook")
	}
}

func TestLoadDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("EVENT_CHANNEL=from-dotenv\nPORT=9000\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("PORT", "7000")
	t.Setenv("EVENT_CHANNEL", "")
	os.Unsetenv("EVENT_CHANNEL")
	t.Cleanup(func() { os.Unsetenv("EVENT_CHANNEL") })

	if err := LoadDotenv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("dotenv: %v", err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.EventChannel != "from-dotenv" {
		t.Fatalf("dotenv value not loaded: %q", cfg.EventChannel)
	}
	if cfg.Addr != ":7000" {
		t.Fatalf("dotenv must not override existing env, got %q", cfg.Addr)
	}
}
