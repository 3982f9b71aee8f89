package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/park285/castle-blotto/internal/blotto"
)

type AppConfig struct {
	Addr string

	Mode            blotto.Mode
	AuthorityPolicy blotto.AuthorityPolicy
	MaxObjectives   int

	// 연결당 inbound 액션 제한
	InboundRate  float64
	InboundBurst int
	SendQueue    int
	WriteTimeout time.Duration

	AllowedOrigins []string

	RedisURL     string
	EventChannel string
	SnapshotTTL  time.Duration

	DatabaseURL  string
	HistoryLimit int

	ResultsWebhookURL string
	WebhookTimeout    time.Duration

	MessagesDir string
}

// LoadDotenv는 .env 파일이 있으면 환경변수로 올린다. 이미 설정된 값은 덮어쓰지 않는다.
func LoadDotenv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load dotenv: %w", err)
	}
	return nil
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Addr:            ":3000",
		Mode:            blotto.ModeMultiRound,
		AuthorityPolicy: blotto.AuthorityRetain,
		MaxObjectives:   blotto.DefaultMaxObjectives,
		InboundRate:     20,
		InboundBurst:    40,
		SendQueue:       64,
		WriteTimeout:    5 * time.Second,
		EventChannel:    "blotto:events",
		SnapshotTTL:     time.Hour,
		HistoryLimit:    20,
		WebhookTimeout:  5 * time.Second,
	}

	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if n, err := strconv.Atoi(v); err != nil || n <= 0 || n > 65535 {
			return nil, fmt.Errorf("invalid PORT %q", v)
		}
		cfg.Addr = ":" + v
	}
	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.Addr = v
	}

	if v := strings.TrimSpace(os.Getenv("BLOTTO_MODE")); v != "" {
		cfg.Mode = blotto.ParseMode(strings.ToLower(v))
	}
	if v := strings.TrimSpace(os.Getenv("AUTHORITY_POLICY")); v != "" {
		cfg.AuthorityPolicy = blotto.ParseAuthorityPolicy(strings.ToLower(v))
	}
	if v := strings.TrimSpace(os.Getenv("MAX_OBJECTIVES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxObjectives = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("INBOUND_RATE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.InboundRate = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("INBOUND_BURST")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.InboundBurst = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SEND_QUEUE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SendQueue = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("WRITE_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.WriteTimeout = d
		}
	}

	cfg.AllowedOrigins = splitList(os.Getenv("ALLOWED_ORIGINS"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	if v := strings.TrimSpace(os.Getenv("EVENT_CHANNEL")); v != "" {
		cfg.EventChannel = v
	}
	if v := strings.TrimSpace(os.Getenv("SNAPSHOT_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SnapshotTTL = d
		}
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if v := strings.TrimSpace(os.Getenv("HISTORY_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryLimit = n
		}
	}

	cfg.ResultsWebhookURL = strings.TrimSpace(os.Getenv("RESULTS_WEBHOOK_URL"))
	if v := strings.TrimSpace(os.Getenv("WEBHOOK_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.WebhookTimeout = d
		}
	}
	if cfg.ResultsWebhookURL != "" &&
		!strings.HasPrefix(cfg.ResultsWebhookURL, "http://") && !strings.HasPrefix(cfg.ResultsWebhookURL, "https://") {
		return nil, errors.New("RESULTS_WEBHOOK_URL must be an http(s) URL")
	}

	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	return cfg, nil
}

// EngineOptions는 설정에서 엔진 옵션을 만든다.
func (c *AppConfig) EngineOptions() blotto.Options {
	return blotto.Options{
		Mode:            c.Mode,
		AuthorityPolicy: c.AuthorityPolicy,
		MaxObjectives:   c.MaxObjectives,
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
