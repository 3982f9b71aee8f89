// Package eventbus mirrors session notifications to Redis for out-of-process consumers
// and keeps the latest standings snapshot and per-session round history there.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultChannel = "blotto:events"
	defaultTTL     = time.Hour
	keySnapshot    = "blotto:snapshot"
)

// Event is the JSON body published on the channel.
type Event struct {
	Kind      string          `json:"kind"`
	SessionID string          `json:"sessionId,omitempty"`
	To        []string        `json:"to"`
	Data      json.RawMessage `json:"data,omitempty"`
	At        time.Time       `json:"at"`
}

type Publisher struct {
	rdb     *redis.Client
	channel string
	ttl     time.Duration
	now     func() time.Time
}

// New dials REDIS_URL and pings it.
func New(ctx context.Context, redisURL, channel string, ttl time.Duration) (*Publisher, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, errors.New("REDIS_URL required for event bus")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewWithClient(rdb, channel, ttl), nil
}

func NewWithClient(rdb *redis.Client, channel string, ttl time.Duration) *Publisher {
	if strings.TrimSpace(channel) == "" {
		channel = defaultChannel
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Publisher{rdb: rdb, channel: channel, ttl: ttl, now: time.Now}
}

func (p *Publisher) Channel() string { return p.channel }

func (p *Publisher) Close() error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}

func keyRounds(sessionID string) string    { return "blotto:session:" + strings.TrimSpace(sessionID) + ":rounds" }
func keyLastRound(sessionID string) string { return "blotto:session:" + strings.TrimSpace(sessionID) + ":last" }

// Publish sends one notification to the channel. data is marshalled as-is.
func (p *Publisher) Publish(ctx context.Context, sessionID, kind string, to []string, data any) error {
	ev := Event{Kind: kind, SessionID: sessionID, To: to, At: p.now().UTC()}
	if ev.To == nil {
		ev.To = []string{}
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal event data: %w", err)
		}
		ev.Data = raw
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, body).Err()
}

// SaveSnapshot stores the latest engine snapshot with the configured TTL.
func (p *Publisher) SaveSnapshot(ctx context.Context, snap any) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return p.rdb.Set(ctx, keySnapshot, raw, p.ttl).Err()
}

// Snapshot returns the stored snapshot, or nil when none is cached.
func (p *Publisher) Snapshot(ctx context.Context) ([]byte, error) {
	raw, err := p.rdb.Get(ctx, keySnapshot).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return raw, err
}

// RecordRound appends a resolved round to the session history. Rounds at or below
// the last recorded one are ignored, so replays are harmless.
func (p *Publisher) RecordRound(ctx context.Context, sessionID string, round int, result any) (bool, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return false, err
	}
	lastK, roundsK := keyLastRound(sessionID), keyRounds(sessionID)
	appended := false
	err = p.rdb.Watch(ctx, func(tx *redis.Tx) error {
		last, err := tx.Get(ctx, lastK).Int()
		if err != nil && err != redis.Nil {
			return err
		}
		if round <= last {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, roundsK, raw)
			pipe.Set(ctx, lastK, round, p.ttl)
			pipe.Expire(ctx, roundsK, p.ttl)
			return nil
		})
		if err == nil {
			appended = true
		}
		return err
	}, lastK)
	if err != nil {
		return false, fmt.Errorf("record round: %w", err)
	}
	return appended, nil
}

// Rounds returns the raw recorded round results of a session, oldest first.
func (p *Publisher) Rounds(ctx context.Context, sessionID string) ([]json.RawMessage, error) {
	vals, err := p.rdb.LRange(ctx, keyRounds(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, 0, len(vals))
	for _, v := range vals {
		out = append(out, json.RawMessage(v))
	}
	return out, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db %q", p)
		}
		db = n
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Username: u.User.Username(), Password: pass, DB: db}, nil
}
