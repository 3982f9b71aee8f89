package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/park285/castle-blotto/internal/blotto"
)

var ErrNotFound = errors.New("archived session not found")

// Record is one ended session as stored.
type Record struct {
	SessionID      string           `json:"sessionId"`
	Mode           string           `json:"mode"`
	StartedAt      time.Time        `json:"startedAt"`
	EndedAt        time.Time        `json:"endedAt"`
	LastRound      int              `json:"lastRound"`
	RoundsResolved int              `json:"roundsResolved"`
	Settings       *blotto.Settings `json:"settings,omitempty"`
	Players        []PlayerResult   `json:"players"`
}

// PlayerResult is one final leaderboard line. Average is nil for players without rounds.
type PlayerResult struct {
	Rank      int      `json:"rank"`
	PlayerID  string   `json:"playerId"`
	Name      string   `json:"name"`
	Wins      int      `json:"wins"`
	Average   *float64 `json:"average"`
	Formatted string   `json:"averagePercentage"`
}

type Repository interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, sessionID string) (*Record, error)
	Recent(ctx context.Context, limit int) ([]*Record, error)
}

// FromSummary converts a session-ended summary. Sessions without an id (nothing to end) return nil.
func FromSummary(s blotto.SessionSummary) *Record {
	if s.SessionID == "" {
		return nil
	}
	rec := &Record{
		SessionID:      s.SessionID,
		Mode:           string(s.Mode),
		StartedAt:      s.StartedAt,
		EndedAt:        s.EndedAt,
		LastRound:      s.Round,
		RoundsResolved: s.RoundsResolved,
		Players:        make([]PlayerResult, 0, len(s.Scores)),
	}
	if s.Settings != nil {
		cp := *s.Settings
		cp.Weights = append([]float64(nil), s.Settings.Weights...)
		rec.Settings = &cp
	}
	for i, sc := range s.Scores {
		pr := PlayerResult{Rank: i + 1, PlayerID: sc.Player.ID, Name: sc.Player.Name, Wins: sc.Wins, Formatted: sc.Formatted}
		if sc.HasAverage {
			avg := sc.Average
			pr.Average = &avg
		}
		rec.Players = append(rec.Players, pr)
	}
	return rec
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 20
	}
	return limit
}

func decodeSettings(raw []byte) (*blotto.Settings, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s blotto.Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &s, nil
}
