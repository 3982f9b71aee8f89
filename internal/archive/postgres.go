package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS blotto_sessions (
	session_id      TEXT PRIMARY KEY,
	mode            TEXT NOT NULL,
	started_at      TIMESTAMPTZ NOT NULL,
	ended_at        TIMESTAMPTZ NOT NULL,
	last_round      INTEGER NOT NULL,
	rounds_resolved INTEGER NOT NULL,
	settings        JSONB
);
CREATE INDEX IF NOT EXISTS blotto_sessions_ended_at_idx ON blotto_sessions (ended_at DESC);
CREATE TABLE IF NOT EXISTS blotto_session_players (
	session_id TEXT NOT NULL REFERENCES blotto_sessions (session_id) ON DELETE CASCADE,
	rank       INTEGER NOT NULL,
	player_id  TEXT NOT NULL,
	name       TEXT NOT NULL,
	wins       INTEGER NOT NULL,
	average    DOUBLE PRECISION,
	formatted  TEXT NOT NULL,
	PRIMARY KEY (session_id, player_id)
);`

type pgRepository struct {
	db *sql.DB
}

// NewPostgresRepository opens DATABASE_URL with lib/pq and pings it.
func NewPostgresRepository(ctx context.Context, databaseURL string) (Repository, func() error, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil, errors.New("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("postgres ping: %w", err)
	}
	r := &pgRepository{db: db}
	if err := r.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return r, db.Close, nil
}

func (r *pgRepository) ensureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Save upserts the session row and replaces its player rows in one transaction.
func (r *pgRepository) Save(ctx context.Context, rec *Record) (err error) {
	if rec == nil {
		return nil
	}
	var settings []byte
	if rec.Settings != nil {
		if settings, err = json.Marshal(rec.Settings); err != nil {
			return fmt.Errorf("marshal settings: %w", err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const upsert = `INSERT INTO blotto_sessions (
		session_id, mode, started_at, ended_at, last_round, rounds_resolved, settings
	) VALUES ($1,$2,$3,$4,$5,$6,$7)
	ON CONFLICT (session_id) DO UPDATE SET
		mode=EXCLUDED.mode,
		started_at=EXCLUDED.started_at,
		ended_at=EXCLUDED.ended_at,
		last_round=EXCLUDED.last_round,
		rounds_resolved=EXCLUDED.rounds_resolved,
		settings=EXCLUDED.settings`
	if _, err = tx.ExecContext(ctx, upsert,
		rec.SessionID, rec.Mode, rec.StartedAt, rec.EndedAt, rec.LastRound, rec.RoundsResolved, nullJSON(settings),
	); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM blotto_session_players WHERE session_id=$1`, rec.SessionID); err != nil {
		return fmt.Errorf("clear players: %w", err)
	}
	for _, p := range rec.Players {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO blotto_session_players (session_id, rank, player_id, name, wins, average, formatted)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			rec.SessionID, p.Rank, p.PlayerID, p.Name, p.Wins, nullFloat(p.Average), p.Formatted,
		); err != nil {
			return fmt.Errorf("insert player %s: %w", p.PlayerID, err)
		}
	}
	return tx.Commit()
}

func (r *pgRepository) Get(ctx context.Context, sessionID string) (*Record, error) {
	recs, err := r.query(ctx, `SELECT session_id, mode, started_at, ended_at, last_round, rounds_resolved, settings
		FROM blotto_sessions WHERE session_id=$1`, sessionID)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return recs[0], nil
}

func (r *pgRepository) Recent(ctx context.Context, limit int) ([]*Record, error) {
	return r.query(ctx, `SELECT session_id, mode, started_at, ended_at, last_round, rounds_resolved, settings
		FROM blotto_sessions ORDER BY ended_at DESC, session_id DESC LIMIT $1`, clampLimit(limit))
}

func (r *pgRepository) query(ctx context.Context, q string, args ...any) ([]*Record, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out   []*Record
		ids   []string
		index = make(map[string]*Record)
	)
	for rows.Next() {
		var (
			rec      Record
			settings []byte
		)
		if err := rows.Scan(&rec.SessionID, &rec.Mode, &rec.StartedAt, &rec.EndedAt, &rec.LastRound, &rec.RoundsResolved, &settings); err != nil {
			return nil, err
		}
		s, err := decodeSettings(settings)
		if err != nil {
			return nil, err
		}
		rec.Settings = s
		rec.Players = []PlayerResult{}
		out = append(out, &rec)
		ids = append(ids, rec.SessionID)
		index[rec.SessionID] = &rec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*Record{}, nil
	}

	prow, err := r.db.QueryContext(ctx, `SELECT session_id, rank, player_id, name, wins, average, formatted
		FROM blotto_session_players WHERE session_id = ANY($1) ORDER BY session_id, rank`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer prow.Close()
	for prow.Next() {
		var (
			sid string
			p   PlayerResult
			avg sql.NullFloat64
		)
		if err := prow.Scan(&sid, &p.Rank, &p.PlayerID, &p.Name, &p.Wins, &avg, &p.Formatted); err != nil {
			return nil, err
		}
		if avg.Valid {
			v := avg.Float64
			p.Average = &v
		}
		if rec := index[sid]; rec != nil {
			rec.Players = append(rec.Players, p)
		}
	}
	return out, prow.Err()
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
