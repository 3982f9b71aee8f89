package tournament

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/park285/castle-blotto/internal/archive"
	"github.com/park285/castle-blotto/internal/blotto"
	"github.com/park285/castle-blotto/internal/render"
)

// Snapshot is the current session as seen by the HTTP API.
func (s *Service) Snapshot() blotto.Snapshot {
	return s.engine.Snapshot()
}

// CrossTablePNG draws the last resolved round of the active session.
func (s *Service) CrossTablePNG(ctx context.Context) ([]byte, error) {
	snap := s.engine.Snapshot()
	var table blotto.CrossTable
	opts := render.Options{Title: "No rounds yet"}
	if snap.Last != nil {
		table = snap.Last.CrossTable
		opts.Title = "Round " + strconv.Itoa(snap.Last.Round)
	}
	if snap.Settings != nil {
		opts.MaxScore = snap.Settings.TotalWeight()
	}
	return render.CrossTablePNG(ctx, table, opts)
}

func (s *Service) RecentSessions(ctx context.Context, limit int) ([]*archive.Record, error) {
	return s.archive.Recent(ctx, limit)
}

func (s *Service) Session(ctx context.Context, sessionID string) (*archive.Record, error) {
	return s.archive.Get(ctx, sessionID)
}

// Rounds returns the recorded round results of a session, oldest first.
func (s *Service) Rounds(ctx context.Context, sessionID string) ([]json.RawMessage, error) {
	if s.events == nil {
		return nil, ErrHistoryUnavailable
	}
	return s.events.Rounds(ctx, sessionID)
}
