package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/park285/castle-blotto/internal/blotto"
)

var t0 = time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

func sampleSummary(id string, ended time.Time) blotto.SessionSummary {
	return blotto.SessionSummary{
		SessionID:      id,
		Mode:           blotto.ModeMultiRound,
		StartedAt:      ended.Add(-time.Hour),
		EndedAt:        ended,
		Round:          3,
		RoundsResolved: 2,
		Settings:       &blotto.Settings{Objectives: 2, Weights: []float64{1, 2}, Pool: 5},
		Scores: []blotto.FinalStanding{
			{Player: blotto.PlayerRef{ID: "a", Name: "Alice"}, Wins: 2, Average: 62.5, HasAverage: true, Formatted: "62.50%"},
			{Player: blotto.PlayerRef{ID: "b", Name: "Bob"}, Formatted: "n/a"},
		},
	}
}

func TestFromSummary(t *testing.T) {
	if FromSummary(blotto.SessionSummary{}) != nil {
		t.Fatalf("empty summary should not produce a record")
	}
	rec := FromSummary(sampleSummary("s1", t0))
	if rec.SessionID != "s1" || rec.RoundsResolved != 2 || rec.LastRound != 3 || rec.Settings.Pool != 5 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if len(rec.Players) != 2 || rec.Players[0].Rank != 1 || *rec.Players[0].Average != 62.5 {
		t.Fatalf("unexpected players %+v", rec.Players)
	}
	if rec.Players[1].Average != nil || rec.Players[1].Formatted != "n/a" {
		t.Fatalf("player without rounds must have nil average: %+v", rec.Players[1])
	}
}

func exerciseRepository(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()
	prefix := uuid.NewString()[:8]
	id := func(i int) string { return fmt.Sprintf("%s-%d", prefix, i) }
	base := time.Now().UTC().Truncate(time.Microsecond)

	for i := 1; i <= 3; i++ {
		if err := repo.Save(ctx, FromSummary(sampleSummary(id(i), base.Add(time.Duration(i)*time.Minute)))); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	// re-saving replaces players
	again := sampleSummary(id(2), base.Add(2*time.Minute))
	again.Scores = again.Scores[:1]
	if err := repo.Save(ctx, FromSummary(again)); err != nil {
		t.Fatalf("resave: %v", err)
	}

	got, err := repo.Get(ctx, id(2))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Players) != 1 {
		t.Fatalf("resave should replace players, got %d", len(got.Players))
	}
	want := FromSummary(again)
	if diff := cmp.Diff(want.Settings, got.Settings); diff != "" {
		t.Fatalf("settings mismatch (-want +got):\n%s", diff)
	}
	if !got.EndedAt.Equal(want.EndedAt) {
		t.Fatalf("ended_at mismatch %v vs %v", got.EndedAt, want.EndedAt)
	}

	if _, err := repo.Get(ctx, "missing-"+prefix); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	recent, err := repo.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].SessionID != id(3) || recent[1].SessionID != id(2) {
		ids := make([]string, len(recent))
		for i, r := range recent {
			ids[i] = r.SessionID
		}
		t.Fatalf("unexpected recent order %v", ids)
	}
}

func TestMemoryRepository(t *testing.T) {
	exerciseRepository(t, NewMemoryRepository())
}

func TestMemoryRepository_CopiesOnSave(t *testing.T) {
	repo := NewMemoryRepository()
	rec := FromSummary(sampleSummary("s1", t0))
	if err := repo.Save(context.Background(), rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	rec.Players[0].Name = "mutated"
	*rec.Players[0].Average = 0
	rec.Settings.Weights[0] = 99

	got, _ := repo.Get(context.Background(), "s1")
	if got.Players[0].Name != "Alice" || *got.Players[0].Average != 62.5 || got.Settings.Weights[0] != 1 {
		t.Fatalf("repository shares caller memory: %+v", got)
	}
}

// Runs against a real database when BLOTTO_TEST_DATABASE_URL is set.
func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("BLOTTO_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("BLOTTO_TEST_DATABASE_URL not set")
	}
	repo, closeFn, err := NewPostgresRepository(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = closeFn() })
	exerciseRepository(t, repo)
}

func TestNewPostgresRepository_RequiresURL(t *testing.T) {
	if _, _, err := NewPostgresRepository(context.Background(), " "); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
