package blotto

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
)

func TestRoundStandings_SortedByWinsThenScore(t *testing.T) {
	ps := []*Player{
		{ID: "a", Name: "a", Wins: 1, TotalScore: 40},
		{ID: "b", Name: "b", Wins: 2, TotalScore: 10},
		{ID: "c", Name: "c", Wins: 1, TotalScore: 55},
		{ID: "d", Name: "d", Wins: 0, TotalScore: 90},
	}
	got := RoundStandings(ps)
	want := []string{"b", "c", "a", "d"}
	for i, s := range got {
		if s.Player.ID != want[i] {
			t.Fatalf("position %d: want %s got %s", i, want[i], s.Player.ID)
		}
	}
}

func TestRoundStandings_NonIncreasing(t *testing.T) {
	f := gofakeit.New(7)
	ps := make([]*Player, 30)
	for i := range ps {
		ps[i] = &Player{ID: f.UUID(), Name: f.FirstName(), Wins: f.IntRange(0, 5), TotalScore: float64(f.IntRange(0, 100)) / 2}
	}
	got := RoundStandings(ps)
	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		if prev.Wins < cur.Wins || (prev.Wins == cur.Wins && prev.TotalScore < cur.TotalScore) {
			t.Fatalf("standings out of order at %d: %+v before %+v", i, prev, cur)
		}
	}
}

func TestFinalStandings_AverageAndOrder(t *testing.T) {
	ps := []*Player{
		{ID: "a", Name: "a", Wins: 1, RoundPercentages: []float64{60, 40}},
		{ID: "b", Name: "b", Wins: 2, RoundPercentages: []float64{20, 30}},
		{ID: "c", Name: "c", Wins: 1, RoundPercentages: []float64{90, 20}},
		{ID: "late", Name: "late"},
	}
	got := FinalStandings(ps)
	want := []string{"b", "c", "a", "late"}
	for i, s := range got {
		if s.Player.ID != want[i] {
			t.Fatalf("position %d: want %s got %s", i, want[i], s.Player.ID)
		}
	}
	if got[0].Formatted != "25.00%" || got[1].Formatted != "55.00%" {
		t.Fatalf("unexpected formatting: %q %q", got[0].Formatted, got[1].Formatted)
	}
	if got[3].HasAverage || got[3].Formatted != "n/a" {
		t.Fatalf("player without rounds must have no average: %+v", got[3])
	}
}

func TestAveragePercentage_Empty(t *testing.T) {
	if _, ok := AveragePercentage(&Player{}); ok {
		t.Fatalf("expected no average for empty history")
	}
}
