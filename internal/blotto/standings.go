package blotto

import (
	"fmt"
	"sort"
)

// RoundStandings ranks by wins, then cumulative score. Ties beyond that keep
// the input order, which callers should not rely on.
func RoundStandings(players []*Player) []Standing {
	out := make([]Standing, len(players))
	for i, p := range players {
		out[i] = Standing{Player: p.ref(), Wins: p.Wins, TotalScore: p.TotalScore}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		return out[i].TotalScore > out[j].TotalScore
	})
	return out
}

// AveragePercentage is the mean of the stored pair percentages.
// ok is false when the player never took part in a resolved pair.
func AveragePercentage(p *Player) (avg float64, ok bool) {
	if len(p.RoundPercentages) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range p.RoundPercentages {
		sum += v
	}
	return sum / float64(len(p.RoundPercentages)), true
}

// FormatPercentage renders an average the way the final leaderboard shows it.
func FormatPercentage(avg float64, ok bool) string {
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", avg)
}

// FinalStandings ranks by wins, then average percentage. Players without an
// average sort after everyone who has one.
func FinalStandings(players []*Player) []FinalStanding {
	out := make([]FinalStanding, len(players))
	for i, p := range players {
		avg, ok := AveragePercentage(p)
		out[i] = FinalStanding{
			Player:     p.ref(),
			Wins:       p.Wins,
			Average:    avg,
			HasAverage: ok,
			Formatted:  FormatPercentage(avg, ok),
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.HasAverage != b.HasAverage {
			return a.HasAverage
		}
		return a.Average > b.Average
	})
	return out
}
