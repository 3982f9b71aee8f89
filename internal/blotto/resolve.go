package blotto

// ScorePair compares two allocations objective by objective.
// The larger allocation takes the full weight, equal allocations split it.
func ScorePair(weights []float64, a, b []int) (scoreA, scoreB float64) {
	for k, w := range weights {
		switch {
		case a[k] > b[k]:
			scoreA += w
		case b[k] > a[k]:
			scoreB += w
		default:
			scoreA += w / 2
			scoreB += w / 2
		}
	}
	return scoreA, scoreB
}

// percentages returns each side's share of the pair total, 0 for both when nothing was at stake.
func percentages(scoreA, scoreB float64) (float64, float64) {
	total := scoreA + scoreB
	if total == 0 {
		return 0, 0
	}
	return scoreA / total * 100, scoreB / total * 100
}

// ResolveRound scores every unordered pair once, in roster order, and folds the
// cumulative effects into each player. All players must hold a move of matching length.
func ResolveRound(settings *Settings, players []*Player) *RoundOutcome {
	n := len(players)
	out := &RoundOutcome{
		Results:       make([]PairResult, 0, n*(n-1)/2),
		CrossTable:    make(CrossTable, n),
		Distributions: make([]Distribution, n),
	}

	for i, p := range players {
		cells := make([]CrossCell, n)
		for j, q := range players {
			cells[j] = CrossCell{Opponent: q.ref(), Self: i == j}
		}
		out.CrossTable[i] = CrossRow{Player: p.ref(), Cells: cells}
		out.Distributions[i] = Distribution{Player: p.ref(), Allocation: append([]int(nil), p.Move...)}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			p, q := players[i], players[j]
			scoreP, scoreQ := ScorePair(settings.Weights, p.Move, q.Move)
			pctP, pctQ := percentages(scoreP, scoreQ)

			p.RoundPercentages = append(p.RoundPercentages, pctP)
			q.RoundPercentages = append(q.RoundPercentages, pctQ)
			p.TotalScore += scoreP
			q.TotalScore += scoreQ

			res := PairResult{Player1: p.ref(), Player2: q.ref(), Score1: scoreP, Score2: scoreQ}
			switch {
			case scoreP > scoreQ:
				p.Wins++
				w := p.ref()
				res.Winner = &w
			case scoreQ > scoreP:
				q.Wins++
				w := q.ref()
				res.Winner = &w
			default:
				res.Tie = true
			}
			out.Results = append(out.Results, res)

			out.CrossTable[i].Cells[j].Score = scoreP
			out.CrossTable[j].Cells[i].Score = scoreQ
		}
	}

	out.Standings = RoundStandings(players)
	return out
}
