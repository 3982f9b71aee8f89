package blottopresenter

import (
	"github.com/park285/castle-blotto/internal/blotto"
	"github.com/park285/castle-blotto/pkg/blottodto"
)

func ToDTORef(p blotto.PlayerRef) blottodto.PlayerRef {
	return blottodto.PlayerRef{ID: p.ID, Name: p.Name}
}

func ToDTOSettings(s *blotto.Settings) blottodto.Settings {
	if s == nil {
		return blottodto.Settings{Weights: []float64{}}
	}
	return blottodto.Settings{
		Objectives: s.Objectives,
		Weights:    append([]float64{}, s.Weights...),
		Pool:       s.Pool,
	}
}

func FromDTOSettings(s blottodto.Settings) *blotto.Settings {
	return &blotto.Settings{
		Objectives: s.Objectives,
		Weights:    append([]float64(nil), s.Weights...),
		Pool:       s.Pool,
	}
}

func ToDTOStandings(in []blotto.Standing) []blottodto.Standing {
	out := make([]blottodto.Standing, 0, len(in))
	for _, s := range in {
		out = append(out, blottodto.Standing{Player: ToDTORef(s.Player), Name: s.Player.Name, Wins: s.Wins, Score: s.TotalScore})
	}
	return out
}

func ToDTORoundResult(o *blotto.RoundOutcome) *blottodto.RoundResult {
	if o == nil {
		return nil
	}
	res := &blottodto.RoundResult{
		Round:         o.Round,
		Results:       make([]blottodto.PairResult, 0, len(o.Results)),
		CrossTable:    make([]blottodto.CrossRow, 0, len(o.CrossTable)),
		Distributions: make([]blottodto.Distribution, 0, len(o.Distributions)),
		Standings:     ToDTOStandings(o.Standings),
	}
	for _, r := range o.Results {
		pr := blottodto.PairResult{
			Player1:      ToDTORef(r.Player1),
			Player2:      ToDTORef(r.Player2),
			Player1Score: r.Score1,
			Player2Score: r.Score2,
			Tie:          r.Tie,
		}
		if r.Winner != nil {
			w := ToDTORef(*r.Winner)
			pr.Winner = &w
		}
		res.Results = append(res.Results, pr)
	}
	for _, row := range o.CrossTable {
		cells := make([]blottodto.CrossCell, 0, len(row.Cells))
		for _, c := range row.Cells {
			cell := blottodto.CrossCell{Opponent: ToDTORef(c.Opponent), Self: c.Self}
			if !c.Self {
				score := c.Score
				cell.Score = &score
			}
			cells = append(cells, cell)
		}
		res.CrossTable = append(res.CrossTable, blottodto.CrossRow{Player: ToDTORef(row.Player), Cells: cells})
	}
	for _, d := range o.Distributions {
		res.Distributions = append(res.Distributions, blottodto.Distribution{
			Player:     ToDTORef(d.Player),
			Allocation: append([]int{}, d.Allocation...),
		})
	}
	return res
}

func ToDTOSessionEnded(s blotto.SessionSummary) blottodto.SessionEnded {
	out := blottodto.SessionEnded{
		SessionID:      s.SessionID,
		Mode:           string(s.Mode),
		EndedAt:        s.EndedAt,
		RoundsResolved: s.RoundsResolved,
		Scores:         make([]blottodto.FinalScore, 0, len(s.Scores)),
	}
	if !s.StartedAt.IsZero() {
		started := s.StartedAt
		out.StartedAt = &started
	}
	for _, f := range s.Scores {
		out.Scores = append(out.Scores, blottodto.FinalScore{
			Player:            ToDTORef(f.Player),
			Name:              f.Player.Name,
			Wins:              f.Wins,
			AveragePercentage: f.Formatted,
		})
	}
	return out
}
