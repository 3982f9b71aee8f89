package blottopresenter

import (
	"strconv"
	"strings"

	"github.com/park285/castle-blotto/internal/blotto"
	"github.com/park285/castle-blotto/internal/msgcat"
	"github.com/park285/castle-blotto/pkg/blottodto"
)

// Formatter turns engine notifications into wire frames, with human-readable
// reasons from the message catalog. A nil catalog keeps the engine's own text.
type Formatter struct {
	catalog *msgcat.Catalog
}

func NewFormatter(catalog *msgcat.Catalog) *Formatter {
	return &Formatter{catalog: catalog}
}

// Frame returns the wire type and data for n.
func (f *Formatter) Frame(n blotto.Notification) (string, any) {
	kind := string(n.Kind)
	switch p := n.Payload.(type) {
	case nil:
		return kind, nil
	case blotto.RoundStarted:
		return kind, blottodto.RoundStarted{Settings: ToDTOSettings(&p.Settings), Round: p.Round}
	case blotto.Rejection:
		return kind, f.Rejection(string(p.Action), string(p.Code), p.Reason)
	case *blotto.RoundOutcome:
		return kind, ToDTORoundResult(p)
	case blotto.RoundAdvanced:
		return kind, blottodto.RoundAdvanced{Round: p.Round}
	case blotto.PlayerLeft:
		return kind, blottodto.PlayerLeft{ID: p.Player.ID, Name: p.Player.Name}
	case blotto.SessionSummary:
		out := ToDTOSessionEnded(p)
		out.Summary = f.Summary(out)
		return kind, out
	default:
		return kind, p
	}
}

// Rejection renders the reason for code. detail is the raw error text; its
// leading "sentinel: " part is stripped before it goes into the template.
func (f *Formatter) Rejection(action, code, detail string) blottodto.Rejection {
	return blottodto.Rejection{Action: action, Code: code, Reason: f.Reason(code, detail)}
}

func (f *Formatter) Reason(code, detail string) string {
	short := detail
	if i := strings.Index(detail, ": "); i >= 0 {
		short = detail[i+2:]
	}
	if f == nil {
		return detail
	}
	return f.catalog.RenderOr("reject."+code, map[string]any{"Detail": short}, detail)
}

// Summary is a plain-text leaderboard used by the webhook and the UI.
func (f *Formatter) Summary(s blottodto.SessionEnded) string {
	if f == nil {
		return ""
	}
	if len(s.Scores) == 0 {
		return f.catalog.RenderOr("summary.empty", nil, "session ended")
	}
	var sb strings.Builder
	sb.WriteString(f.catalog.RenderOr("summary.header",
		map[string]any{"SessionID": s.SessionID, "Rounds": s.RoundsResolved},
		"session "+s.SessionID+" ended"))
	for i, sc := range s.Scores {
		sb.WriteString("\n")
		sb.WriteString(f.catalog.RenderOr("summary.line",
			map[string]any{"Rank": i + 1, "Name": sc.Name, "Wins": sc.Wins, "Average": sc.AveragePercentage},
			strconv.Itoa(i+1)+". "+sc.Name))
	}
	return sb.String()
}

// PairLines renders one line per pairing of a round.
func (f *Formatter) PairLines(r *blottodto.RoundResult) []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Results))
	for _, p := range r.Results {
		fallback := p.Player1.Name + " - " + p.Player2.Name
		var cat *msgcat.Catalog
		if f != nil {
			cat = f.catalog
		}
		out = append(out, cat.RenderOr("round.pair", map[string]any{
			"Player1": p.Player1.Name,
			"Player2": p.Player2.Name,
			"Score1":  formatScore(p.Player1Score),
			"Score2":  formatScore(p.Player2Score),
			"Tie":     p.Tie,
		}, fallback))
	}
	return out
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
