package blottopresenter

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/park285/castle-blotto/internal/blotto"
	"github.com/park285/castle-blotto/internal/msgcat"
	"github.com/park285/castle-blotto/pkg/blottodto"
)

func newTestFormatter(t *testing.T) *Formatter {
	t.Helper()
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return NewFormatter(cat)
}

func TestFrame_RejectionUsesCatalog(t *testing.T) {
	f := newTestFormatter(t)
	err := blotto.ValidateMove(&blotto.Settings{Objectives: 2, Weights: []float64{1, 1}, Pool: 10}, []int{4, 5})
	n := blotto.Notification{
		Kind:    blotto.KindInvalidMove,
		To:      []string{"a"},
		Payload: blotto.Rejection{Action: blotto.ActionSubmitMove, Code: blotto.CodeOf(err), Reason: err.Error()},
	}
	kind, data := f.Frame(n)
	rej := data.(blottodto.Rejection)
	if kind != blottodto.TypeInvalidMove || rej.Code != "INVALID_MOVE" || rej.Action != "submit-move" {
		t.Fatalf("unexpected frame: %s %+v", kind, rej)
	}
	if rej.Reason != "Your allocation was rejected: allocation sums to 9, pool is 10" {
		t.Fatalf("unexpected reason %q", rej.Reason)
	}
}

func TestReason_UnknownCodeFallsBack(t *testing.T) {
	f := newTestFormatter(t)
	if got := f.Reason("SOMETHING_NEW", "raw text"); got != "raw text" {
		t.Fatalf("expected raw fallback, got %q", got)
	}
	var nilF *Formatter
	if got := nilF.Reason("INVALID_MOVE", "x: y"); got != "x: y" {
		t.Fatalf("nil formatter should keep detail, got %q", got)
	}
}

func TestFrame_RoundResultShape(t *testing.T) {
	f := newTestFormatter(t)
	settings := &blotto.Settings{Objectives: 3, Weights: []float64{10, 10, 10}, Pool: 10}
	ps := []*blotto.Player{
		{ID: "a", Name: "Alice", Move: []int{10, 0, 0}},
		{ID: "b", Name: "Bob", Move: []int{0, 0, 10}},
		{ID: "c", Name: "Cara", Move: []int{4, 6, 0}},
	}
	out := blotto.ResolveRound(settings, ps)
	out.Round = 1

	kind, data := f.Frame(blotto.Notification{Kind: blotto.KindRoundResult, Payload: out})
	if kind != "round-result" {
		t.Fatalf("unexpected kind %s", kind)
	}
	b, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		Round      int `json:"round"`
		CrossTable []struct {
			Scores []struct {
				Score *float64 `json:"score"`
				Self  bool     `json:"self"`
			} `json:"scores"`
		} `json:"crossTable"`
		Results []struct {
			Winner *blottodto.PlayerRef `json:"winner"`
		} `json:"results"`
		Distributions []blottodto.Distribution `json:"distributions"`
	}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Round != 1 || len(decoded.CrossTable) != 3 || len(decoded.Results) != 3 || len(decoded.Distributions) != 3 {
		t.Fatalf("unexpected payload %s", b)
	}
	for i, row := range decoded.CrossTable {
		for j, c := range row.Scores {
			if (i == j) != c.Self || (c.Self && c.Score != nil) || (!c.Self && c.Score == nil) {
				t.Fatalf("cell %d,%d malformed in %s", i, j, b)
			}
		}
	}
	lines := f.PairLines(data.(*blottodto.RoundResult))
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "Alice ") {
		t.Fatalf("unexpected pair lines: %v", lines)
	}
}

func TestFrame_SessionEndedSummary(t *testing.T) {
	f := newTestFormatter(t)
	sum := blotto.SessionSummary{
		SessionID:      "s1",
		EndedAt:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		RoundsResolved: 2,
		Scores: []blotto.FinalStanding{
			{Player: blotto.PlayerRef{ID: "a", Name: "Alice"}, Wins: 2, Formatted: "61.50%"},
			{Player: blotto.PlayerRef{ID: "b", Name: "Bob"}, Formatted: "n/a"},
		},
	}
	kind, data := f.Frame(blotto.Notification{Kind: blotto.KindSessionEnded, Payload: sum})
	ended := data.(blottodto.SessionEnded)
	if kind != "session-ended" || len(ended.Scores) != 2 || ended.Scores[0].AveragePercentage != "61.50%" {
		t.Fatalf("unexpected frame: %s %+v", kind, ended)
	}
	if ended.StartedAt != nil {
		t.Fatalf("zero start time should be omitted")
	}
	want := "Castle Blotto session s1 ended after 2 round(s).\n1. Alice wins=2 avg=61.50%\n2. Bob wins=0 avg=n/a"
	if ended.Summary != want {
		t.Fatalf("summary:\nwant %q\n got %q", want, ended.Summary)
	}
}

func TestFrame_NilPayload(t *testing.T) {
	f := newTestFormatter(t)
	kind, data := f.Frame(blotto.Notification{Kind: blotto.KindYouAreAuthority})
	if kind != "you-are-authority" || data != nil {
		t.Fatalf("unexpected frame %s %v", kind, data)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	in := blottodto.Settings{Objectives: 2, Weights: []float64{1, 3}, Pool: 7}
	s := FromDTOSettings(in)
	in.Weights[0] = 100
	if s.Weights[0] != 1 {
		t.Fatalf("conversion shares weights slice")
	}
	back := ToDTOSettings(s)
	if back.Objectives != 2 || back.Pool != 7 || back.Weights[1] != 3 {
		t.Fatalf("unexpected settings %+v", back)
	}
}
