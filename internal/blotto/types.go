package blotto

import "time"

// State represents the session lifecycle.
type State string

const (
	StateEmpty            State = "EMPTY"
	StateAwaitingPlayers  State = "AWAITING_PLAYERS"
	StateAwaitingSettings State = "AWAITING_SETTINGS"
	StateRoundInProgress  State = "ROUND_IN_PROGRESS"
	StateRoundResolved    State = "ROUND_RESOLVED"
	StateEnded            State = "ENDED"
)

// Mode selects what happens after a round resolves.
type Mode string

const (
	// ModeMultiRound waits for an explicit advance-round and allows settings updates.
	ModeMultiRound Mode = "multi-round"
	// ModeSingleShot locks settings once set and advances automatically after each result.
	ModeSingleShot Mode = "single-shot"
)

func ParseMode(s string) Mode {
	switch s {
	case "single-shot", "single", "oneshot":
		return ModeSingleShot
	default:
		return ModeMultiRound
	}
}

// AuthorityPolicy decides who holds settings authority once the first joiner leaves.
type AuthorityPolicy string

const (
	// AuthorityRetain keeps the departed player as authority; settings become unchangeable.
	AuthorityRetain AuthorityPolicy = "retain"
	// AuthorityTransfer hands authority to the earliest-joined remaining player.
	AuthorityTransfer AuthorityPolicy = "transfer"
)

func ParseAuthorityPolicy(s string) AuthorityPolicy {
	if s == string(AuthorityTransfer) {
		return AuthorityTransfer
	}
	return AuthorityRetain
}

// Settings is the per-round rule set. Replaced wholesale, never mutated.
type Settings struct {
	Objectives int       `json:"objectives"`
	Weights    []float64 `json:"weights"`
	Pool       int       `json:"pool"`
}

// TotalWeight is the sum of all objective weights, i.e. what every pair distributes.
func (s *Settings) TotalWeight() float64 {
	if s == nil {
		return 0
	}
	total := 0.0
	for _, w := range s.Weights {
		total += w
	}
	return total
}

func (s *Settings) clone() *Settings {
	if s == nil {
		return nil
	}
	c := *s
	c.Weights = append([]float64(nil), s.Weights...)
	return &c
}

// Player is owned by the session; callers only ever see copies.
type Player struct {
	ID               string
	Name             string
	Move             []int
	TotalScore       float64
	Wins             int
	RoundPercentages []float64
	JoinSeq          int
	JoinedAt         time.Time
}

// PlayerRef identifies a player inside derived results.
type PlayerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (p *Player) ref() PlayerRef { return PlayerRef{ID: p.ID, Name: p.Name} }

// PairResult is one unordered pairing of a resolved round.
type PairResult struct {
	Player1 PlayerRef `json:"player1"`
	Player2 PlayerRef `json:"player2"`
	Score1  float64   `json:"player1Score"`
	Score2  float64   `json:"player2Score"`
	// Winner is nil on a tie.
	Winner *PlayerRef `json:"winner,omitempty"`
	Tie    bool       `json:"tie"`
}

// CrossCell is one player's score against one opponent. Self marks the diagonal.
type CrossCell struct {
	Opponent PlayerRef `json:"opponent"`
	Score    float64   `json:"score"`
	Self     bool      `json:"self,omitempty"`
}

// CrossRow holds every cell of a single player, opponents in roster order.
type CrossRow struct {
	Player PlayerRef   `json:"player"`
	Cells  []CrossCell `json:"cells"`
}

// CrossTable is rebuilt every round.
type CrossTable []CrossRow

// Score returns the recorded score of player against opponent.
func (t CrossTable) Score(playerID, opponentID string) (float64, bool) {
	for _, row := range t {
		if row.Player.ID != playerID {
			continue
		}
		for _, c := range row.Cells {
			if c.Opponent.ID == opponentID && !c.Self {
				return c.Score, true
			}
		}
	}
	return 0, false
}

// Distribution is the allocation a player submitted for the resolved round.
type Distribution struct {
	Player     PlayerRef `json:"player"`
	Allocation []int     `json:"allocation"`
}

// Standing is one line of the per-round leaderboard.
type Standing struct {
	Player     PlayerRef `json:"player"`
	Wins       int       `json:"wins"`
	TotalScore float64   `json:"score"`
}

// FinalStanding is one line of the end-of-session leaderboard.
type FinalStanding struct {
	Player  PlayerRef `json:"player"`
	Wins    int       `json:"wins"`
	Average float64   `json:"-"`
	// HasAverage is false when the player never took part in a resolved pair.
	HasAverage bool   `json:"-"`
	Formatted  string `json:"averagePercentage"`
}

// RoundOutcome is the full derived result of one resolved round.
type RoundOutcome struct {
	SessionID     string         `json:"sessionId"`
	Round         int            `json:"round"`
	// MaxScore is the total weight each pair distributed.
	MaxScore      float64        `json:"maxScore"`
	Results       []PairResult   `json:"results"`
	CrossTable    CrossTable     `json:"crossTable"`
	Distributions []Distribution `json:"distributions"`
	Standings     []Standing     `json:"standings"`
}
