package blottodto

import "time"

// Outbound frame types.
const (
	TypeWaitingForPlayer   = "waiting-for-player"
	TypeYouAreAuthority    = "you-are-authority"
	TypeWaitingForSettings = "waiting-for-settings"
	TypeRoundStarted       = "round-started"
	TypeInvalidMove        = "invalid-move"
	TypeRoundResult        = "round-result"
	TypeRoundAdvanced      = "round-advanced"
	TypeSettingsUpdated    = "settings-updated"
	TypeSettingsRejected   = "settings-rejected"
	TypeActionRejected     = "action-rejected"
	TypePlayerLeft         = "player-left"
	TypeSessionEnded       = "session-ended"
)

type PlayerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type RoundStarted struct {
	Settings Settings `json:"settings"`
	Round    int      `json:"round"`
}

type Rejection struct {
	Action string `json:"action,omitempty"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

type PairResult struct {
	Player1      PlayerRef  `json:"player1"`
	Player2      PlayerRef  `json:"player2"`
	Player1Score float64    `json:"player1Score"`
	Player2Score float64    `json:"player2Score"`
	Winner       *PlayerRef `json:"winner"`
	Tie          bool       `json:"tie"`
}

// CrossCell is one opponent column; Score is null on the self cell.
type CrossCell struct {
	Opponent PlayerRef `json:"opponent"`
	Score    *float64  `json:"score"`
	Self     bool      `json:"self,omitempty"`
}

type CrossRow struct {
	Player PlayerRef   `json:"player"`
	Cells  []CrossCell `json:"scores"`
}

type Distribution struct {
	Player     PlayerRef `json:"player"`
	Allocation []int     `json:"allocation"`
}

type Standing struct {
	Player PlayerRef `json:"player"`
	Name   string    `json:"name"`
	Wins   int       `json:"wins"`
	Score  float64   `json:"score"`
}

type RoundResult struct {
	Round         int            `json:"round"`
	Results       []PairResult   `json:"results"`
	CrossTable    []CrossRow     `json:"crossTable"`
	Distributions []Distribution `json:"distributions"`
	Standings     []Standing     `json:"standings"`
}

type RoundAdvanced struct {
	Round int `json:"round"`
}

type PlayerLeft struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type FinalScore struct {
	Player            PlayerRef `json:"player"`
	Name              string    `json:"name"`
	Wins              int       `json:"wins"`
	AveragePercentage string    `json:"averagePercentage"`
}

type SessionEnded struct {
	SessionID      string       `json:"sessionId,omitempty"`
	Mode           string       `json:"mode,omitempty"`
	StartedAt      *time.Time   `json:"startedAt,omitempty"`
	EndedAt        time.Time    `json:"endedAt"`
	RoundsResolved int          `json:"roundsResolved"`
	Scores         []FinalScore `json:"scores"`
	Summary        string       `json:"summary,omitempty"`
}
