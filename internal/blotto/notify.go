package blotto

import "time"

// Kind names an outbound notification. Values are the wire names.
type Kind string

const (
	KindWaitingForPlayer   Kind = "waiting-for-player"
	KindYouAreAuthority    Kind = "you-are-authority"
	KindWaitingForSettings Kind = "waiting-for-settings"
	KindRoundStarted       Kind = "round-started"
	KindInvalidMove        Kind = "invalid-move"
	KindRoundResult        Kind = "round-result"
	KindRoundAdvanced      Kind = "round-advanced"
	KindSettingsUpdated    Kind = "settings-updated"
	KindSettingsRejected   Kind = "settings-rejected"
	KindActionRejected     Kind = "action-rejected"
	KindPlayerLeft         Kind = "player-left"
	KindSessionEnded       Kind = "session-ended"
)

// Notification is an immutable value addressed to explicit recipients.
// It never references session internals, so it can be delivered without the engine lock.
type Notification struct {
	Kind    Kind
	To      []string
	Payload any
}

// RoundStarted accompanies round-started and settings-updated.
type RoundStarted struct {
	Settings Settings `json:"settings"`
	Round    int      `json:"round"`
}

// Rejection accompanies invalid-move, settings-rejected and action-rejected.
type Rejection struct {
	Action ActionKind `json:"action"`
	Code   Code       `json:"code"`
	Reason string     `json:"reason"`
}

type RoundAdvanced struct {
	Round int `json:"round"`
}

type PlayerLeft struct {
	Player PlayerRef `json:"player"`
}

// SessionSummary accompanies session-ended.
type SessionSummary struct {
	SessionID      string          `json:"sessionId"`
	Mode           Mode            `json:"mode"`
	StartedAt      time.Time       `json:"startedAt"`
	EndedAt        time.Time       `json:"endedAt"`
	Round          int             `json:"round"`
	RoundsResolved int             `json:"roundsResolved"`
	Settings       *Settings       `json:"settings,omitempty"`
	Scores         []FinalStanding `json:"scores"`
}

func notifyOne(kind Kind, to string, payload any) Notification {
	return Notification{Kind: kind, To: []string{to}, Payload: payload}
}

func notifyAll(kind Kind, to []string, payload any) Notification {
	return Notification{Kind: kind, To: append([]string(nil), to...), Payload: payload}
}

func reject(kind Kind, action ActionKind, to string, err error) Notification {
	return notifyOne(kind, to, Rejection{Action: action, Code: CodeOf(err), Reason: err.Error()})
}
