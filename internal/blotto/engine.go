package blotto

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/castle-blotto/internal/obslog"
	"go.uber.org/zap"
)

// Options configure every session the engine creates.
type Options struct {
	Mode            Mode
	AuthorityPolicy AuthorityPolicy
	MaxObjectives   int

	// NewID and Now are overridable for tests.
	NewID func() string
	Now   func() time.Time
}

// Engine holds the single active-session slot. Apply is the only mutation path;
// it holds the lock for the whole read-modify-write of one action.
type Engine struct {
	mu      sync.Mutex
	opts    Options
	session *Session
}

func NewEngine(opts Options) *Engine {
	if opts.Mode == "" {
		opts.Mode = ModeMultiRound
	}
	if opts.AuthorityPolicy == "" {
		opts.AuthorityPolicy = AuthorityRetain
	}
	if opts.MaxObjectives <= 0 {
		opts.MaxObjectives = DefaultMaxObjectives
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{opts: opts}
}

// Apply runs one action against the session and returns the notifications it produced.
func (e *Engine) Apply(a Action) []Notification {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.opts.Now()
	s := e.session
	switch a.Kind {
	case ActionJoin:
		if s == nil {
			s = newSession(e.opts.NewID(), e.opts, now)
			e.session = s
			obslog.L().Info("session_create",
				zap.String("session_id", s.id),
				zap.String("mode", string(s.mode)),
				zap.String("authority_policy", string(s.policy)),
			)
		}
		return s.join(a.PlayerID, a.Name, now)

	case ActionProposeSettings, ActionUpdateSettings:
		if s == nil {
			return []Notification{reject(KindSettingsRejected, a.Kind, a.PlayerID, ErrNotRegistered)}
		}
		return s.changeSettings(a.Kind, a.PlayerID, a.Settings)

	case ActionSubmitMove:
		if s == nil {
			return []Notification{reject(KindInvalidMove, a.Kind, a.PlayerID, ErrNotRegistered)}
		}
		return s.submit(a.PlayerID, a.Move)

	case ActionAdvanceRound:
		if s == nil {
			return []Notification{reject(KindActionRejected, a.Kind, a.PlayerID, ErrNotRegistered)}
		}
		return s.requestAdvance(a.PlayerID)

	case ActionEndSession:
		if s == nil {
			return []Notification{notifyOne(KindSessionEnded, a.PlayerID, SessionSummary{EndedAt: now, Scores: []FinalStanding{}})}
		}
		out := s.end(a.PlayerID, now)
		e.session = nil
		return out

	case ActionLeave:
		if s == nil {
			return nil
		}
		out, empty := s.leave(a.PlayerID)
		if empty {
			obslog.L().Info("session_reset", zap.String("session_id", s.id), zap.String("reason", "roster_empty"))
			e.session = nil
		}
		return out

	default:
		obslog.L().Warn("engine_unknown_action", zap.String("action", string(a.Kind)), zap.String("player_id", a.PlayerID))
		return nil
	}
}

// PlayerSnapshot is a read-only view of one registered player.
type PlayerSnapshot struct {
	Player     PlayerRef `json:"player"`
	Wins       int       `json:"wins"`
	TotalScore float64   `json:"score"`
	Submitted  bool      `json:"submitted"`
	Authority  bool      `json:"authority"`
}

// Snapshot is a deep copy of the session taken under the engine lock.
type Snapshot struct {
	SessionID string           `json:"sessionId,omitempty"`
	State     State            `json:"state"`
	Mode      Mode             `json:"mode"`
	Round     int              `json:"round"`
	Settings  *Settings        `json:"settings,omitempty"`
	Players   []PlayerSnapshot `json:"players"`
	Standings []Standing       `json:"standings"`
	Last      *RoundOutcome    `json:"lastRound,omitempty"`
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil {
		return Snapshot{State: StateEmpty, Mode: e.opts.Mode, Players: []PlayerSnapshot{}, Standings: []Standing{}}
	}
	snap := Snapshot{
		SessionID: s.id,
		State:     s.state,
		Mode:      s.mode,
		Round:     s.round,
		Settings:  s.settings.clone(),
		Players:   make([]PlayerSnapshot, 0, len(s.order)),
		Standings: RoundStandings(s.roster()),
		Last:      s.last,
	}
	for _, p := range s.roster() {
		snap.Players = append(snap.Players, PlayerSnapshot{
			Player:     p.ref(),
			Wins:       p.Wins,
			TotalScore: p.TotalScore,
			Submitted:  p.Move != nil,
			Authority:  p.ID == s.authority,
		})
	}
	return snap
}

// State reports the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return StateEmpty
	}
	return e.session.state
}
