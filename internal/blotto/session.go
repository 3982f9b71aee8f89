package blotto

import (
	"strings"
	"time"

	"github.com/park285/castle-blotto/internal/obslog"
	"go.uber.org/zap"
)

const defaultPlayerName = "Player"

// ActionKind names an inbound action. Values are the wire names.
type ActionKind string

const (
	ActionJoin            ActionKind = "join"
	ActionProposeSettings ActionKind = "propose-settings"
	ActionUpdateSettings  ActionKind = "update-settings"
	ActionSubmitMove      ActionKind = "submit-move"
	ActionAdvanceRound    ActionKind = "advance-round"
	ActionEndSession      ActionKind = "end-session"
	ActionLeave           ActionKind = "leave"
)

// Action is one inbound request from a connection.
type Action struct {
	Kind     ActionKind
	PlayerID string
	Name     string
	Settings *Settings
	Move     []int
}

// Session is the aggregate root. It is not safe for concurrent use; Engine serialises access.
type Session struct {
	id            string
	mode          Mode
	policy        AuthorityPolicy
	maxObjectives int

	state     State
	players   map[string]*Player
	order     []string
	settings  *Settings
	authority string
	round     int
	joinSeq   int
	resolved  int
	startedAt time.Time
	last      *RoundOutcome

	// joined while the round was resolved; they get the settings on advance
	pendingStart []string
}

func newSession(id string, opts Options, now time.Time) *Session {
	return &Session{
		id:            id,
		mode:          opts.Mode,
		policy:        opts.AuthorityPolicy,
		maxObjectives: opts.MaxObjectives,
		state:         StateAwaitingPlayers,
		players:       make(map[string]*Player),
		round:         1,
		startedAt:     now,
	}
}

func (s *Session) roster() []*Player {
	out := make([]*Player, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.players[id])
	}
	return out
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (s *Session) recipients() []string { return append([]string(nil), s.order...) }

func (s *Session) clearMoves() {
	for _, p := range s.players {
		p.Move = nil
	}
}

func (s *Session) allSubmitted() bool {
	if len(s.order) == 0 {
		return false
	}
	for _, p := range s.players {
		if p.Move == nil {
			return false
		}
	}
	return true
}

func (s *Session) join(id, name string, now time.Time) []Notification {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultPlayerName
	}
	if _, ok := s.players[id]; !ok {
		s.joinSeq++
		s.players[id] = &Player{ID: id, Name: name, JoinSeq: s.joinSeq, JoinedAt: now}
		s.order = append(s.order, id)
		if s.authority == "" {
			s.authority = id
		}
		obslog.L().Info("session_join",
			zap.String("session_id", s.id),
			zap.String("player_id", id),
			zap.String("name", name),
			zap.Int("players", len(s.order)),
			zap.Bool("authority", s.authority == id),
		)
	}
	if s.state == StateAwaitingPlayers {
		s.state = StateAwaitingSettings
	}

	out := []Notification{notifyOne(KindWaitingForPlayer, id, nil)}
	if id == s.authority {
		out = append(out, notifyOne(KindYouAreAuthority, id, nil))
	} else {
		out = append(out, notifyOne(KindWaitingForSettings, id, nil))
	}
	switch {
	case s.settings == nil:
	case s.state == StateRoundResolved:
		if !containsID(s.pendingStart, id) {
			s.pendingStart = append(s.pendingStart, id)
		}
	default:
		out = append(out, notifyOne(KindRoundStarted, id, RoundStarted{Settings: *s.settings.clone(), Round: s.round}))
	}
	return out
}

func (s *Session) changeSettings(kind ActionKind, id string, settings *Settings) []Notification {
	rejected := KindSettingsRejected
	if _, ok := s.players[id]; !ok {
		return []Notification{reject(rejected, kind, id, ErrNotRegistered)}
	}
	if id != s.authority {
		obslog.L().Warn("settings_unauthorized", zap.String("session_id", s.id), zap.String("player_id", id))
		return []Notification{reject(rejected, kind, id, ErrUnauthorized)}
	}
	if s.mode == ModeSingleShot && s.settings != nil {
		return []Notification{reject(rejected, kind, id, ErrSettingsLocked)}
	}
	if err := ValidateSettings(settings, s.maxObjectives); err != nil {
		return []Notification{reject(rejected, kind, id, err)}
	}

	first := s.settings == nil
	s.settings = settings.clone()
	s.clearMoves()
	s.state = StateRoundInProgress
	s.pendingStart = nil
	obslog.L().Info("settings_apply",
		zap.String("session_id", s.id),
		zap.String("action", string(kind)),
		zap.Int("objectives", s.settings.Objectives),
		zap.Int("pool", s.settings.Pool),
		zap.Int("round", s.round),
	)

	payload := RoundStarted{Settings: *s.settings.clone(), Round: s.round}
	if kind == ActionUpdateSettings && !first {
		return []Notification{notifyAll(KindSettingsUpdated, s.order, payload)}
	}
	return []Notification{notifyAll(KindRoundStarted, s.order, payload)}
}

func (s *Session) submit(id string, move []int) []Notification {
	p, ok := s.players[id]
	if !ok {
		return []Notification{reject(KindInvalidMove, ActionSubmitMove, id, ErrNotRegistered)}
	}
	if s.settings == nil {
		return []Notification{reject(KindInvalidMove, ActionSubmitMove, id, ErrMissingSettings)}
	}
	if s.state == StateRoundResolved {
		return []Notification{reject(KindInvalidMove, ActionSubmitMove, id, ErrRoundResolved)}
	}
	if err := ValidateMove(s.settings, move); err != nil {
		return []Notification{reject(KindInvalidMove, ActionSubmitMove, id, err)}
	}
	p.Move = append([]int(nil), move...)
	if !s.allSubmitted() {
		return nil
	}
	return s.resolve()
}

func (s *Session) resolve() []Notification {
	outcome := ResolveRound(s.settings, s.roster())
	outcome.SessionID = s.id
	outcome.Round = s.round
	outcome.MaxScore = s.settings.TotalWeight()
	s.clearMoves()
	s.state = StateRoundResolved
	s.resolved++
	s.last = outcome
	obslog.L().Info("round_resolve",
		zap.String("session_id", s.id),
		zap.Int("round", s.round),
		zap.Int("players", len(s.order)),
		zap.Int("pairs", len(outcome.Results)),
	)

	out := []Notification{notifyAll(KindRoundResult, s.order, outcome)}
	if s.mode == ModeSingleShot {
		out = append(out, s.advance()...)
	}
	return out
}

func (s *Session) advance() []Notification {
	s.clearMoves()
	s.round++
	s.state = StateRoundInProgress
	obslog.L().Info("round_advance", zap.String("session_id", s.id), zap.Int("round", s.round))
	out := []Notification{notifyAll(KindRoundAdvanced, s.order, RoundAdvanced{Round: s.round})}
	for _, id := range s.pendingStart {
		if _, ok := s.players[id]; ok {
			out = append(out, notifyOne(KindRoundStarted, id, RoundStarted{Settings: *s.settings.clone(), Round: s.round}))
		}
	}
	s.pendingStart = nil
	return out
}

func (s *Session) requestAdvance(id string) []Notification {
	if _, ok := s.players[id]; !ok {
		return []Notification{reject(KindActionRejected, ActionAdvanceRound, id, ErrNotRegistered)}
	}
	if s.state != StateRoundResolved {
		return []Notification{reject(KindActionRejected, ActionAdvanceRound, id, ErrRoundNotResolved)}
	}
	return s.advance()
}

func (s *Session) summary(now time.Time) SessionSummary {
	return SessionSummary{
		SessionID:      s.id,
		Mode:           s.mode,
		StartedAt:      s.startedAt,
		EndedAt:        now,
		Round:          s.round,
		RoundsResolved: s.resolved,
		Settings:       s.settings.clone(),
		Scores:         FinalStandings(s.roster()),
	}
}

// end reports final standings to the roster and the caller. The engine drops the session afterwards.
func (s *Session) end(id string, now time.Time) []Notification {
	s.state = StateEnded
	to := s.recipients()
	if _, ok := s.players[id]; !ok && id != "" {
		to = append(to, id)
	}
	sum := s.summary(now)
	obslog.L().Info("session_end",
		zap.String("session_id", s.id),
		zap.Int("round", s.round),
		zap.Int("rounds_resolved", s.resolved),
		zap.Int("players", len(s.order)),
	)
	return []Notification{{Kind: KindSessionEnded, To: to, Payload: sum}}
}

// leave reports whether the roster is now empty.
func (s *Session) leave(id string) ([]Notification, bool) {
	p, ok := s.players[id]
	if !ok {
		return nil, len(s.order) == 0
	}
	delete(s.players, id)
	for i, pid := range s.order {
		if pid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	obslog.L().Info("session_leave",
		zap.String("session_id", s.id),
		zap.String("player_id", id),
		zap.Int("players", len(s.order)),
	)
	if len(s.order) == 0 {
		return nil, true
	}

	out := []Notification{notifyAll(KindPlayerLeft, s.order, PlayerLeft{Player: p.ref()})}
	if id == s.authority && s.policy == AuthorityTransfer {
		s.authority = s.order[0]
		obslog.L().Info("authority_transfer", zap.String("session_id", s.id), zap.String("player_id", s.authority))
		out = append(out, notifyOne(KindYouAreAuthority, s.authority, nil))
	}
	return out, false
}
