// Package tournament connects the session engine to the websocket gateway and
// the side sinks (event bus, archive, results webhook).
package tournament

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/park285/castle-blotto/internal/adapter/blottopresenter"
	"github.com/park285/castle-blotto/internal/archive"
	"github.com/park285/castle-blotto/internal/blotto"
	"github.com/park285/castle-blotto/internal/metrics"
	"github.com/park285/castle-blotto/internal/render"
	"github.com/park285/castle-blotto/internal/webhook"
	"github.com/park285/castle-blotto/pkg/blottodto"
	"go.uber.org/zap"
)

var (
	ErrHistoryUnavailable = errors.New("round history requires an event bus")
	ErrServiceClosed      = errors.New("tournament service closed")
)

const (
	defaultSinkTimeout = 5 * time.Second
	defaultSinkQueue   = 256
)

// Deliverer queues an encoded frame for each recipient connection.
type Deliverer interface {
	Deliver(to []string, frame []byte) (delivered, dropped int)
}

// Events is the optional live event stream and round history.
type Events interface {
	Publish(ctx context.Context, sessionID, kind string, to []string, data any) error
	SaveSnapshot(ctx context.Context, snap any) error
	RecordRound(ctx context.Context, sessionID string, round int, result any) (bool, error)
	Rounds(ctx context.Context, sessionID string) ([]json.RawMessage, error)
}

// Reporter posts an ended session somewhere outside the process.
type Reporter interface {
	Report(ctx context.Context, p webhook.Payload) error
}

type Config struct {
	SinkTimeout time.Duration
	SinkQueue   int
	// AttachImage adds the last cross table as a PNG to webhook reports.
	AttachImage bool
}

type Deps struct {
	Engine    *blotto.Engine
	Formatter *blottopresenter.Formatter
	Archive   archive.Repository
	Metrics   *metrics.Metrics
	Events    Events
	Reporter  Reporter
	Logger    *zap.Logger
}

// lastRound keeps the most recent result so reports can still draw it after the session is gone.
type lastRound struct {
	sessionID string
	outcome   *blotto.RoundOutcome
	maxScore  float64
}

type Service struct {
	engine   *blotto.Engine
	present  *blottopresenter.Formatter
	archive  archive.Repository
	metrics  *metrics.Metrics
	events   Events
	reporter Reporter
	logger   *zap.Logger
	cfg      Config

	outMu sync.RWMutex
	out   Deliverer

	// applyMu keeps delivery and sink order equal to engine order.
	applyMu sync.Mutex

	lastMu sync.Mutex
	last   lastRound

	sinkMu sync.Mutex
	sinks  chan func(context.Context)
	closed bool
	sinkWG sync.WaitGroup
}

func NewService(deps Deps, cfg Config) (*Service, error) {
	if deps.Engine == nil {
		return nil, fmt.Errorf("session engine is required")
	}
	if deps.Archive == nil {
		return nil, fmt.Errorf("archive repository is required")
	}
	if deps.Formatter == nil {
		deps.Formatter = blottopresenter.NewFormatter(nil)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	if cfg.SinkQueue <= 0 {
		cfg.SinkQueue = defaultSinkQueue
	}
	s := &Service{
		engine:   deps.Engine,
		present:  deps.Formatter,
		archive:  deps.Archive,
		metrics:  deps.Metrics,
		events:   deps.Events,
		reporter: deps.Reporter,
		logger:   deps.Logger,
		cfg:      cfg,
		sinks:    make(chan func(context.Context), cfg.SinkQueue),
	}
	s.sinkWG.Add(1)
	go s.runSinks()
	return s, nil
}

// SetDeliverer wires the outbound side. Call before the gateway starts serving.
func (s *Service) SetDeliverer(d Deliverer) {
	s.outMu.Lock()
	s.out = d
	s.outMu.Unlock()
}

// HandleFrame decodes one inbound frame and applies it. Decode failures are
// answered privately and never reach the engine.
func (s *Service) HandleFrame(ctx context.Context, connID string, frame []byte) {
	env, err := blottodto.DecodeEnvelope(frame)
	if err != nil {
		s.countAction("frame", "malformed")
		s.rejectDecode(connID, blotto.KindActionRejected, "", err)
		return
	}
	action, rejectKind, err := toAction(connID, env)
	if err != nil {
		s.countAction(actionLabel(env.Type), "malformed")
		s.rejectDecode(connID, rejectKind, env.Type, err)
		return
	}
	s.apply(ctx, action)
}

// Disconnected treats a dropped connection as a leave.
func (s *Service) Disconnected(ctx context.Context, connID string) {
	s.apply(ctx, blotto.Action{Kind: blotto.ActionLeave, PlayerID: connID})
}

// actionLabel keeps metric labels bounded to the known frame types.
func actionLabel(t string) string {
	switch t {
	case blottodto.TypeJoin, blottodto.TypeProposeSettings, blottodto.TypeUpdateSettings,
		blottodto.TypeSubmitMove, blottodto.TypeAdvanceRound, blottodto.TypeEndSession, blottodto.TypeLeave:
		return t
	}
	return "unknown"
}

func toAction(connID string, env blottodto.Envelope) (blotto.Action, blotto.Kind, error) {
	a := blotto.Action{PlayerID: connID}
	switch env.Type {
	case blottodto.TypeJoin:
		req, err := blottodto.ParseJoin(env.Data)
		if err != nil {
			return a, blotto.KindActionRejected, err
		}
		a.Kind, a.Name = blotto.ActionJoin, req.Name
	case blottodto.TypeProposeSettings, blottodto.TypeUpdateSettings:
		settings, err := blottodto.ParseSettings(env.Data)
		if err != nil {
			return a, blotto.KindSettingsRejected, err
		}
		a.Kind, a.Settings = blotto.ActionKind(env.Type), blottopresenter.FromDTOSettings(settings)
	case blottodto.TypeSubmitMove:
		move, err := blottodto.ParseAllocation(env.Data)
		if err != nil {
			return a, blotto.KindInvalidMove, err
		}
		a.Kind, a.Move = blotto.ActionSubmitMove, move
	case blottodto.TypeAdvanceRound:
		a.Kind = blotto.ActionAdvanceRound
	case blottodto.TypeEndSession:
		a.Kind = blotto.ActionEndSession
	case blottodto.TypeLeave:
		a.Kind = blotto.ActionLeave
	default:
		return a, blotto.KindActionRejected, blottodto.DecodeError{Code: blottodto.CodeUnknownAction, Message: env.Type}
	}
	return a, "", nil
}

func (s *Service) rejectDecode(connID string, kind blotto.Kind, action string, err error) {
	code, detail := blottodto.CodeMalformedFrame, err.Error()
	var de blottodto.DecodeError
	if errors.As(err, &de) {
		code, detail = de.Code, de.Message
	}
	s.logger.Debug("frame_reject",
		zap.String("conn_id", connID),
		zap.String("action", action),
		zap.String("code", code),
	)
	s.send(string(kind), []string{connID}, s.present.Rejection(action, code, detail))
}

func (s *Service) apply(_ context.Context, a blotto.Action) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	start := time.Now()
	notes := s.engine.Apply(a)
	if s.metrics != nil {
		s.metrics.ResolveTime.Observe(time.Since(start).Seconds())
	}
	outcome := "ok"
	for _, n := range notes {
		if _, ok := n.Payload.(blotto.Rejection); ok {
			outcome = "rejected"
			break
		}
	}
	s.countAction(string(a.Kind), outcome)

	snap := s.engine.Snapshot()
	if s.metrics != nil {
		s.metrics.Players.Set(float64(len(snap.Players)))
	}
	for _, n := range notes {
		kind, data := s.present.Frame(n)
		s.send(kind, n.To, data)
		s.afterNotify(snap, n, kind, data)
	}
	if len(notes) > 0 && s.events != nil {
		s.enqueueSink("snapshot", func(ctx context.Context) error { return s.events.SaveSnapshot(ctx, snap) })
	}
}

func (s *Service) send(kind string, to []string, data any) {
	if len(to) == 0 {
		return
	}
	frame, err := blottodto.Encode(kind, data)
	if err != nil {
		s.logger.Error("frame_encode_failed", zap.String("kind", kind), zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.Notifications.WithLabelValues(kind).Inc()
	}
	s.outMu.RLock()
	out := s.out
	s.outMu.RUnlock()
	if out == nil {
		return
	}
	if _, dropped := out.Deliver(to, frame); dropped > 0 {
		s.logger.Debug("frame_dropped", zap.String("kind", kind), zap.Int("dropped", dropped))
	}
}

func (s *Service) afterNotify(snap blotto.Snapshot, n blotto.Notification, kind string, data any) {
	sessionID := snap.SessionID
	switch p := n.Payload.(type) {
	case *blotto.RoundOutcome:
		if s.metrics != nil {
			s.metrics.Rounds.Inc()
		}
		sessionID = p.SessionID
		s.lastMu.Lock()
		s.last = lastRound{sessionID: sessionID, outcome: p, maxScore: p.MaxScore}
		s.lastMu.Unlock()
		if s.events != nil {
			round := p.Round
			s.enqueueSink("eventbus", func(ctx context.Context) error {
				_, err := s.events.RecordRound(ctx, sessionID, round, data)
				return err
			})
		}
	case blotto.SessionSummary:
		sessionID = p.SessionID
		if rec := archive.FromSummary(p); rec != nil {
			if s.metrics != nil {
				s.metrics.Sessions.Inc()
			}
			s.enqueueSink("archive", func(ctx context.Context) error { return s.archive.Save(ctx, rec) })
			s.report(p, data)
		}
	}
	if s.events != nil {
		to := n.To
		s.enqueueSink("eventbus", func(ctx context.Context) error {
			return s.events.Publish(ctx, sessionID, kind, to, data)
		})
	}
}

func (s *Service) report(sum blotto.SessionSummary, data any) {
	if s.reporter == nil {
		return
	}
	ended, ok := data.(blottodto.SessionEnded)
	if !ok {
		return
	}
	s.lastMu.Lock()
	last := s.last
	s.lastMu.Unlock()

	title := fmt.Sprintf("Round %d", sum.Round)
	s.enqueueSink("webhook", func(ctx context.Context) error {
		p := webhook.Payload{Event: blottodto.TypeSessionEnded, Session: ended, Text: ended.Summary}
		if s.cfg.AttachImage && last.outcome != nil && last.sessionID == sum.SessionID {
			png, err := render.CrossTablePNG(ctx, last.outcome.CrossTable, render.Options{Title: title, MaxScore: last.maxScore})
			if err != nil {
				s.logger.Warn("crosstable_render_failed", zap.String("session_id", sum.SessionID), zap.Error(err))
			} else {
				p.Image = base64.StdEncoding.EncodeToString(png)
			}
		}
		return s.reporter.Report(ctx, p)
	})
}

func (s *Service) countAction(action, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.Actions.WithLabelValues(action, outcome).Inc()
}

// enqueueSink schedules a side write. Sinks run in order on one worker; a full
// queue drops the write.
func (s *Service) enqueueSink(name string, fn func(context.Context) error) {
	job := func(ctx context.Context) {
		if err := fn(ctx); err != nil {
			s.logger.Warn("sink_write_failed", zap.String("sink", name), zap.Error(err))
			if s.metrics != nil {
				s.metrics.SinkErrors.WithLabelValues(name).Inc()
			}
		}
	}
	s.sinkMu.Lock()
	defer s.sinkMu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.sinks <- job:
	default:
		s.logger.Warn("sink_queue_full", zap.String("sink", name))
		if s.metrics != nil {
			s.metrics.SinkErrors.WithLabelValues("queue").Inc()
		}
	}
}

func (s *Service) runSinks() {
	defer s.sinkWG.Done()
	for job := range s.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SinkTimeout)
		job(ctx)
		cancel()
	}
}

// Flush blocks until every queued sink write has run.
func (s *Service) Flush(ctx context.Context) error {
	done := make(chan struct{})
	s.sinkMu.Lock()
	if s.closed {
		s.sinkMu.Unlock()
		return ErrServiceClosed
	}
	select {
	case s.sinks <- func(context.Context) { close(done) }:
	case <-ctx.Done():
		s.sinkMu.Unlock()
		return ctx.Err()
	}
	s.sinkMu.Unlock()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting sink writes and waits for the queued ones.
func (s *Service) Close(ctx context.Context) error {
	s.sinkMu.Lock()
	if !s.closed {
		s.closed = true
		close(s.sinks)
	}
	s.sinkMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.sinkWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
