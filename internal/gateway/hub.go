package gateway

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/castle-blotto/internal/metrics"
	"github.com/park285/castle-blotto/internal/obslog"
	"github.com/park285/castle-blotto/pkg/blottodto"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
)

const (
	defaultSendQueue    = 64
	defaultWriteTimeout = 5 * time.Second
	defaultPingInterval = 30 * time.Second
	readLimit           = 64 << 10
)

// FrameHandler receives raw inbound frames. Calls for one connection are sequential.
type FrameHandler interface {
	HandleFrame(ctx context.Context, connID string, frame []byte)
	Disconnected(ctx context.Context, connID string)
}

type Options struct {
	SendQueue      int
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	InboundRate    rate.Limit
	InboundBurst   int
	OriginPatterns []string
	Metrics        *metrics.Metrics
}

// Hub accepts websocket connections and delivers frames to them by connection id.
// Each client owns a bounded send queue drained by its own writer goroutine, so a
// slow client only ever loses its own frames.
type Hub struct {
	opts    Options
	handler FrameHandler

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
	wg      sync.WaitGroup
}

var ErrHubClosed = errors.New("gateway: hub closed")

func NewHub(handler FrameHandler, opts Options) *Hub {
	if opts.SendQueue <= 0 {
		opts.SendQueue = defaultSendQueue
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.InboundRate <= 0 {
		opts.InboundRate = rate.Inf
	}
	if opts.InboundBurst <= 0 {
		opts.InboundBurst = 1
	}
	return &Hub{opts: opts, handler: handler, clients: make(map[string]*client)}
}

// ServeHTTP upgrades the request and runs the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  h.opts.OriginPatterns,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	conn.SetReadLimit(readLimit)

	c := newClient(uuid.NewString(), conn, h.opts)
	if err := h.register(c); err != nil {
		_ = conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	obslog.L().Info("ws_accept", zap.String("conn_id", c.id), zap.String("remote", r.RemoteAddr))

	ctx, cancel := context.WithCancel(context.Background())
	go func() { defer h.wg.Done(); h.writeLoop(ctx, c) }()
	go func() { defer h.wg.Done(); h.pingLoop(ctx, c) }()

	reason := h.readLoop(ctx, c)
	cancel()
	h.unregister(c)
	_ = conn.Close(websocket.StatusNormalClosure, "")
	obslog.L().Info("ws_close", zap.String("conn_id", c.id), zap.String("reason", reason))
	h.handler.Disconnected(context.Background(), c.id)
}

func (h *Hub) register(c *client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	h.clients[c.id] = c
	h.wg.Add(2)
	if m := h.opts.Metrics; m != nil {
		m.Connections.Inc()
	}
	return nil
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		if m := h.opts.Metrics; m != nil {
			m.Connections.Dec()
		}
	}
	h.mu.Unlock()
	c.stop()
}

func (h *Hub) readLoop(ctx context.Context, c *client) string {
	for {
		typ, frame, err := c.conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				return status.String()
			}
			return err.Error()
		}
		if typ != websocket.MessageText {
			continue
		}
		if !c.limiter.Allow() {
			if m := h.opts.Metrics; m != nil {
				m.RateLimited.Inc()
			}
			h.rejectRateLimited(c)
			continue
		}
		h.handler.HandleFrame(ctx, c.id, frame)
	}
}

func (h *Hub) rejectRateLimited(c *client) {
	frame, err := blottodto.Encode(blottodto.TypeActionRejected, blottodto.Rejection{
		Code:   blottodto.CodeRateLimited,
		Reason: "too many actions",
	})
	if err != nil {
		return
	}
	h.enqueue(c, frame)
}

func (h *Hub) writeLoop(ctx context.Context, c *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case frame := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, h.opts.WriteTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				obslog.L().Warn("ws_write_failed", zap.String("conn_id", c.id), zap.Error(err))
				_ = c.conn.Close(websocket.StatusPolicyViolation, "write failed")
				return
			}
		}
	}
}

func (h *Hub) pingLoop(ctx context.Context, c *client) {
	t := time.NewTicker(h.opts.PingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := c.conn.Ping(pctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				obslog.L().Warn("ws_ping_failed", zap.String("conn_id", c.id), zap.Error(err))
				_ = c.conn.Close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

// Deliver queues frame for every recipient without blocking.
// Unknown recipients and full queues count as dropped.
func (h *Hub) Deliver(to []string, frame []byte) (delivered, dropped int) {
	h.mu.RLock()
	targets := make([]*client, 0, len(to))
	for _, id := range to {
		if c, ok := h.clients[id]; ok {
			targets = append(targets, c)
		} else {
			dropped++
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if h.enqueue(c, frame) {
			delivered++
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		if m := h.opts.Metrics; m != nil {
			m.Dropped.Add(float64(dropped))
		}
	}
	return delivered, dropped
}

func (h *Hub) enqueue(c *client, frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		obslog.L().Warn("ws_send_queue_full", zap.String("conn_id", c.id))
		return false
	}
}

// Connections reports the number of open clients.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close refuses new connections, closes existing ones and waits for their loops.
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		go func(c *client) { _ = c.conn.Close(websocket.StatusGoingAway, "server shutdown") }(c)
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
