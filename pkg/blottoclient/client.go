// Package blottoclient is a websocket client for the blotto session protocol.
package blottoclient

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/park285/castle-blotto/pkg/blottodto"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

var ErrNotConnected = errors.New("blottoclient: not connected")

type FrameCallback func(env blottodto.Envelope)

type StateCallback func(state State)

// HeaderProvider allows injecting handshake headers.
type HeaderProvider func() map[string]string

type Client struct {
	url string

	connM sync.RWMutex
	conn  *websocket.Conn
	name  string
	state State

	cbM      sync.RWMutex
	frameCbs []FrameCallback
	stateCbs []StateCallback

	maxReconnectAttempts int
	pingInterval         time.Duration
	headers              HeaderProvider

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

type Option func(*Client)

// WithReconnect redials up to n times after the connection drops and rejoins with the last name.
// Every reconnect is a fresh player to the server.
func WithReconnect(n int) Option {
	return func(c *Client) { c.maxReconnectAttempts = n }
}

func WithPingInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pingInterval = d
		}
	}
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func New(url string, opts ...Option) *Client {
	c := &Client{
		url:          strings.TrimSpace(url),
		state:        StateDisconnected,
		pingInterval: 30 * time.Second,
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.rootCtx, c.rootCancel = context.WithCancel(context.Background())
	return c
}

func (c *Client) Connect(ctx context.Context) error {
	c.connM.RLock()
	st := c.state
	c.connM.RUnlock()
	if st == StateConnected || st == StateConnecting {
		return nil
	}
	c.setState(StateConnecting)

	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(StateFailed)
		return err
	}
	c.attach(conn)
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      c.buildHeaders(),
	})
	return conn, err
}

func (c *Client) attach(conn *websocket.Conn) {
	c.connM.Lock()
	c.conn = conn
	c.connM.Unlock()
	c.setState(StateConnected)

	c.wg.Add(2)
	go c.listen(conn)
	go c.pingLoop(conn)
}

func (c *Client) listen(conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		var env blottodto.Envelope
		if err := wsjson.Read(c.rootCtx, conn, &env); err != nil {
			if c.isStopping() {
				return
			}
			c.drop(conn, "read failure")
			return
		}
		c.cbM.RLock()
		callbacks := append([]FrameCallback(nil), c.frameCbs...)
		c.cbM.RUnlock()
		for _, cb := range callbacks {
			cb(env)
		}
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	defer c.wg.Done()
	t := time.NewTicker(c.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-c.stopCh:
			return
		case <-c.rootCtx.Done():
			return
		case <-t.C:
			if c.current() != conn {
				return
			}
			ctx, cancel := context.WithTimeout(c.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				c.drop(conn, "ping failure")
				return
			}
		}
	}
}

// drop closes conn once and schedules a reconnect when configured.
func (c *Client) drop(conn *websocket.Conn, reason string) {
	c.connM.Lock()
	if c.conn != conn {
		c.connM.Unlock()
		return
	}
	c.conn = nil
	c.connM.Unlock()
	_ = conn.Close(websocket.StatusGoingAway, reason)
	c.setState(StateDisconnected)
	c.scheduleReconnect()
}

func (c *Client) scheduleReconnect() {
	if c.maxReconnectAttempts <= 0 || c.isStopping() {
		return
	}
	c.setState(StateReconnecting)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for attempt := 1; attempt <= c.maxReconnectAttempts; attempt++ {
			select {
			case <-c.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}
			conn, err := c.dial(c.rootCtx)
			if err != nil {
				continue
			}
			c.attach(conn)
			c.connM.RLock()
			name := c.name
			c.connM.RUnlock()
			if name != "" {
				_ = c.Join(c.rootCtx, name)
			}
			return
		}
		c.setState(StateFailed)
	}()
}

func (c *Client) current() *websocket.Conn {
	c.connM.RLock()
	defer c.connM.RUnlock()
	return c.conn
}

// Send writes one frame. data may be nil.
func (c *Client) Send(ctx context.Context, kind string, data any) error {
	conn := c.current()
	if conn == nil {
		return ErrNotConnected
	}
	frame := map[string]any{"type": kind}
	if data != nil {
		frame["data"] = data
	}
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(wctx, conn, frame)
}

func (c *Client) Join(ctx context.Context, name string) error {
	c.connM.Lock()
	c.name = name
	c.connM.Unlock()
	return c.Send(ctx, blottodto.TypeJoin, blottodto.JoinRequest{Name: name})
}

func (c *Client) ProposeSettings(ctx context.Context, s blottodto.Settings) error {
	return c.Send(ctx, blottodto.TypeProposeSettings, s)
}

func (c *Client) UpdateSettings(ctx context.Context, s blottodto.Settings) error {
	return c.Send(ctx, blottodto.TypeUpdateSettings, s)
}

func (c *Client) SubmitMove(ctx context.Context, allocation []int) error {
	return c.Send(ctx, blottodto.TypeSubmitMove, map[string][]int{"allocation": allocation})
}

func (c *Client) AdvanceRound(ctx context.Context) error {
	return c.Send(ctx, blottodto.TypeAdvanceRound, nil)
}

func (c *Client) EndSession(ctx context.Context) error {
	return c.Send(ctx, blottodto.TypeEndSession, nil)
}

func (c *Client) Leave(ctx context.Context) error {
	return c.Send(ctx, blottodto.TypeLeave, nil)
}

func (c *Client) OnFrame(cb FrameCallback) {
	if cb == nil {
		return
	}
	c.cbM.Lock()
	c.frameCbs = append(c.frameCbs, cb)
	c.cbM.Unlock()
}

func (c *Client) OnStateChange(cb StateCallback) {
	if cb == nil {
		return
	}
	c.cbM.Lock()
	c.stateCbs = append(c.stateCbs, cb)
	c.cbM.Unlock()
}

func (c *Client) State() State {
	c.connM.RLock()
	defer c.connM.RUnlock()
	return c.state
}

func (c *Client) setState(state State) {
	c.connM.Lock()
	c.state = state
	c.connM.Unlock()

	c.cbM.RLock()
	callbacks := append([]StateCallback(nil), c.stateCbs...)
	c.cbM.RUnlock()
	for _, cb := range callbacks {
		cb(state)
	}
}

func (c *Client) Close(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.connM.Lock()
	conn := c.conn
	c.conn = nil
	c.connM.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}
	c.rootCancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		c.setState(StateDisconnected)
		return nil
	}
}

func (c *Client) isStopping() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

func (c *Client) buildHeaders() http.Header {
	hdr := http.Header{}
	if c.headers == nil {
		return hdr
	}
	for k, v := range c.headers() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	d := 200 * time.Millisecond << uint(attempt-1)
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
