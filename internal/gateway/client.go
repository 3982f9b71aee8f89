package gateway

import (
	"sync"

	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
)

type client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter

	done     chan struct{}
	stopOnce sync.Once
}

func newClient(id string, conn *websocket.Conn, opts Options) *client {
	return &client{
		id:      id,
		conn:    conn,
		send:    make(chan []byte, opts.SendQueue),
		limiter: rate.NewLimiter(opts.InboundRate, opts.InboundBurst),
		done:    make(chan struct{}),
	}
}

// stop is idempotent. The send channel is never closed; writers select on done.
func (c *client) stop() {
	c.stopOnce.Do(func() { close(c.done) })
}
