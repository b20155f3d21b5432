package chat

import (
	"sync"
	"sync/atomic"
	"time"

	"PulseChat/logger"
	errs "PulseChat/tools/errs"

	"github.com/gorilla/websocket"
)

// Connection lifecycle. Transitions only move forward:
// Connecting -> Authenticating -> Active -> Closed.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticating
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Client is one live connection handle. Owned by the Registry once bound;
// all writes to the peer go through the send queue and the single writer
// goroutine (gorilla conns do not allow concurrent writes).
type Client struct {
	ConnID   string
	UserID   string // set by Bind after authentication
	AuthedAt time.Time

	ws    *websocket.Conn // nil in tests
	send  chan []byte
	done  chan struct{}
	state atomic.Int32

	closeOnce sync.Once
}

func NewClient(connID string, ws *websocket.Conn, sendQueueSize int) *Client {
	c := &Client{
		ConnID: connID,
		ws:     ws,
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
	c.state.Store(int32(StateConnecting))
	return c
}

func (c *Client) State() State { return State(c.state.Load()) }

func (c *Client) setState(s State) { c.state.Store(int32(s)) }

// Bind marks the connection authenticated and active for userID.
func (c *Client) Bind(userID string) {
	c.UserID = userID
	c.AuthedAt = time.Now()
	c.setState(StateActive)
}

// Done is closed when the connection is torn down; in-flight deliveries
// targeting this handle abandon without error.
func (c *Client) Done() <-chan struct{} { return c.done }

// Enqueue queues one outbound frame, waiting at most wait for room in the
// send queue. Only Active connections accept events.
func (c *Client) Enqueue(payload []byte, wait time.Duration) error {
	if c.State() != StateActive {
		return errs.ErrStaleRecipient.WithDetail("connection not active")
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return errs.ErrStaleRecipient.WithDetail("connection closed")
	case <-timer.C:
		return errs.ErrStaleRecipient.WithDetail("send queue full")
	}
}

// Close tears the connection down exactly once. Safe from any goroutine.
func (c *Client) Close(reason string) {
	c.closeOnce.Do(func() {
		c.setState(StateClosed)
		close(c.done)
		if c.ws != nil {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			_ = c.ws.Close()
		}
		logger.Debug("conn closed: " + c.ConnID + " reason=" + reason)
	})
}

// writePump drains the send queue onto the socket and keeps the peer alive
// with pings. One per connection; exits when the connection closes.
func (c *Client) writePump(pingEvery, writeTimeout time.Duration) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()
	for {
		select {
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Infof("[ws] write failed conn=%s user=%s: %v", c.ConnID, c.UserID, err)
				c.Close("write failed")
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				c.Close("ping failed")
				return
			}
		case <-c.done:
			return
		}
	}
}
