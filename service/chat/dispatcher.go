package chat

import (
	"fmt"
)

// Handler processes one inbound event kind. Handlers run on the
// connection's read loop; anything slow must move off it.
type Handler interface {
	Kind() Kind
	Handle(ctx *Context, ev *Event, c *Client) error
}

// Context hands the server's collaborators to handlers.
type Context struct {
	S *Server
}

// Dispatcher is the single inbound entry point: one handler per kind,
// registered at startup.
type Dispatcher struct {
	handlers map[Kind]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[Kind]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Kind()] = h }

func (d *Dispatcher) Dispatch(ctx *Context, ev *Event, c *Client) error {
	h, ok := d.handlers[ev.Kind]
	if !ok {
		return fmt.Errorf("no handler for kind=%s", ev.Kind)
	}
	return h.Handle(ctx, ev, c)
}
