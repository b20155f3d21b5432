package handlers

import (
	"context"
	"time"

	"PulseChat/service/chat"
)

// TypingHandler relays typing start/stop to the other conversation members;
// the sender never receives its own indicator.
type TypingHandler struct {
	kind chat.Kind
}

func NewTypingStartHandler() chat.Handler { return &TypingHandler{kind: chat.KindTypingStart} }
func NewTypingStopHandler() chat.Handler  { return &TypingHandler{kind: chat.KindTypingStop} }

func (h *TypingHandler) Kind() chat.Kind { return h.kind }

func (h *TypingHandler) Handle(ctx *chat.Context, ev *chat.Event, c *chat.Client) error {
	bg, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	members, err := ctx.S.Members().Members(bg, ev.ConversationID)
	if err != nil {
		return err
	}
	out := chat.BuildTyping(h.kind, ev.ConversationID, c.UserID)
	ctx.S.Fanout().Dispatch(out, chat.Exclude(members, c.UserID))
	return nil
}
