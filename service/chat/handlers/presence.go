package handlers

import (
	"context"
	"time"

	"PulseChat/service/chat"
)

// PresenceHandler marks the sender online/offline for a conversation view
// and broadcasts the fresh snapshot when the set actually changed.
type PresenceHandler struct {
	kind chat.Kind
}

func NewMembershipJoinedHandler() chat.Handler {
	return &PresenceHandler{kind: chat.KindMembershipJoined}
}

func NewMembershipLeftHandler() chat.Handler {
	return &PresenceHandler{kind: chat.KindMembershipLeft}
}

func (h *PresenceHandler) Kind() chat.Kind { return h.kind }

func (h *PresenceHandler) Handle(ctx *chat.Context, ev *chat.Event, c *chat.Client) error {
	var changed bool
	if h.kind == chat.KindMembershipJoined {
		changed = ctx.S.Presence().MarkOnline(ev.ConversationID, c.UserID)
	} else {
		changed = ctx.S.Presence().MarkOffline(ev.ConversationID, c.UserID)
	}
	if !changed {
		return nil
	}

	bg, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	ctx.S.BroadcastPresence(bg, ev.ConversationID)
	return nil
}
