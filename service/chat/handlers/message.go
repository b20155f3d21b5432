package handlers

import (
	"context"
	"time"

	"PulseChat/logger"
	"PulseChat/service/chat"
	decode "PulseChat/tools/decode"

	"github.com/google/uuid"
)

// MessageSink persists the durable copy of an inbound message.
type MessageSink interface {
	SaveMessage(ctx context.Context, conversationID, senderID, text string) error
}

// UserDirectory resolves display names for the realtime sender snapshot.
type UserDirectory interface {
	Nickname(ctx context.Context, userID string) (string, error)
}

// MessageHandler fans a chat message out to every conversation member
// (sender included) and persists it. Delivery is best effort; persistence
// failures are logged, never pushed back to the sender.
type MessageHandler struct {
	sink  MessageSink
	users UserDirectory
}

func NewMessageHandler(sink MessageSink, users UserDirectory) chat.Handler {
	return &MessageHandler{sink: sink, users: users}
}

func (h *MessageHandler) Kind() chat.Kind { return chat.KindMessage }

func (h *MessageHandler) Handle(ctx *chat.Context, ev *chat.Event, c *chat.Client) error {
	payload, err := decode.DecodeMap[chat.MessagePayload](ev.Body)
	if err != nil {
		return err
	}
	if payload.Text == "" {
		return nil
	}

	bg, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	members, err := ctx.S.Members().Members(bg, ev.ConversationID)
	if err != nil {
		return err
	}

	name, err := h.users.Nickname(bg, c.UserID)
	if err != nil {
		logger.Infof("[message] nickname lookup failed user=%s: %v", c.UserID, err)
	}

	rt := &chat.RealtimeMessage{
		ID:             uuid.NewString(),
		ConversationID: ev.ConversationID,
		SenderID:       c.UserID,
		SenderName:     name,
		Text:           payload.Text,
		CreatedAt:      time.Now().UTC(),
	}

	// all members, sender included, then the unread badge nudge
	ctx.S.Fanout().Dispatch(chat.BuildMessageEvent(ev.ConversationID, rt), members)
	ctx.S.Fanout().Dispatch(chat.BuildMessageAlert(ev.ConversationID), members)

	if err := h.sink.SaveMessage(bg, ev.ConversationID, c.UserID, payload.Text); err != nil {
		logger.Errorf("[message] persist failed conv=%s sender=%s: %v", ev.ConversationID, c.UserID, err)
	}
	return nil
}
