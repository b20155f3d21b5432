package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind tags every frame exchanged over a live connection, both directions.
type Kind string

const (
	// inbound only, first frame of the handshake
	KindAuth Kind = "auth"

	KindMessage          Kind = "message"
	KindMessageAlert     Kind = "message-alert"
	KindTypingStart      Kind = "typing-start"
	KindTypingStop       Kind = "typing-stop"
	KindRefetchChats     Kind = "refetch-chats"
	KindMembershipJoined Kind = "membership-joined"
	KindMembershipLeft   Kind = "membership-left"
	KindPresenceUpdate   Kind = "presence-update"
	KindAlert            Kind = "alert"
	KindNewFriendRequest Kind = "new-friend-request"
)

// Event is the JSON wire frame. Body carries the kind-specific payload.
type Event struct {
	Kind           Kind           `json:"kind"`
	ConversationID string         `json:"conversation_id,omitempty"`
	SenderID       string         `json:"sender_id,omitempty"`
	Ts             int64          `json:"ts,omitempty"`
	Body           map[string]any `json:"body,omitempty"`
}

func ParseEvent(raw []byte) (*Event, error) {
	ev := &Event{}
	if err := json.Unmarshal(raw, ev); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	if ev.Kind == "" {
		return nil, fmt.Errorf("event without kind")
	}
	return ev, nil
}

func (e *Event) Encode() ([]byte, error) {
	if e.Ts == 0 {
		e.Ts = time.Now().UnixMilli()
	}
	return json.Marshal(e)
}

// ---- inbound payloads (decoded from Event.Body) ----

type AuthPayload struct {
	Token string `json:"token"`
}

type MessagePayload struct {
	Text string `json:"text"`
	// members as known by the client; ignored, the server resolves
	// recipients from the store
	Members []string `json:"members,omitempty"`
}

// ---- outbound constructors ----

// RealtimeMessage is the message snapshot pushed to connected members; the
// durable copy lives in the store.
type RealtimeMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name,omitempty"`
	Text           string    `json:"text,omitempty"`
	Attachments    []string  `json:"attachments,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func BuildMessageEvent(conversationID string, msg *RealtimeMessage) *Event {
	return &Event{
		Kind:           KindMessage,
		ConversationID: conversationID,
		SenderID:       msg.SenderID,
		Body:           map[string]any{"message": msg},
	}
}

func BuildMessageAlert(conversationID string) *Event {
	return &Event{Kind: KindMessageAlert, ConversationID: conversationID}
}

func BuildTyping(kind Kind, conversationID, senderID string) *Event {
	return &Event{Kind: kind, ConversationID: conversationID, SenderID: senderID}
}

func BuildRefetchChats(conversationID, name string, members []string) *Event {
	return &Event{
		Kind:           KindRefetchChats,
		ConversationID: conversationID,
		Body:           map[string]any{"members": members, "name": name},
	}
}

func BuildPresenceUpdate(conversationID string, online []string) *Event {
	return &Event{
		Kind:           KindPresenceUpdate,
		ConversationID: conversationID,
		Body:           map[string]any{"online_user_ids": online},
	}
}

func BuildAlert(conversationID, text string) *Event {
	return &Event{
		Kind:           KindAlert,
		ConversationID: conversationID,
		Body:           map[string]any{"text": text},
	}
}

func BuildNewFriendRequest(fromUserID string) *Event {
	return &Event{
		Kind: KindNewFriendRequest,
		Body: map[string]any{"from_user_id": fromUserID},
	}
}
