package model

import (
	"time"
)

const MessagePageSize = 20

// Attachment is a stored media object referenced by its stable URL.
type Attachment struct {
	URL  string `bson:"url" json:"url"`
	Name string `bson:"name,omitempty" json:"name,omitempty"`
	Size int64  `bson:"size,omitempty" json:"size,omitempty"`
}

// Message is the durable copy; the realtime copy pushed over live
// connections is a snapshot built at send time.
type Message struct {
	MessageID string `bson:"message_id" json:"message_id"`
	ChatID    string `bson:"chat_id" json:"chat_id"`
	SenderID  string `bson:"sender_id" json:"sender_id"`
	Content   string `bson:"content" json:"content"`

	Attachments []Attachment `bson:"attachments,omitempty" json:"attachments,omitempty"`

	CreateTime time.Time `bson:"create_time" json:"create_time"`
}
