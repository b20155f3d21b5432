package model

import (
	"time"
)

// Membership policy. A group keeps at least MinGroupMembers members at all
// times; MaxChatMembers caps growth.
const (
	MinGroupMembers = 3
	MaxChatMembers  = 100
)

// Chat is a conversation: a group (>=3 members, named, with a creator who
// administers it) or a direct pair.
type Chat struct {
	ChatID    string   `bson:"chat_id" json:"chat_id"`
	Name      string   `bson:"name" json:"name"`
	GroupChat bool     `bson:"group_chat" json:"group_chat"`
	CreatorID string   `bson:"creator_id" json:"creator_id"`
	Members   []string `bson:"members" json:"members"`

	CreateTime time.Time `bson:"create_time" json:"create_time"`
	UpdateTime time.Time `bson:"update_time" json:"update_time"`
}

func (c *Chat) HasMember(userID string) bool {
	for _, id := range c.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// OtherMember returns the peer of a direct chat.
func (c *Chat) OtherMember(userID string) string {
	for _, id := range c.Members {
		if id != userID {
			return id
		}
	}
	return ""
}
