package model

import (
	"time"
)

// HandleResult
const (
	RequestPending  int32 = 0
	RequestAccepted int32 = 1
	RequestDeclined int32 = 2
)

// FriendRequest is one FromUserID -> ToUserID application; a pending pair is
// unique in either direction.
type FriendRequest struct {
	RequestID  string `bson:"request_id" json:"request_id"`
	FromUserID string `bson:"from_user_id" json:"from_user_id"`
	ToUserID   string `bson:"to_user_id" json:"to_user_id"`

	HandleResult int32 `bson:"handle_result" json:"handle_result"`

	CreateTime time.Time `bson:"create_time" json:"create_time"`
	HandleTime time.Time `bson:"handle_time,omitempty" json:"handle_time,omitempty"`
}
