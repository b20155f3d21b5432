package model

import (
	"time"
)

// Roles. Administrators get the browse/stats surface on top of a normal
// account.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the account main record. The password never leaves the store
// layer in any response shape.
type User struct {
	UserID    string `bson:"user_id" json:"user_id"`
	Username  string `bson:"username" json:"username"`
	Name      string `bson:"name,omitempty" json:"name,omitempty"`
	AvatarURL string `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	Bio       string `bson:"bio,omitempty" json:"bio,omitempty"`
	Role      string `bson:"role,omitempty" json:"role,omitempty"`

	PasswordHash string `bson:"password_hash" json:"-"`

	Friends []string `bson:"friends,omitempty" json:"-"`

	CreateTime time.Time `bson:"create_time" json:"create_time"`
	UpdateTime time.Time `bson:"update_time" json:"-"`
}

// IsAdmin reports whether the account carries the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Public is the shape other users may see.
type Public struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

func (u *User) Public() Public {
	return Public{
		UserID:    u.UserID,
		Username:  u.Username,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
	}
}
