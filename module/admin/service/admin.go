package service

import (
	"context"
	"time"

	chatmodel "PulseChat/module/chat/model"
	chatstore "PulseChat/module/chat/store"
	usermodel "PulseChat/module/user/model"
	userservice "PulseChat/module/user/service"
	userstore "PulseChat/module/user/store"
	errs "PulseChat/tools/errs"
)

// Admin browse pages are smaller than chat history pages.
const PageLimit = 10

// Service is the administration surface: admin login, paginated browsing of
// all users/chats/messages, and dashboard stats. Reads only; administration
// never mutates the chat domain.
type Service struct {
	users *userstore.Repo
	chats *chatstore.Repo
	auth  *userservice.Service
}

func NewService(users *userstore.Repo, chats *chatstore.Repo, auth *userservice.Service) *Service {
	return &Service{users: users, chats: chats, auth: auth}
}

// PageMeta is the envelope every admin listing carries.
type PageMeta struct {
	Page            int64 `json:"page"`
	Limit           int64 `json:"limit"`
	Total           int64 `json:"total"`
	TotalPages      int64 `json:"total_pages"`
	HasNextPage     bool  `json:"has_next_page"`
	HasPreviousPage bool  `json:"has_previous_page"`
}

func NewPageMeta(page, limit, total int64) PageMeta {
	if page < 1 {
		page = 1
	}
	return PageMeta{
		Page:            page,
		Limit:           limit,
		Total:           total,
		TotalPages:      (total + limit - 1) / limit,
		HasNextPage:     page*limit < total,
		HasPreviousPage: page > 1,
	}
}

// Login authenticates an administrator. The role gate runs before the
// password check ever issues a session.
func (s *Service) Login(ctx context.Context, username, password string) (*userservice.Session, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errs.ErrNotFound.Is(err) {
			return nil, errs.ErrAuthenticationFailure.WithDetail("invalid username or password")
		}
		return nil, err
	}
	if !u.IsAdmin() {
		return nil, errs.ErrPermissionDenied.WithDetail("not an administrator")
	}
	return s.auth.Login(ctx, username, password)
}

func (s *Service) Logout(ctx context.Context, userID, tokenHash string) error {
	return s.auth.Logout(ctx, userID, tokenHash)
}

// RequireAdmin gates every browse/stats call on the caller's stored role.
func (s *Service) RequireAdmin(ctx context.Context, userID string) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !u.IsAdmin() {
		return errs.ErrPermissionDenied.WithDetail("not an administrator")
	}
	return nil
}

// UserOverview is one row of the admin user listing.
type UserOverview struct {
	usermodel.Public
	Role    string `json:"role"`
	Groups  int64  `json:"groups"`
	Friends int64  `json:"friends"`
}

type UsersPage struct {
	Users []UserOverview `json:"users"`
	Meta  PageMeta       `json:"meta"`
}

func (s *Service) Users(ctx context.Context, page int64) (*UsersPage, error) {
	users, total, err := s.users.Page(ctx, page, PageLimit)
	if err != nil {
		return nil, err
	}
	out := make([]UserOverview, 0, len(users))
	for i := range users {
		groups, err := s.chats.CountChatsForUser(ctx, users[i].UserID, true)
		if err != nil {
			return nil, err
		}
		friends, err := s.chats.CountChatsForUser(ctx, users[i].UserID, false)
		if err != nil {
			return nil, err
		}
		role := users[i].Role
		if role == "" {
			role = usermodel.RoleUser
		}
		out = append(out, UserOverview{
			Public:  users[i].Public(),
			Role:    role,
			Groups:  groups,
			Friends: friends,
		})
	}
	return &UsersPage{Users: out, Meta: NewPageMeta(page, PageLimit, total)}, nil
}

// ChatOverview is one row of the admin chat listing, members resolved to
// their public profiles.
type ChatOverview struct {
	ChatID        string             `json:"chat_id"`
	Name          string             `json:"name"`
	GroupChat     bool               `json:"group_chat"`
	Creator       usermodel.Public   `json:"creator"`
	Members       []usermodel.Public `json:"members"`
	TotalMembers  int                `json:"total_members"`
	TotalMessages int64              `json:"total_messages"`
}

type ChatsPage struct {
	Chats []ChatOverview `json:"chats"`
	Meta  PageMeta       `json:"meta"`
}

func (s *Service) Chats(ctx context.Context, page int64) (*ChatsPage, error) {
	chats, total, err := s.chats.ChatsPage(ctx, page, PageLimit)
	if err != nil {
		return nil, err
	}
	out := make([]ChatOverview, 0, len(chats))
	for i := range chats {
		c := &chats[i]
		profiles, err := s.profileMap(ctx, append([]string{c.CreatorID}, c.Members...))
		if err != nil {
			return nil, err
		}
		msgs, err := s.chats.CountMessages(ctx, c.ChatID)
		if err != nil {
			return nil, err
		}
		members := make([]usermodel.Public, 0, len(c.Members))
		for _, id := range c.Members {
			members = append(members, profiles[id])
		}
		out = append(out, ChatOverview{
			ChatID:        c.ChatID,
			Name:          c.Name,
			GroupChat:     c.GroupChat,
			Creator:       profiles[c.CreatorID],
			Members:       members,
			TotalMembers:  len(c.Members),
			TotalMessages: msgs,
		})
	}
	return &ChatsPage{Chats: out, Meta: NewPageMeta(page, PageLimit, total)}, nil
}

// MessageOverview is one row of the admin message listing.
type MessageOverview struct {
	MessageID   string                 `json:"message_id"`
	Sender      usermodel.Public       `json:"sender"`
	Chat        MessageChatRef         `json:"chat"`
	Content     string                 `json:"content"`
	Attachments []chatmodel.Attachment `json:"attachments"`
	CreateTime  time.Time              `json:"create_time"`
}

type MessageChatRef struct {
	ChatID    string `json:"chat_id"`
	Name      string `json:"name"`
	GroupChat bool   `json:"group_chat"`
}

type MessagesPage struct {
	Messages []MessageOverview `json:"messages"`
	Meta     PageMeta          `json:"meta"`
}

func (s *Service) Messages(ctx context.Context, page int64) (*MessagesPage, error) {
	msgs, total, err := s.chats.MessagesAllPage(ctx, page, PageLimit)
	if err != nil {
		return nil, err
	}
	senderIDs := make([]string, 0, len(msgs))
	for i := range msgs {
		senderIDs = append(senderIDs, msgs[i].SenderID)
	}
	profiles, err := s.profileMap(ctx, senderIDs)
	if err != nil {
		return nil, err
	}

	// chats referenced by this page, fetched once each; a deleted chat
	// leaves an empty ref
	chatRefs := map[string]MessageChatRef{}
	out := make([]MessageOverview, 0, len(msgs))
	for i := range msgs {
		m := &msgs[i]
		ref, ok := chatRefs[m.ChatID]
		if !ok {
			if c, err := s.chats.FindChat(ctx, m.ChatID); err == nil {
				ref = MessageChatRef{ChatID: c.ChatID, Name: c.Name, GroupChat: c.GroupChat}
			} else if !errs.ErrNotFound.Is(err) {
				return nil, err
			}
			chatRefs[m.ChatID] = ref
		}
		attachments := m.Attachments
		if attachments == nil {
			attachments = []chatmodel.Attachment{}
		}
		out = append(out, MessageOverview{
			MessageID:   m.MessageID,
			Sender:      profiles[m.SenderID],
			Chat:        ref,
			Content:     m.Content,
			Attachments: attachments,
			CreateTime:  m.CreateTime,
		})
	}
	return &MessagesPage{Messages: out, Meta: NewPageMeta(page, PageLimit, total)}, nil
}

// Stats is the dashboard payload: aggregate counts plus a 7-day message
// activity chart, oldest day first and today last.
type Stats struct {
	GroupChatsCount    int64    `json:"group_chats_count"`
	PersonalChatsCount int64    `json:"personal_chats_count"`
	TotalChats         int64    `json:"total_chats"`
	TotalMessages      int64    `json:"total_messages"`
	TotalUsers         int64    `json:"total_users"`
	MessagesChart      [7]int64 `json:"messages_chart"`
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	now := time.Now().UTC()
	times, err := s.chats.MessageTimesSince(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, err
	}
	groups, err := s.chats.CountChats(ctx, true)
	if err != nil {
		return nil, err
	}
	personal, err := s.chats.CountChats(ctx, false)
	if err != nil {
		return nil, err
	}
	totalMessages, err := s.chats.CountMessages(ctx, "")
	if err != nil {
		return nil, err
	}
	_, totalUsers, err := s.users.Page(ctx, 1, 1)
	if err != nil {
		return nil, err
	}
	return &Stats{
		GroupChatsCount:    groups,
		PersonalChatsCount: personal,
		TotalChats:         groups + personal,
		TotalMessages:      totalMessages,
		TotalUsers:         totalUsers,
		MessagesChart:      BucketLast7Days(now, times),
	}, nil
}

// BucketLast7Days buckets timestamps into seven day-wide slots ending now;
// index 6 is the current day, index 0 six days ago. Out-of-window times are
// dropped.
func BucketLast7Days(now time.Time, times []time.Time) [7]int64 {
	var buckets [7]int64
	day := 24 * time.Hour
	for _, ts := range times {
		age := now.Sub(ts)
		if age < 0 || age >= 7*day {
			continue
		}
		buckets[6-int(age/day)]++
	}
	return buckets
}

func (s *Service) profileMap(ctx context.Context, ids []string) (map[string]usermodel.Public, error) {
	users, err := s.users.FindMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]usermodel.Public, len(users))
	for i := range users {
		out[users[i].UserID] = users[i].Public()
	}
	return out, nil
}
