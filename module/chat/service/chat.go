package service

import (
	"context"
	"strings"
	"time"

	"PulseChat/logger"
	"PulseChat/module/chat/model"
	"PulseChat/module/chat/store"
	usermodel "PulseChat/module/user/model"
	"PulseChat/service/chat"
	"PulseChat/service/storage/object"
	errs "PulseChat/tools/errs"

	"github.com/google/uuid"
)

// UserDirectory is the slice of the user module this service needs.
type UserDirectory interface {
	Nickname(ctx context.Context, userID string) (string, error)
	FindMany(ctx context.Context, userIDs []string) ([]usermodel.User, error)
}

// Service owns conversation lifecycle and message history. Store writes
// commit before any live event goes out, so the store stays the source of
// truth even when a push is missed.
type Service struct {
	repo    *store.Repo
	users   UserDirectory
	objects object.Store
	orch    *Orchestrator
}

func NewService(repo *store.Repo, users UserDirectory, objects object.Store, orch *Orchestrator) *Service {
	return &Service{repo: repo, users: users, objects: objects, orch: orch}
}

// ChatDetails is a chat with member profiles resolved for display.
type ChatDetails struct {
	model.Chat
	MemberProfiles []usermodel.Public `json:"member_profiles"`
}

func (s *Service) CreateGroup(ctx context.Context, creatorID, name string, members []string) (*model.Chat, error) {
	hasCreator := false
	for _, id := range members {
		if id == creatorID {
			hasCreator = true
			break
		}
	}
	if !hasCreator {
		members = append([]string{creatorID}, members...)
	}
	if err := ValidateNewGroup(strings.TrimSpace(name), members); err != nil {
		return nil, err
	}
	if err := s.ensureUsersExist(ctx, members); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	c := &model.Chat{
		ChatID:     uuid.NewString(),
		Name:       strings.TrimSpace(name),
		GroupChat:  true,
		CreatorID:  creatorID,
		Members:    members,
		CreateTime: now,
		UpdateTime: now,
	}
	if err := s.repo.InsertChat(ctx, c); err != nil {
		return nil, err
	}
	s.orch.ChatCreated(c)
	return c, nil
}

// CreateDirect returns the existing direct chat between the two users or
// creates one. Direct chats have no stored name; list views label them with
// the other member's name.
func (s *Service) CreateDirect(ctx context.Context, a, b string) (*model.Chat, error) {
	if a == b {
		return nil, errs.ErrBadRequest.WithDetail("cannot open a chat with yourself")
	}
	existing, err := s.repo.FindDirect(ctx, a, b)
	if err == nil {
		return existing, nil
	}
	if !errs.ErrNotFound.Is(err) {
		return nil, err
	}
	now := time.Now().UTC()
	c := &model.Chat{
		ChatID:     uuid.NewString(),
		GroupChat:  false,
		CreatorID:  a,
		Members:    []string{a, b},
		CreateTime: now,
		UpdateTime: now,
	}
	if err := s.repo.InsertChat(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// MyChats lists the caller's chats, naming direct chats after the peer.
func (s *Service) MyChats(ctx context.Context, userID string) ([]model.Chat, error) {
	chats, err := s.repo.ChatsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range chats {
		if chats[i].GroupChat {
			continue
		}
		peer := chats[i].OtherMember(userID)
		name, err := s.users.Nickname(ctx, peer)
		if err != nil {
			logger.Warnf("[chat] nickname %s: %v", peer, err)
			continue
		}
		chats[i].Name = name
	}
	return chats, nil
}

func (s *Service) MyGroups(ctx context.Context, userID string) ([]model.Chat, error) {
	return s.repo.GroupsForUser(ctx, userID)
}

func (s *Service) AddMembers(ctx context.Context, actorID, chatID string, newMembers []string) (*model.Chat, error) {
	c, err := s.repo.FindChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := CanAddMembers(c, actorID, newMembers); err != nil {
		return nil, err
	}
	if err := s.ensureUsersExist(ctx, newMembers); err != nil {
		return nil, err
	}
	c.Members = append(c.Members, newMembers...)
	if err := s.repo.SetMembers(ctx, chatID, c.Members); err != nil {
		return nil, err
	}
	s.orch.MembersAdded(c, s.displayNames(ctx, newMembers))
	return c, nil
}

func (s *Service) RemoveMember(ctx context.Context, actorID, chatID, targetID string) (*model.Chat, error) {
	c, err := s.repo.FindChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := CanRemoveMember(c, actorID, targetID); err != nil {
		return nil, err
	}
	c.Members = chat.Exclude(c.Members, targetID)
	if err := s.repo.SetMembers(ctx, chatID, c.Members); err != nil {
		return nil, err
	}
	name := s.displayNames(ctx, []string{targetID})[0]
	s.orch.MemberRemoved(c, targetID, name)
	return c, nil
}

func (s *Service) Leave(ctx context.Context, actorID, chatID string) (*model.Chat, error) {
	c, err := s.repo.FindChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := CanLeave(c, actorID); err != nil {
		return nil, err
	}
	c.Members = chat.Exclude(c.Members, actorID)
	if err := s.repo.SetMembers(ctx, chatID, c.Members); err != nil {
		return nil, err
	}
	name := s.displayNames(ctx, []string{actorID})[0]
	s.orch.MemberLeft(c, actorID, name)
	return c, nil
}

func (s *Service) Rename(ctx context.Context, actorID, chatID, name string) (*model.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.ErrBadRequest.WithDetail("group name is required")
	}
	c, err := s.repo.FindChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := CanRename(c, actorID); err != nil {
		return nil, err
	}
	if err := s.repo.SetName(ctx, chatID, name); err != nil {
		return nil, err
	}
	c.Name = name
	s.orch.ChatRenamed(c)
	return c, nil
}

// Delete removes the group, its history and any stored attachments. Object
// removal is best effort; the records go first.
func (s *Service) Delete(ctx context.Context, actorID, chatID string) error {
	c, err := s.repo.FindChat(ctx, chatID)
	if err != nil {
		return err
	}
	if err := CanDelete(c, actorID); err != nil {
		return err
	}
	withMedia, err := s.repo.MessagesWithAttachments(ctx, chatID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteMessages(ctx, chatID); err != nil {
		return err
	}
	if err := s.repo.DeleteChat(ctx, chatID); err != nil {
		return err
	}
	for _, m := range withMedia {
		for _, a := range m.Attachments {
			if err := s.objects.Remove(ctx, a.URL); err != nil {
				logger.Warnf("[chat] remove attachment %s: %v", a.URL, err)
			}
		}
	}
	s.orch.ChatDeleted(c)
	return nil
}

func (s *Service) Details(ctx context.Context, callerID, chatID string) (*ChatDetails, error) {
	c, err := s.repo.FindChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !c.HasMember(callerID) {
		return nil, errs.ErrInvalidMembershipRef.WithDetail("user is not a member of this chat")
	}
	users, err := s.users.FindMany(ctx, c.Members)
	if err != nil {
		return nil, err
	}
	d := &ChatDetails{Chat: *c, MemberProfiles: make([]usermodel.Public, 0, len(users))}
	for i := range users {
		d.MemberProfiles = append(d.MemberProfiles, users[i].Public())
	}
	if !c.GroupChat {
		if name, err := s.users.Nickname(ctx, c.OtherMember(callerID)); err == nil {
			d.Name = name
		}
	}
	return d, nil
}

// MessagePage is one slice of history, oldest first within the slice.
type MessagePage struct {
	Messages   []model.Message `json:"messages"`
	Page       int64           `json:"page"`
	TotalPages int64           `json:"total_pages"`
}

func (s *Service) Messages(ctx context.Context, callerID, chatID string, page int64) (*MessagePage, error) {
	c, err := s.repo.FindChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !c.HasMember(callerID) {
		return nil, errs.ErrInvalidMembershipRef.WithDetail("user is not a member of this chat")
	}
	msgs, totalPages, err := s.repo.MessagesPage(ctx, chatID, page)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	return &MessagePage{Messages: msgs, Page: page, TotalPages: totalPages}, nil
}

// SaveMessage persists a live-path message. Delivery already happened by the
// time this runs, so errors surface to the caller for logging only.
func (s *Service) SaveMessage(ctx context.Context, conversationID, senderID, text string) error {
	m := &model.Message{
		MessageID:  uuid.NewString(),
		ChatID:     conversationID,
		SenderID:   senderID,
		Content:    text,
		CreateTime: time.Now().UTC(),
	}
	if err := s.repo.InsertMessage(ctx, m); err != nil {
		return err
	}
	if err := s.repo.Touch(ctx, conversationID); err != nil {
		logger.Warnf("[chat] touch %s: %v", conversationID, err)
	}
	return nil
}

// SaveAttachmentMessage is the REST upload path: the record commits first,
// then connected members get the push.
func (s *Service) SaveAttachmentMessage(ctx context.Context, senderID, chatID, text string, attachments []model.Attachment) (*model.Message, error) {
	c, err := s.repo.FindChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !c.HasMember(senderID) {
		return nil, errs.ErrInvalidMembershipRef.WithDetail("user is not a member of this chat")
	}
	m := &model.Message{
		MessageID:   uuid.NewString(),
		ChatID:      chatID,
		SenderID:    senderID,
		Content:     text,
		Attachments: attachments,
		CreateTime:  time.Now().UTC(),
	}
	if err := s.repo.InsertMessage(ctx, m); err != nil {
		return nil, err
	}
	if err := s.repo.Touch(ctx, chatID); err != nil {
		logger.Warnf("[chat] touch %s: %v", chatID, err)
	}
	urls := make([]string, 0, len(attachments))
	for _, a := range attachments {
		urls = append(urls, a.URL)
	}
	senderName, _ := s.users.Nickname(ctx, senderID)
	s.orch.MessageSent(c, &chat.RealtimeMessage{
		ID:             m.MessageID,
		ConversationID: chatID,
		SenderID:       senderID,
		SenderName:     senderName,
		Text:           text,
		Attachments:    urls,
		CreatedAt:      m.CreateTime,
	})
	return m, nil
}

func (s *Service) Orchestrator() *Orchestrator { return s.orch }

func (s *Service) ensureUsersExist(ctx context.Context, ids []string) error {
	users, err := s.users.FindMany(ctx, ids)
	if err != nil {
		return err
	}
	if len(users) != len(ids) {
		return errs.ErrInvalidMembershipRef.WithDetail("unknown user in member list")
	}
	return nil
}

func (s *Service) displayNames(ctx context.Context, ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		name, err := s.users.Nickname(ctx, id)
		if err != nil {
			name = id
		}
		out = append(out, name)
	}
	return out
}
