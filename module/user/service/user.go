package service

import (
	"context"
	"strings"
	"time"

	chatservice "PulseChat/module/chat/service"
	"PulseChat/module/user/model"
	"PulseChat/module/user/store"
	"PulseChat/service/storage"
	errs "PulseChat/tools/errs"
	"PulseChat/tools/security"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service owns accounts, sessions and the friend graph. It also backs the
// live layer's token check, so a revoked session kills both REST and the
// websocket path at once.
type Service struct {
	repo    *store.Repo
	chats   *chatservice.Service
	jwtOpts security.Options
}

func NewService(repo *store.Repo, chats *chatservice.Service, jwtOpts security.Options) *Service {
	return &Service{repo: repo, chats: chats, jwtOpts: jwtOpts}
}

// Session is what login/signup hand back to the client.
type Session struct {
	User     model.Public `json:"user"`
	Token    string       `json:"token"`
	ExpireAt time.Time    `json:"expire_at"`
}

func (s *Service) Signup(ctx context.Context, username, password, name, avatarURL string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errs.ErrBadRequest.WithDetail("username and password are required")
	}
	if len(password) < 6 {
		return nil, errs.ErrBadRequest.WithDetail("password must be at least 6 characters")
	}
	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return nil, errs.ErrPolicyViolation.WithDetail("username already taken")
	} else if !errs.ErrNotFound.Is(err) {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errs.ErrInternal.Wrap(err)
	}
	now := time.Now().UTC()
	u := &model.User{
		UserID:       uuid.NewString(),
		Username:     username,
		Name:         strings.TrimSpace(name),
		AvatarURL:    avatarURL,
		Role:         model.RoleUser,
		PasswordHash: string(hash),
		CreateTime:   now,
		UpdateTime:   now,
	}
	if err := s.repo.InsertUser(ctx, u); err != nil {
		return nil, err
	}
	return s.openSession(ctx, u)
}

func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	u, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errs.ErrNotFound.Is(err) {
			return nil, errs.ErrAuthenticationFailure.WithDetail("invalid username or password")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, errs.ErrAuthenticationFailure.WithDetail("invalid username or password")
	}
	return s.openSession(ctx, u)
}

func (s *Service) openSession(ctx context.Context, u *model.User) (*Session, error) {
	token, tokenHash, expireAt, err := security.Generate(s.jwtOpts, u.UserID)
	if err != nil {
		return nil, errs.ErrInternal.Wrap(err)
	}
	if err := storage.GetSessions().Login(ctx, u.UserID, tokenHash); err != nil {
		return nil, err
	}
	return &Session{User: u.Public(), Token: token, ExpireAt: expireAt}, nil
}

func (s *Service) Logout(ctx context.Context, userID, tokenHash string) error {
	return storage.GetSessions().Logout(ctx, userID, tokenHash)
}

// LogoutAll revokes every session of the user, current one included.
func (s *Service) LogoutAll(ctx context.Context, userID string) (int, error) {
	revoked, err := storage.GetSessions().LogoutAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(revoked), nil
}

// Authenticate is the live handshake check: the token must verify and its
// session must still exist.
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	claims, err := security.Verify(s.jwtOpts, token)
	if err != nil {
		return "", errs.ErrAuthenticationFailure.WithDetail("invalid token")
	}
	userID, err := storage.GetSessions().Validate(ctx, security.HashToken(token))
	if err != nil {
		return "", err
	}
	if sub := claims.Subject(); sub == "" || sub != userID {
		return "", errs.ErrAuthenticationFailure.WithDetail("token subject mismatch")
	}
	return userID, nil
}

func (s *Service) Me(ctx context.Context, userID string) (*model.User, error) {
	return s.repo.FindByID(ctx, userID)
}

// Search finds users by name prefix, hiding the caller and existing friends.
func (s *Service) Search(ctx context.Context, callerID, name string) ([]model.Public, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.ErrBadRequest.WithDetail("search term is required")
	}
	caller, err := s.repo.FindByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	users, err := s.repo.Search(ctx, callerID, name, caller.Friends)
	if err != nil {
		return nil, err
	}
	out := make([]model.Public, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out, nil
}

func (s *Service) Friends(ctx context.Context, userID string) ([]model.Public, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(u.Friends) == 0 {
		return []model.Public{}, nil
	}
	users, err := s.repo.FindMany(ctx, u.Friends)
	if err != nil {
		return nil, err
	}
	out := make([]model.Public, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out, nil
}

func (s *Service) SendFriendRequest(ctx context.Context, fromID, toID string) (*model.FriendRequest, error) {
	if fromID == toID {
		return nil, errs.ErrBadRequest.WithDetail("cannot befriend yourself")
	}
	from, err := s.repo.FindByID(ctx, fromID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByID(ctx, toID); err != nil {
		return nil, err
	}
	for _, f := range from.Friends {
		if f == toID {
			return nil, errs.ErrPolicyViolation.WithDetail("already friends")
		}
	}
	pending, err := s.repo.PendingBetween(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, errs.ErrPolicyViolation.WithDetail("a request is already pending")
	}
	req := &model.FriendRequest{
		RequestID:    uuid.NewString(),
		FromUserID:   fromID,
		ToUserID:     toID,
		HandleResult: model.RequestPending,
		CreateTime:   time.Now().UTC(),
	}
	if err := s.repo.InsertRequest(ctx, req); err != nil {
		return nil, err
	}
	s.chats.Orchestrator().FriendRequestSent(fromID, toID)
	return req, nil
}

// RespondFriendRequest settles a pending request. Accepting links the pair
// and opens their direct chat.
func (s *Service) RespondFriendRequest(ctx context.Context, callerID, requestID string, accept bool) (*model.FriendRequest, error) {
	req, err := s.repo.FindRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ToUserID != callerID {
		return nil, errs.ErrPermissionDenied.WithDetail("only the recipient can respond")
	}
	result := model.RequestDeclined
	if accept {
		result = model.RequestAccepted
	}
	req, err = s.repo.HandleRequest(ctx, requestID, result)
	if err != nil {
		return nil, err
	}
	if !accept {
		return req, nil
	}
	if err := s.repo.AddFriend(ctx, req.FromUserID, req.ToUserID); err != nil {
		return nil, err
	}
	direct, err := s.chats.CreateDirect(ctx, req.FromUserID, req.ToUserID)
	if err != nil {
		return nil, err
	}
	s.chats.Orchestrator().FriendAccepted(direct)
	return req, nil
}

// PendingRequests lists requests awaiting the caller, with sender profiles.
type PendingRequest struct {
	model.FriendRequest
	From model.Public `json:"from"`
}

func (s *Service) PendingRequests(ctx context.Context, userID string) ([]PendingRequest, error) {
	reqs, err := s.repo.PendingFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(reqs))
	for i := range reqs {
		ids = append(ids, reqs[i].FromUserID)
	}
	profiles := map[string]model.Public{}
	if len(ids) > 0 {
		users, err := s.repo.FindMany(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range users {
			profiles[users[i].UserID] = users[i].Public()
		}
	}
	out := make([]PendingRequest, 0, len(reqs))
	for i := range reqs {
		out = append(out, PendingRequest{FriendRequest: reqs[i], From: profiles[reqs[i].FromUserID]})
	}
	return out, nil
}
