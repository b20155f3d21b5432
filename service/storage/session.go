package storage

import (
	"context"
	"sync"
	"time"

	rediscli "PulseChat/service/storage/redis"
	errs "PulseChat/tools/errs"

	"github.com/redis/go-redis/v9"
)

// SessionConfig controls the login-session store.
type SessionConfig struct {
	TTL          time.Duration // session lifetime, renewed on REST activity
	UserIndexTTL time.Duration // per-user index lifetime (>= TTL)
}

func (c *SessionConfig) norm() {
	if c.TTL <= 0 {
		c.TTL = 2 * time.Hour
	}
	if c.UserIndexTTL < c.TTL {
		c.UserIndexTTL = 2 * c.TTL
	}
}

// sess:<tokenHash>      -> userID            (TTL = session lifetime)
// sessu:<userID>        -> set of tokenHash  (index for logout-all)

// force-logout every session of a user:
// KEYS[1] = user index key
// returns the token hashes that were dropped
const luaLogoutAll = `
local userS = KEYS[1]
local members = redis.call("SMEMBERS", userS)
for _, h in ipairs(members) do
  redis.call("DEL", "sess:" .. h)
end
redis.call("DEL", userS)
return members
`

type SessionStore struct {
	conf      SessionConfig
	logoutAll *redis.Script
}

var (
	sessOnce sync.Once
	sessMgr  *SessionStore
)

// InitSessions builds the singleton store; call after redis.InitRedis.
func InitSessions(conf SessionConfig) {
	sessOnce.Do(func() {
		conf.norm()
		sessMgr = &SessionStore{
			conf:      conf,
			logoutAll: redis.NewScript(luaLogoutAll),
		}
	})
}

func GetSessions() *SessionStore {
	if sessMgr == nil {
		panic("session store not initialized, call InitSessions first")
	}
	return sessMgr
}

func sessionKey(tokenHash string) string { return "sess:" + tokenHash }
func userIndexKey(userID string) string  { return "sessu:" + userID }

// Login records a freshly issued token for userID.
func (s *SessionStore) Login(ctx context.Context, userID, tokenHash string) error {
	rdb := rediscli.GetRedis()
	pipe := rdb.TxPipeline()
	pipe.Set(ctx, sessionKey(tokenHash), userID, s.conf.TTL)
	pipe.SAdd(ctx, userIndexKey(userID), tokenHash)
	pipe.Expire(ctx, userIndexKey(userID), s.conf.UserIndexTTL)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return nil
}

// Validate resolves a token hash to the owning user; a missing key means the
// session expired or was revoked.
func (s *SessionStore) Validate(ctx context.Context, tokenHash string) (string, error) {
	rdb := rediscli.GetRedis()
	userID, err := rdb.Get(ctx, sessionKey(tokenHash)).Result()
	if err == redis.Nil {
		return "", errs.ErrAuthenticationFailure.WithDetail("session expired or revoked")
	}
	if err != nil {
		return "", errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return userID, nil
}

// Logout revokes one session; idempotent.
func (s *SessionStore) Logout(ctx context.Context, userID, tokenHash string) error {
	rdb := rediscli.GetRedis()
	pipe := rdb.TxPipeline()
	pipe.Del(ctx, sessionKey(tokenHash))
	pipe.SRem(ctx, userIndexKey(userID), tokenHash)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return nil
}

// LogoutAll force-drops every session of a user, returning the revoked
// token hashes.
func (s *SessionStore) LogoutAll(ctx context.Context, userID string) ([]string, error) {
	rdb := rediscli.GetRedis()
	res, err := s.logoutAll.Run(ctx, rdb, []string{userIndexKey(userID)}).StringSlice()
	if err != nil && err != redis.Nil {
		return nil, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return res, nil
}
