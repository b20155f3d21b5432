package security

import (
	"net/http"
	"strings"

	"PulseChat/global"
	"PulseChat/logger"
	"PulseChat/service/storage"
	errs "PulseChat/tools/errs"
	jwtlib "PulseChat/tools/security"

	"github.com/gin-gonic/gin"
)

// context keys shared with the route handlers
const (
	CtxUserIDKey    = "authUserID"
	CtxTokenHashKey = "authTokenHash"
)

type Options struct {
	HeaderToken               string // default "Authorization"
	EnableAuthorizationBearer bool   // default true
}

func DefaultOptions() *Options {
	return &Options{
		HeaderToken:               "Authorization",
		EnableAuthorizationBearer: true,
	}
}

// Middleware authenticates REST calls: Bearer JWT, then the Redis-backed
// session behind its hash. The resolved user id lands in the gin context.
func Middleware(opts *Options) gin.HandlerFunc {
	if opts == nil {
		opts = DefaultOptions()
	}
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(opts.HeaderToken))
		if opts.EnableAuthorizationBearer && strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = strings.TrimSpace(token[len("bearer "):])
		}
		if token == "" {
			abortUnauthorized(c, errs.ErrAuthenticationFailure.WithDetail("missing token"))
			return
		}

		claims, err := jwtlib.Verify(jwtlib.DefaultOptions(global.GetJwtSecret()), token)
		if err != nil {
			logger.Debug("reject token: " + err.Error())
			abortUnauthorized(c, errs.ErrAuthenticationFailure.WithDetail("invalid or expired token"))
			return
		}

		hash := jwtlib.HashToken(token)
		userID, err := storage.GetSessions().Validate(c.Request.Context(), hash)
		if err != nil {
			abortUnauthorized(c, errs.CodeOf(err))
			return
		}
		if sub := claims.Subject(); sub != "" && sub != userID {
			abortUnauthorized(c, errs.ErrAuthenticationFailure.WithDetail("token subject mismatch"))
			return
		}

		c.Set(CtxUserIDKey, userID)
		c.Set(CtxTokenHashKey, hash)
		c.Next()
	}
}

// UserID reads the authenticated user id set by Middleware.
func UserID(c *gin.Context) string {
	return c.GetString(CtxUserIDKey)
}

// TokenHash reads the session fingerprint set by Middleware.
func TokenHash(c *gin.Context) string {
	return c.GetString(CtxTokenHashKey)
}

func abortUnauthorized(c *gin.Context, ce *errs.CodeError) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": ce})
}
