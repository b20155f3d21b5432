package handler

import (
	"net/http"
	"strconv"
	"time"

	"PulseChat/middleware"
	midsec "PulseChat/middleware/security"
	"PulseChat/module/admin/service"
	errs "PulseChat/tools/errs"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	admin *service.Service
}

func New(admin *service.Service) *Handler { return &Handler{admin: admin} }

func (h *Handler) Routes(r gin.IRoutes) {
	auth := middleware.RouteOpt{IsAuth: true}

	middleware.POST(r, "/admin/verify", h.Verify, middleware.RouteOpt{})
	middleware.POST(r, "/admin/logout", h.Logout, auth)
	middleware.GET(r, "/admin", h.Welcome, auth)
	middleware.GET(r, "/admin/users", h.Users, auth)
	middleware.GET(r, "/admin/chats", h.Chats, auth)
	middleware.GET(r, "/admin/messages", h.Messages, auth)
	middleware.GET(r, "/admin/stats", h.Stats, auth)
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, err error) {
	ce := errs.CodeOf(err)
	c.JSON(ce.HTTPStatus(), gin.H{"success": false, "error": ce})
}

// requireAdmin re-checks the caller's stored role on every admin read; a
// demoted account loses access without waiting for its session to expire.
func (h *Handler) requireAdmin(c *gin.Context) bool {
	if err := h.admin.RequireAdmin(c.Request.Context(), midsec.UserID(c)); err != nil {
		fail(c, err)
		c.Abort()
		return false
	}
	return true
}

type verifyReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Verify(c *gin.Context) {
	var req verifyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	sess, err := h.admin.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, sess)
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.admin.Logout(c.Request.Context(), midsec.UserID(c), midsec.TokenHash(c)); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"logged_out": true})
}

func (h *Handler) Welcome(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	ok(c, gin.H{"admin": true, "timestamp": time.Now().UTC()})
}

func (h *Handler) Users(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	out, err := h.admin.Users(c.Request.Context(), page)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

func (h *Handler) Chats(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	out, err := h.admin.Chats(c.Request.Context(), page)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

func (h *Handler) Messages(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	out, err := h.admin.Messages(c.Request.Context(), page)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

func (h *Handler) Stats(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	out, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}
