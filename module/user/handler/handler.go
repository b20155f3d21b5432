package handler

import (
	"net/http"
	"strings"

	"PulseChat/middleware"
	midsec "PulseChat/middleware/security"
	"PulseChat/module/user/service"
	"PulseChat/service/storage/object"
	errs "PulseChat/tools/errs"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	users   *service.Service
	objects object.Store
}

func New(users *service.Service, objects object.Store) *Handler {
	return &Handler{users: users, objects: objects}
}

func (h *Handler) Routes(r gin.IRoutes) {
	middleware.POST(r, "/auth/signup", h.Signup, middleware.RouteOpt{})
	middleware.POST(r, "/auth/login", h.Login, middleware.RouteOpt{})
	middleware.POST(r, "/auth/logout", h.Logout, middleware.RouteOpt{IsAuth: true})
	middleware.POST(r, "/auth/logout-all", h.LogoutAll, middleware.RouteOpt{IsAuth: true})

	middleware.GET(r, "/user/me", h.Me, middleware.RouteOpt{IsAuth: true})
	middleware.GET(r, "/user/search", h.Search, middleware.RouteOpt{IsAuth: true})
	middleware.GET(r, "/user/friends", h.Friends, middleware.RouteOpt{IsAuth: true})
	middleware.GET(r, "/user/friend-requests", h.PendingRequests, middleware.RouteOpt{IsAuth: true})
	middleware.POST(r, "/user/friend-request", h.SendFriendRequest, middleware.RouteOpt{IsAuth: true})
	middleware.POST(r, "/user/friend-request/respond", h.RespondFriendRequest, middleware.RouteOpt{IsAuth: true})
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, err error) {
	ce := errs.CodeOf(err)
	c.JSON(ce.HTTPStatus(), gin.H{"success": false, "error": ce})
}

type signupReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

// Signup accepts either a JSON body or a multipart form; the multipart form
// may carry an optional "avatar" file stored before the account is created.
func (h *Handler) Signup(c *gin.Context) {
	req, avatarURL, err := signupForm(c, h.objects)
	if err != nil {
		fail(c, err)
		return
	}
	sess, err := h.users.Signup(c.Request.Context(), req.Username, req.Password, req.Name, avatarURL)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, sess)
}

func signupForm(c *gin.Context, objects object.Store) (signupReq, string, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		var req signupReq
		if err := c.ShouldBindJSON(&req); err != nil {
			return signupReq{}, "", errs.ErrBadRequest.WithDetail(err.Error())
		}
		return req, "", nil
	}

	req := signupReq{
		Username: c.PostForm("username"),
		Password: c.PostForm("password"),
		Name:     c.PostForm("name"),
	}
	if req.Username == "" || req.Password == "" {
		return signupReq{}, "", errs.ErrBadRequest.WithDetail("username and password are required")
	}

	fh, err := c.FormFile("avatar")
	if err != nil {
		// no avatar attached
		return req, "", nil
	}
	f, err := fh.Open()
	if err != nil {
		return signupReq{}, "", errs.ErrBadRequest.WithDetail("unreadable avatar file")
	}
	defer f.Close()
	url, err := objects.Save(c.Request.Context(), fh.Filename, f)
	if err != nil {
		return signupReq{}, "", err
	}
	return req, url, nil
}

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	sess, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, sess)
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.users.Logout(c.Request.Context(), midsec.UserID(c), midsec.TokenHash(c)); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"logged_out": true})
}

func (h *Handler) LogoutAll(c *gin.Context) {
	n, err := h.users.LogoutAll(c.Request.Context(), midsec.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"revoked_sessions": n})
}

func (h *Handler) Me(c *gin.Context) {
	u, err := h.users.Me(c.Request.Context(), midsec.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, u)
}

func (h *Handler) Search(c *gin.Context) {
	res, err := h.users.Search(c.Request.Context(), midsec.UserID(c), c.Query("name"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, res)
}

func (h *Handler) Friends(c *gin.Context) {
	res, err := h.users.Friends(c.Request.Context(), midsec.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, res)
}

func (h *Handler) PendingRequests(c *gin.Context) {
	res, err := h.users.PendingRequests(c.Request.Context(), midsec.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, res)
}

type friendRequestReq struct {
	ToUserID string `json:"to_user_id" binding:"required"`
}

func (h *Handler) SendFriendRequest(c *gin.Context) {
	var req friendRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	out, err := h.users.SendFriendRequest(c.Request.Context(), midsec.UserID(c), req.ToUserID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

type respondReq struct {
	RequestID string `json:"request_id" binding:"required"`
	Accept    bool   `json:"accept"`
}

func (h *Handler) RespondFriendRequest(c *gin.Context) {
	var req respondReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	out, err := h.users.RespondFriendRequest(c.Request.Context(), midsec.UserID(c), req.RequestID, req.Accept)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}
