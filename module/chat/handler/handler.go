package handler

import (
	"net/http"
	"strconv"

	"PulseChat/middleware"
	midsec "PulseChat/middleware/security"
	"PulseChat/module/chat/model"
	"PulseChat/module/chat/service"
	"PulseChat/service/storage/object"
	errs "PulseChat/tools/errs"

	"github.com/gin-gonic/gin"
)

// attachment upload bounds, per request
const (
	minAttachments = 1
	maxAttachments = 5
)

type Handler struct {
	chats   *service.Service
	objects object.Store
}

func New(chats *service.Service, objects object.Store) *Handler {
	return &Handler{chats: chats, objects: objects}
}

func (h *Handler) Routes(r gin.IRoutes) {
	auth := middleware.RouteOpt{IsAuth: true}

	middleware.GET(r, "/chat/list", h.MyChats, auth)
	middleware.GET(r, "/chat/groups", h.MyGroups, auth)
	middleware.POST(r, "/chat/group", h.CreateGroup, auth)
	middleware.GET(r, "/chat/:chatID", h.Details, auth)
	middleware.DELETE(r, "/chat/:chatID", h.Delete, auth)
	middleware.PUT(r, "/chat/:chatID/name", h.Rename, auth)
	middleware.PUT(r, "/chat/:chatID/members", h.AddMembers, auth)
	middleware.PUT(r, "/chat/:chatID/remove", h.RemoveMember, auth)
	middleware.PUT(r, "/chat/:chatID/leave", h.Leave, auth)
	middleware.GET(r, "/chat/:chatID/messages", h.Messages, auth)
	middleware.POST(r, "/chat/:chatID/attachments", h.UploadAttachments, auth)
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, err error) {
	ce := errs.CodeOf(err)
	c.JSON(ce.HTTPStatus(), gin.H{"success": false, "error": ce})
}

type createGroupReq struct {
	Name    string   `json:"name" binding:"required"`
	Members []string `json:"members" binding:"required"`
}

func (h *Handler) CreateGroup(c *gin.Context) {
	var req createGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	out, err := h.chats.CreateGroup(c.Request.Context(), midsec.UserID(c), req.Name, req.Members)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

func (h *Handler) MyChats(c *gin.Context) {
	out, err := h.chats.MyChats(c.Request.Context(), midsec.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

func (h *Handler) MyGroups(c *gin.Context) {
	out, err := h.chats.MyGroups(c.Request.Context(), midsec.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

func (h *Handler) Details(c *gin.Context) {
	out, err := h.chats.Details(c.Request.Context(), midsec.UserID(c), c.Param("chatID"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

type membersReq struct {
	Members []string `json:"members" binding:"required"`
}

func (h *Handler) AddMembers(c *gin.Context) {
	var req membersReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	out, err := h.chats.AddMembers(c.Request.Context(), midsec.UserID(c), c.Param("chatID"), req.Members)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

type removeMemberReq struct {
	UserID string `json:"user_id" binding:"required"`
}

func (h *Handler) RemoveMember(c *gin.Context) {
	var req removeMemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	out, err := h.chats.RemoveMember(c.Request.Context(), midsec.UserID(c), c.Param("chatID"), req.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

func (h *Handler) Leave(c *gin.Context) {
	out, err := h.chats.Leave(c.Request.Context(), midsec.UserID(c), c.Param("chatID"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

type renameReq struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) Rename(c *gin.Context) {
	var req renameReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	out, err := h.chats.Rename(c.Request.Context(), midsec.UserID(c), c.Param("chatID"), req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.chats.Delete(c.Request.Context(), midsec.UserID(c), c.Param("chatID")); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"deleted": true})
}

func (h *Handler) Messages(c *gin.Context) {
	page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	out, err := h.chats.Messages(c.Request.Context(), midsec.UserID(c), c.Param("chatID"), page)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

// UploadAttachments accepts a multipart form with 1 to 5 files under the
// "files" field plus an optional "text" caption. Files land in the object
// store before the message record commits.
func (h *Handler) UploadAttachments(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		fail(c, errs.ErrBadRequest.WithDetail("multipart form expected"))
		return
	}
	files := form.File["files"]
	if len(files) < minAttachments || len(files) > maxAttachments {
		fail(c, errs.ErrBadRequest.WithDetail("between 1 and 5 files are required"))
		return
	}

	ctx := c.Request.Context()
	attachments := make([]model.Attachment, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			fail(c, errs.ErrBadRequest.WithDetail("unreadable file: "+fh.Filename))
			return
		}
		url, err := h.objects.Save(ctx, fh.Filename, f)
		f.Close()
		if err != nil {
			fail(c, err)
			return
		}
		attachments = append(attachments, model.Attachment{URL: url, Name: fh.Filename, Size: fh.Size})
	}

	text := c.PostForm("text")
	out, err := h.chats.SaveAttachmentMessage(ctx, midsec.UserID(c), c.Param("chatID"), text, attachments)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}
