package handler

import (
	"strconv"

	"notes_nest/middleware"
	"notes_nest/model"
	"notes_nest/service"
	"notes_nest/utils"

	"github.com/gin-gonic/gin"
)

type NoteHandler struct {
	noteSvc *service.NoteService
}

func NewNoteHandler(noteSvc *service.NoteService) *NoteHandler {
	return &NoteHandler{noteSvc: noteSvc}
}

// Create 创建笔记，创建者自动成为第一作者
func (h *NoteHandler) Create(c *gin.Context) {
	user, _ := middleware.GetCurrentUser(c)

	var req model.NoteCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	note, err := h.noteSvc.Create(&req, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	authors, err := h.noteSvc.Authors(note.ID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, noteRead(note, authors))
}

// List 列出笔记，匿名只能看到 public
func (h *NoteHandler) List(c *gin.Context) {
	user, _ := middleware.GetCurrentUser(c)

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	privacy := parsePrivacyQuery(c)

	var creatorID *uint
	if raw := c.Query("creator_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			v := uint(id)
			creatorID = &v
		}
	}

	notes, err := h.noteSvc.List(skip, limit, privacy, creatorID, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, notes)
}

// ListMy 列出当前用户参与的笔记
// 路径能命中可选认证的 /notes/{id} 模式，匿名请求会走到这里，必须显式拦截
func (h *NoteHandler) ListMy(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		utils.Unauthorized(c, "Missing authentication token")
		return
	}

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	privacy := parsePrivacyQuery(c)

	notes, err := h.noteSvc.ListMy(user.ID, skip, limit, privacy)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, notes)
}

// Get 查看笔记详情（含作者列表）
func (h *NoteHandler) Get(c *gin.Context) {
	user, _ := middleware.GetCurrentUser(c)

	noteID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	note, err := h.noteSvc.CheckAccess(noteID, user, service.ActionView)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	authors, err := h.noteSvc.Authors(note.ID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, noteRead(note, authors))
}

// Update 更新笔记（作者或管理员）
func (h *NoteHandler) Update(c *gin.Context) {
	user, _ := middleware.GetCurrentUser(c)

	noteID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := h.noteSvc.CheckAccess(noteID, user, service.ActionEdit); err != nil {
		handleServiceError(c, err)
		return
	}

	var req model.NoteUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	note, err := h.noteSvc.Update(noteID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	authors, err := h.noteSvc.Authors(note.ID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, noteRead(note, authors))
}

// Delete 删除笔记（仅创建者或管理员），?permanent=true 永久删除
func (h *NoteHandler) Delete(c *gin.Context) {
	user, _ := middleware.GetCurrentUser(c)

	noteID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := h.noteSvc.CheckAccess(noteID, user, service.ActionDelete); err != nil {
		handleServiceError(c, err)
		return
	}

	permanent := c.Query("permanent") == "true"
	if err := h.noteSvc.Delete(noteID, permanent); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "Note deleted successfully", nil)
}

// Authors 查看笔记作者列表（有 view 权限即可）
func (h *NoteHandler) Authors(c *gin.Context) {
	user, _ := middleware.GetCurrentUser(c)

	noteID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := h.noteSvc.CheckAccess(noteID, user, service.ActionView); err != nil {
		handleServiceError(c, err)
		return
	}

	authors, err := h.noteSvc.Authors(noteID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"authors": authors})
}

// AddAuthor 添加作者（作者或管理员）
func (h *NoteHandler) AddAuthor(c *gin.Context) {
	user, _ := middleware.GetCurrentUser(c)

	noteID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := h.noteSvc.CheckAccess(noteID, user, service.ActionManageAuthors); err != nil {
		handleServiceError(c, err)
		return
	}

	var req model.AddAuthorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if err := h.noteSvc.AddAuthor(noteID, req.UserID, user); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "Author added successfully", nil)
}

// RemoveAuthor 移除作者（作者或管理员），不允许移除最后一个作者
func (h *NoteHandler) RemoveAuthor(c *gin.Context) {
	user, _ := middleware.GetCurrentUser(c)

	noteID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := h.noteSvc.CheckAccess(noteID, user, service.ActionManageAuthors); err != nil {
		handleServiceError(c, err)
		return
	}

	var req model.RemoveAuthorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if err := h.noteSvc.RemoveAuthor(noteID, req.UserID); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "Author removed successfully", nil)
}

// TransferOwnership 转移创建者身份（仅创建者或管理员）
func (h *NoteHandler) TransferOwnership(c *gin.Context) {
	user, _ := middleware.GetCurrentUser(c)

	noteID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req model.TransferOwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if err := h.noteSvc.TransferOwnership(noteID, req.NewCreatorID, user); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "Ownership transferred successfully", nil)
}

func noteRead(note *model.Note, authors []model.AuthorInfo) *model.NoteRead {
	return &model.NoteRead{
		ID:              note.ID,
		Title:           note.Title,
		Content:         note.Content,
		Privacy:         note.Privacy,
		CreatedAt:       note.CreatedAt,
		UpdatedAt:       note.UpdatedAt,
		CreatedByUserID: note.CreatedByUserID,
		Authors:         authors,
	}
}

func parsePrivacyQuery(c *gin.Context) *model.NotePrivacy {
	switch model.NotePrivacy(c.Query("privacy")) {
	case model.NotePrivate:
		v := model.NotePrivate
		return &v
	case model.NotePublic:
		v := model.NotePublic
		return &v
	default:
		return nil
	}
}
