package handler

import (
	"strconv"

	"notes_nest/middleware"
	"notes_nest/model"
	"notes_nest/service"
	"notes_nest/utils"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userSvc *service.UserService
}

func NewUserHandler(userSvc *service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// Register 注册用户（公开路由）
func (h *UserHandler) Register(c *gin.Context) {
	var req model.UserCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	user, err := h.userSvc.Create(&req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, user)
}

// List 分页列出用户
func (h *UserHandler) List(c *gin.Context) {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	users, err := h.userSvc.List(skip, limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"users": users})
}

// Get 查看用户资料（本人或管理员）
func (h *UserHandler) Get(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, _ := middleware.GetCurrentUser(c)

	user, err := h.userSvc.Get(userID, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, user)
}

// Update 更新用户资料（本人或管理员）
func (h *UserHandler) Update(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, _ := middleware.GetCurrentUser(c)

	var req model.UserUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	user, err := h.userSvc.Update(userID, &req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, user)
}

// Delete 删除用户（管理员限定），?permanent=true 永久删除
func (h *UserHandler) Delete(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, _ := middleware.GetCurrentUser(c)
	permanent := c.Query("permanent") == "true"

	if err := h.userSvc.Delete(userID, actor, permanent); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "User deleted successfully", nil)
}

// ChangeRole 变更用户角色（管理员限定）
func (h *UserHandler) ChangeRole(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, _ := middleware.GetCurrentUser(c)

	var req model.RoleUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	user, err := h.userSvc.ChangeRole(userID, req.Role, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, user)
}

// VerifyEmail 邮箱验证（公开路由，一次性令牌）
func (h *UserHandler) VerifyEmail(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		utils.BadRequest(c, "missing verification token")
		return
	}

	if err := h.userSvc.VerifyEmail(token); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "Email verified successfully", nil)
}
