package handler

import (
	"strings"

	"notes_nest/service"
	"notes_nest/utils"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authSvc *service.AuthService
}

func NewAuthHandler(authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Login 表单登录，username 字段填邮箱
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `form:"username" binding:"required"`
		Password string `form:"password" binding:"required"`
	}
	if err := c.ShouldBind(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	tokens, err := h.authSvc.Login(req.Username, req.Password)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, tokens)
}

// Refresh 用 refresh token 换新令牌对
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	tokens, err := h.authSvc.Refresh(req.RefreshToken)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, tokens)
}

// Logout 将当前 access token 拉黑
func (h *AuthHandler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		utils.BadRequest(c, "invalid authorization header")
		return
	}

	if err := h.authSvc.Logout(c, parts[1]); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "Logged out", nil)
}
