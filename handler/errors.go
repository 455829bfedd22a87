package handler

import (
	"errors"
	"strconv"

	"notes_nest/service"
	"notes_nest/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleServiceError 把服务层错误映射为 HTTP 响应
// 未识别的错误按内部错误处理，不把细节透给调用方
func handleServiceError(c *gin.Context, err error) {
	var (
		validationErr *service.ValidationError
		notFoundErr   *service.NotFoundError
		permissionErr *service.PermissionError
		conflictErr   *service.ConflictError
		authErr       *service.AuthenticationError
	)

	switch {
	case errors.As(err, &validationErr):
		utils.UnprocessableEntity(c, validationErr.Message)
	case errors.As(err, &notFoundErr):
		utils.NotFound(c, notFoundErr.Message)
	case errors.As(err, &permissionErr):
		utils.Forbidden(c, permissionErr.Message)
	case errors.As(err, &conflictErr):
		utils.Conflict(c, conflictErr.Message)
	case errors.As(err, &authErr):
		utils.Unauthorized(c, authErr.Message)
	default:
		zap.L().Error("unexpected service error", zap.Error(err))
		utils.InternalServerError(c, "internal server error")
	}
}

// parseIDParam 解析路径里的数字 ID
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || value == 0 {
		utils.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(value), true
}
