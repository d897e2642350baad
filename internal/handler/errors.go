package handler

import (
	"errors"
	"strconv"

	"teamflow/internal/service"
	"teamflow/pkg/logger"
	"teamflow/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeError 将业务错误映射为统一响应
func writeError(c *gin.Context, err error) {
	msg := service.PublicMessage(err)
	switch {
	case errors.Is(err, service.ErrValidation):
		response.BadRequest(c, msg)
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, msg)
	case errors.Is(err, service.ErrUnauthorized):
		response.Unauthorized(c, msg)
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, msg)
	default:
		logger.Error("请求处理失败", zap.String("path", c.FullPath()), zap.Error(err))
		response.ErrorWithDetails(c, 500, msg, err)
	}
}

// paramID 解析路径中的数字ID
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
