package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorBody 统一的错误结构
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func respondError(c *gin.Context, status int, code, message string, details interface{}) {
	zap.S().Warnw("请求失败",
		"status", status,
		"code", code,
		"message", message,
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"request_id", c.GetString(requestIDKey),
	)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{Code: code, Message: message, Details: details},
	})
}
