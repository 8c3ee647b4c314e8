package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"record-verify/pkg/util"
)

// NewRouter 注册中间件与 /api/v1 路由
func NewRouter(mode string, h *Handler) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	r := gin.New()
	r.Use(RequestID(), Logging(), Recovery())

	v1 := r.Group("/api/v1")
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	v1.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, util.GetVersion())
	})
	h.RegisterRoutes(v1)
	return r
}
