package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"record-verify/pkg/model"
	"record-verify/pkg/service"
	"record-verify/pkg/source"
)

// Handler 单文档与批量校验接口
type Handler struct {
	Validator *service.Validator
	Batches   *service.BatchCoordinator
	Source    source.Source
}

func NewHandler(v *service.Validator, b *service.BatchCoordinator, src source.Source) *Handler {
	return &Handler{Validator: v, Batches: b, Source: src}
}

func (h *Handler) RegisterRoutes(rg gin.IRouter) {
	docs := rg.Group("/documents/:id")
	docs.POST("/validate", h.startDocument)
	docs.GET("/result", h.documentResult)
	docs.POST("/cancel", h.cancelDocument)

	rg.POST("/batches", h.startBatch)
	batches := rg.Group("/batches/:id")
	batches.GET("", h.batchResult)
	batches.POST("/cancel", h.cancelBatch)
}

func (h *Handler) startDocument(c *gin.Context) {
	id := c.Param("id")
	if err := h.Validator.Start(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrDocumentNotFound):
			respondError(c, http.StatusNotFound, "not_found", "문서를 찾을 수 없습니다", gin.H{"documentId": id})
		case errors.Is(err, service.ErrAlreadyRunning):
			respondError(c, http.StatusConflict, "already_running", "이미 검증 중인 문서입니다", gin.H{"documentId": id})
		default:
			respondError(c, http.StatusInternalServerError, "internal", err.Error(), nil)
		}
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"documentId": id, "status": model.StatusPending})
}

func (h *Handler) documentResult(c *gin.Context) {
	id := c.Param("id")
	res, ok := h.Validator.GetResult(id)
	if !ok {
		respondError(c, http.StatusNotFound, "not_found", "검증 결과가 없습니다", gin.H{"documentId": id})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) cancelDocument(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.Validator.GetResult(id); !ok {
		respondError(c, http.StatusNotFound, "not_found", "검증 결과가 없습니다", gin.H{"documentId": id})
		return
	}
	if !h.Validator.Cancel(id) {
		respondError(c, http.StatusConflict, "not_cancellable", "이미 종료된 검증입니다", gin.H{"documentId": id})
		return
	}
	c.JSON(http.StatusOK, gin.H{"documentId": id, "cancelled": true})
}

func (h *Handler) startBatch(c *gin.Context) {
	var opts model.BatchOptions
	if err := c.ShouldBindJSON(&opts); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, "invalid_request", "요청 형식이 올바르지 않습니다", err.Error())
		return
	}
	docs, err := h.Source.List(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal", err.Error(), nil)
		return
	}
	id, err := h.Batches.StartBatch(c.Request.Context(), docs, opts)
	if err != nil {
		if errors.Is(err, service.ErrEmptyBatch) {
			respondError(c, http.StatusBadRequest, "empty_batch", "검증할 문서가 없습니다", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "internal", err.Error(), nil)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"batchId": id})
}

func (h *Handler) batchResult(c *gin.Context) {
	id := c.Param("id")
	res, ok := h.Batches.GetBatchResult(id)
	if !ok {
		respondError(c, http.StatusNotFound, "not_found", "배치를 찾을 수 없습니다", gin.H{"batchId": id})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) cancelBatch(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.Batches.GetBatchResult(id); !ok {
		respondError(c, http.StatusNotFound, "not_found", "배치를 찾을 수 없습니다", gin.H{"batchId": id})
		return
	}
	if !h.Batches.CancelBatch(id) {
		respondError(c, http.StatusConflict, "not_cancellable", "이미 종료된 배치입니다", gin.H{"batchId": id})
		return
	}
	c.JSON(http.StatusOK, gin.H{"batchId": id, "cancelled": true})
}
