package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/policy-decoder/internal/service/document"
)

type HealthHandler struct {
	service document.DocumentProcessor
}

func NewHealthHandler(service document.DocumentProcessor) *HealthHandler {
	return &HealthHandler{service: service}
}

func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"activeSessions": h.service.Stats().Count,
	})
}
