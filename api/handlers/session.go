package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/policy-decoder/internal/service/document"
	"github.com/feichai0017/policy-decoder/pkg/logger"
)

type SessionHandler struct {
	service document.DocumentProcessor
	logger  logger.Logger
}

type ChatRequest struct {
	Question string `json:"question"`
}

type ChatResponse struct {
	SessionID string `json:"sessionId"`
	Answer    string `json:"answer"`
}

type sessionStatsResponse struct {
	ActiveSessions int                  `json:"activeSessions"`
	TimeoutSeconds int64                `json:"timeoutSeconds"`
	Sessions       []sessionIdleSummary `json:"sessions"`
}

// sessionIdleSummary never carries the session id: the id is the only
// credential for a session's document.
type sessionIdleSummary struct {
	AgeSeconds  int64 `json:"ageSeconds"`
	IdleSeconds int64 `json:"idleSeconds"`
}

func NewSessionHandler(service document.DocumentProcessor, logger logger.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		logger:  logger.Named("handlers"),
	}
}

// Chat 针对会话中的文档提问
func (h *SessionHandler) Chat(c *gin.Context) {
	sessionID := c.Param("id")

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: "Please enter a question",
		})
		return
	}

	answer, err := h.service.Ask(c.Request.Context(), sessionID, req.Question)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, ChatResponse{SessionID: sessionID, Answer: answer})
}

// Touch keeps a session alive.
func (h *SessionHandler) Touch(c *gin.Context) {
	sessionID := c.Param("id")
	if !h.service.Touch(sessionID) {
		handleError(c, h.logger, document.ErrSessionNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sessionId":        sessionID,
		"expiresInSeconds": int64(h.service.SessionTimeout().Seconds()),
	})
}

// End 结束会话
func (h *SessionHandler) End(c *gin.Context) {
	sessionID := c.Param("id")
	if !h.service.End(sessionID) {
		handleError(c, h.logger, document.ErrSessionNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": sessionID, "deleted": true})
}

// Stats reports session count and idle times without refreshing them.
func (h *SessionHandler) Stats(c *gin.Context) {
	stats := h.service.Stats()
	now := time.Now()

	resp := sessionStatsResponse{
		ActiveSessions: stats.Count,
		TimeoutSeconds: int64(stats.Timeout.Seconds()),
		Sessions:       make([]sessionIdleSummary, 0, len(stats.Sessions)),
	}
	for _, s := range stats.Sessions {
		resp.Sessions = append(resp.Sessions, sessionIdleSummary{
			AgeSeconds:  int64(now.Sub(s.CreatedAt).Seconds()),
			IdleSeconds: int64(s.Idle.Seconds()),
		})
	}

	c.JSON(http.StatusOK, resp)
}
