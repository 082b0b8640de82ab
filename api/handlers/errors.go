package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	docagent "github.com/feichai0017/policy-decoder/internal/agent/document"
	"github.com/feichai0017/policy-decoder/internal/agent/llm"
	"github.com/feichai0017/policy-decoder/internal/service/document"
	"github.com/feichai0017/policy-decoder/pkg/logger"
)

const (
	msgCheckFile    = "Please check your file and try again"
	msgUploadAgain  = "Please upload your document again"
	msgTryLater     = "Please try again later"
	msgUnavailable  = "The assistant is not available right now"
	msgInternalFail = "Something went wrong, please try again"
)

// ErrorResponse 定义错误响应结构
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// statusFor maps a service error to an HTTP status and response body.
// Error text is never sent to the client.
func statusFor(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, docagent.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, ErrorResponse{Error: msgCheckFile, Message: docagent.Reason(err)}
	case errors.Is(err, docagent.ErrTooComplex), errors.Is(err, docagent.ErrMalformedDocument):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: msgCheckFile, Message: docagent.Reason(err)}
	case errors.Is(err, docagent.ErrInvalidInput):
		return http.StatusBadRequest, ErrorResponse{Error: msgCheckFile, Message: docagent.Reason(err)}
	case errors.Is(err, document.ErrSessionNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "Session not found", Message: msgUploadAgain}
	case errors.Is(err, document.ErrInvalidQuestion):
		return http.StatusBadRequest, ErrorResponse{Error: "Invalid question", Message: "Please enter a question"}
	case errors.Is(err, llm.ErrUnavailable):
		return http.StatusServiceUnavailable, ErrorResponse{Error: msgUnavailable, Message: msgTryLater}
	case errors.Is(err, llm.ErrCompletion):
		return http.StatusBadGateway, ErrorResponse{Error: "Failed to get an answer", Message: msgTryLater}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", Message: msgInternalFail}
	}
}

// handleError 统一错误处理
func handleError(c *gin.Context, log logger.Logger, err error) {
	status, body := statusFor(err)

	log = logger.FromContext(c.Request.Context(), log)
	fields := []logger.Field{
		logger.String("path", c.FullPath()),
		logger.Int("status", status),
		logger.Error(err),
	}
	if status >= http.StatusInternalServerError {
		log.Error(body.Error, fields...)
	} else {
		log.Info(body.Error, fields...)
	}

	c.AbortWithStatusJSON(status, body)
}
