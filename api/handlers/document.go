package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/policy-decoder/internal/service/document"
	"github.com/feichai0017/policy-decoder/internal/utils/validator"
	"github.com/feichai0017/policy-decoder/pkg/logger"
)

// multipartOverhead is allowed on top of the file size for boundaries and
// other form fields.
const multipartOverhead = 1 << 20

type DocumentHandler struct {
	service   document.DocumentProcessor
	validator *validator.DocumentValidator
	maxBody   int64
	logger    logger.Logger
}

func NewDocumentHandler(service document.DocumentProcessor, v *validator.DocumentValidator, maxUploadBytes int64, logger logger.Logger) *DocumentHandler {
	return &DocumentHandler{
		service:   service,
		validator: v,
		maxBody:   maxUploadBytes + multipartOverhead,
		logger:    logger.Named("handlers"),
	}
}

// AnalyzeDocument 上传并分析文档
func (h *DocumentHandler) AnalyzeDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{
				Error:   msgCheckFile,
				Message: "The file is too large.",
			})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Error:   "No file uploaded",
			Message: "Please choose a file to upload",
		})
		return
	}

	result, err := h.validator.ValidateFile(header)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	if !result.IsValid {
		status := http.StatusBadRequest
		if result.HasCode(validator.CodeFileTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.AbortWithStatusJSON(status, ErrorResponse{
			Error:   msgCheckFile,
			Message: result.Errors[0].Message,
			Details: result.Errors,
		})
		return
	}

	logger.FromContext(c.Request.Context(), h.logger).Info("Upload accepted",
		logger.String("filename", result.FileInfo.Filename),
		logger.Int64("size", result.FileInfo.Size),
		logger.String("sha256", result.FileInfo.Hash),
	)

	file, err := header.Open()
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	defer file.Close()

	analysis, err := h.service.Analyze(c.Request.Context(), document.Upload{
		Reader:    file,
		Filename:  result.FileInfo.Filename,
		Size:      result.FileInfo.Size,
		MediaType: result.FileInfo.MimeType,
		Category:  c.PostForm("insuranceType"),
	})
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, analysis)
}
