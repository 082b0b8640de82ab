package handlers

import (
	"github.com/feichai0017/policy-decoder/internal/service/document"
	"github.com/feichai0017/policy-decoder/internal/utils/validator"
	"github.com/feichai0017/policy-decoder/pkg/logger"
)

type Handlers struct {
	Document *DocumentHandler
	Session  *SessionHandler
	Health   *HealthHandler
}

func NewHandlers(
	documentService document.DocumentProcessor,
	uploadValidator *validator.DocumentValidator,
	maxUploadBytes int64,
	logger logger.Logger,
) *Handlers {
	return &Handlers{
		Document: NewDocumentHandler(documentService, uploadValidator, maxUploadBytes, logger),
		Session:  NewSessionHandler(documentService, logger),
		Health:   NewHealthHandler(documentService),
	}
}
