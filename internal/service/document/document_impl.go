package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	docagent "github.com/feichai0017/policy-decoder/internal/agent/document"
	"github.com/feichai0017/policy-decoder/internal/agent/llm"
	"github.com/feichai0017/policy-decoder/internal/models"
	"github.com/feichai0017/policy-decoder/internal/session"
	"github.com/feichai0017/policy-decoder/pkg/logger"
	"github.com/feichai0017/policy-decoder/pkg/storage"
)

// Extractor is the ingestion step, satisfied by *docagent.Pipeline.
type Extractor interface {
	Extract(ctx context.Context, raw *models.RawDocument, limits docagent.Limits) (models.ExtractedText, error)
}

type ServiceConfig struct {
	Limits docagent.Limits
}

type DocumentService struct {
	pipeline  Extractor
	sessions  *session.Store
	storage   storage.Storage
	completer llm.Completer
	logger    logger.Logger
	config    *ServiceConfig
}

var _ DocumentProcessor = (*DocumentService)(nil)

func NewService(
	pipeline Extractor,
	sessions *session.Store,
	uploads storage.Storage,
	completer llm.Completer,
	log logger.Logger,
	cfg *ServiceConfig,
) *DocumentService {
	var c ServiceConfig
	if cfg != nil {
		c = *cfg
	}
	c.Limits = c.Limits.WithDefaults()
	if completer == nil {
		completer = llm.Disabled{}
	}
	return &DocumentService{
		pipeline:  pipeline,
		sessions:  sessions,
		storage:   uploads,
		completer: completer,
		logger:    log.Named("document"),
		config:    &c,
	}
}

// Analyze 分析上传的文档. The upload is written to temp storage, extracted
// (which deletes the temp artifact) and kept in a new session.
func (s *DocumentService) Analyze(ctx context.Context, upload Upload) (*AnalysisResult, error) {
	log := logger.FromContext(ctx, s.logger)
	filename := filepath.Base(upload.Filename)

	log.Info("Starting document analysis",
		logger.String("filename", filename),
		logger.Int64("size", upload.Size),
	)

	if upload.Reader == nil {
		return nil, fmt.Errorf("%w: no file", docagent.ErrInvalidInput)
	}
	if upload.Size > s.config.Limits.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes", docagent.ErrTooLarge, upload.Size)
	}

	// 存储文件
	reader := io.LimitReader(upload.Reader, s.config.Limits.MaxBytes+1)
	fileID, err := s.storage.Store(ctx, reader, filename)
	if err != nil {
		log.Error("Failed to store upload", logger.Error(err))
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	extracted, err := s.pipeline.Extract(ctx, &models.RawDocument{
		FileID:    fileID,
		MediaType: upload.MediaType,
		Size:      upload.Size,
		Filename:  filename,
	}, s.config.Limits)
	if err != nil {
		log.Warn("Document rejected",
			logger.String("filename", filename),
			logger.String("reason", docagent.Reason(err)),
			logger.Error(err),
		)
		return nil, err
	}

	category, summary := s.summarize(ctx, log, extracted.Text, upload.Category)

	id := s.sessions.Put(models.SessionPayload{
		Document: extracted,
		Filename: filename,
		Category: category,
		Summary:  summary,
	})

	log.Info("Document analysis completed",
		logger.String("sessionId", id),
		logger.Int("pages", extracted.Units),
		logger.Bool("truncated", extracted.Truncated),
	)

	return &AnalysisResult{
		SessionID:        id,
		Filename:         filename,
		Title:            extracted.Title,
		Category:         category,
		Summary:          summary,
		Pages:            extracted.Units,
		Truncated:        extracted.Truncated,
		ExpiresInSeconds: int64(s.SessionTimeout().Seconds()),
	}, nil
}

// summarize never fails: without a usable completion the session still
// opens with the uploader's category and an empty summary.
func (s *DocumentService) summarize(ctx context.Context, log logger.Logger, text, declared string) (models.PolicyCategory, models.PolicySummary) {
	category := models.CategoryOther
	if declared = strings.TrimSpace(declared); declared != "" {
		category = models.ParseCategory(declared)
	}
	empty := normalizeSummary(models.PolicySummary{})

	if strings.TrimSpace(text) == "" {
		return category, empty
	}

	reply, err := s.completer.Complete(ctx, llm.Request{
		System: summarySystemPrompt,
		Prompt: buildSummaryPrompt(text),
	})
	if err != nil {
		if errors.Is(err, llm.ErrUnavailable) {
			log.Debug("Summary skipped, no completion provider")
		} else {
			log.Warn("Summary completion failed", logger.Error(err))
		}
		return category, empty
	}

	derived, summary, err := parseSummary(reply)
	if err != nil {
		log.Warn("Summary reply was not usable", logger.Error(err))
		return category, empty
	}
	if declared == "" {
		category = derived
	}
	return category, summary
}

// Ask 回答关于会话文档的问题
func (s *DocumentService) Ask(ctx context.Context, sessionID, question string) (string, error) {
	log := logger.FromContext(ctx, s.logger).With(logger.String("sessionId", sessionID))

	question = strings.TrimSpace(question)
	if question == "" || utf8.RuneCountInString(question) > MaxQuestionChars {
		return "", ErrInvalidQuestion
	}

	record, ok := s.sessions.Get(sessionID)
	if !ok {
		log.Info("Chat for unknown or expired session")
		return "", ErrSessionNotFound
	}

	answer, err := s.completer.Complete(ctx, llm.Request{
		System: chatSystemPrompt,
		Prompt: buildChatPrompt(record.Payload, question),
	})
	if err != nil {
		return "", err
	}

	log.Info("Question answered",
		logger.Int("questionChars", utf8.RuneCountInString(question)),
		logger.Int("answerChars", utf8.RuneCountInString(answer)),
	)
	return answer, nil
}

// Touch keeps a session alive without reading it.
func (s *DocumentService) Touch(sessionID string) bool {
	return s.sessions.Touch(sessionID)
}

// End removes a session immediately.
func (s *DocumentService) End(sessionID string) bool {
	return s.sessions.Delete(sessionID)
}

// SessionTimeout is how long a session survives without access.
func (s *DocumentService) SessionTimeout() time.Duration {
	return s.sessions.Timeout()
}

func (s *DocumentService) Stats() models.SessionStats {
	return s.sessions.Stats()
}
