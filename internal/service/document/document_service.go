package document

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/feichai0017/policy-decoder/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidQuestion = errors.New("question is empty or too long")
)

// MaxQuestionChars bounds a single chat question.
const MaxQuestionChars = 2000

// DocumentProcessor 文档处理接口
type DocumentProcessor interface {
	// Analyze extracts the upload, derives a summary and opens a session.
	Analyze(ctx context.Context, upload Upload) (*AnalysisResult, error)
	// Ask answers a question about the session's document. It refreshes the
	// session's expiry.
	Ask(ctx context.Context, sessionID, question string) (string, error)
	Touch(sessionID string) bool
	End(sessionID string) bool
	Stats() models.SessionStats
	SessionTimeout() time.Duration
}

// Upload is one file as received from the client.
type Upload struct {
	Reader    io.Reader
	Filename  string
	Size      int64
	MediaType string
	// Category is the uploader's own label, if any.
	Category string
}

// AnalysisResult 分析结果
type AnalysisResult struct {
	SessionID        string                `json:"sessionId"`
	Filename         string                `json:"filename"`
	Title            string                `json:"title,omitempty"`
	Category         models.PolicyCategory `json:"category"`
	Summary          models.PolicySummary  `json:"summary"`
	Pages            int                   `json:"pages"`
	Truncated        bool                  `json:"truncated"`
	ExpiresInSeconds int64                 `json:"expiresInSeconds"`
}
