package document

import (
	"context"

	"github.com/feichai0017/policy-decoder/internal/models"
)

// Processor 文档处理器接口
type Processor interface {
	// CanProcess reports whether the processor handles the media type
	// (parameters already stripped).
	CanProcess(mediaType string) bool

	FileType() models.FileType

	// Open parses data far enough to know the unit count. It must not do any
	// per-unit text extraction.
	Open(ctx context.Context, data []byte) (Document, error)
}

// Document is a parsed document whose units can be read independently and
// concurrently.
type Document interface {
	NumUnits() int

	// Title is the raw title from document metadata, or "".
	Title() string

	// Fragments returns the raw text fragments of unit i (0-based). Fragments
	// may be invalid UTF-8; the pipeline skips those.
	Fragments(ctx context.Context, i int) ([]string, error)
}

// Resolver looks up the processor for a media type.
type Resolver interface {
	GetProcessor(mediaType string) (Processor, error)
}
