package agent

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/feichai0017/policy-decoder/internal/agent/document"
	"github.com/feichai0017/policy-decoder/internal/agent/document/pdf"
	"github.com/feichai0017/policy-decoder/internal/agent/document/text"
	"github.com/feichai0017/policy-decoder/pkg/logger"
)

// 扩展名到 MIME 类型的映射
var extToMIME = map[string]string{
	".pdf": "application/pdf",
	".txt": "text/plain",
	".md":  "text/markdown",
}

// MediaTypeForFilename maps a filename extension to a supported media type.
func MediaTypeForFilename(filename string) (string, bool) {
	mt, ok := extToMIME[strings.ToLower(filepath.Ext(filename))]
	return mt, ok
}

// ProcessorFactory is the read-only registry of document processors.
type ProcessorFactory struct {
	processors []document.Processor
	logger     logger.Logger
}

func NewProcessorFactory(logger logger.Logger) *ProcessorFactory {
	return NewProcessorFactoryWith(logger,
		pdf.NewProcessor(logger),
		text.NewProcessor(logger),
	)
}

// NewProcessorFactoryWith registers exactly the given processors.
func NewProcessorFactoryWith(logger logger.Logger, processors ...document.Processor) *ProcessorFactory {
	return &ProcessorFactory{
		processors: processors,
		logger:     logger.Named("processors"),
	}
}

// GetProcessor implements document.Resolver.
func (f *ProcessorFactory) GetProcessor(mediaType string) (document.Processor, error) {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	for _, p := range f.processors {
		if p.CanProcess(mediaType) {
			return p, nil
		}
	}

	f.logger.Warn("No processor found", logger.String("mediaType", mediaType))
	return nil, fmt.Errorf("unsupported media type: %q", mediaType)
}

// SupportedMediaTypes lists the media types the default processors accept.
func SupportedMediaTypes() []string {
	out := make([]string, 0, len(extToMIME))
	for _, mt := range extToMIME {
		out = append(out, mt)
	}
	return out
}
