// Package text decodes plain text uploads. Form feeds separate units and
// lines are fragments.
package text

import (
	"bytes"
	"context"
	"strings"

	"github.com/feichai0017/policy-decoder/internal/agent/document"
	"github.com/feichai0017/policy-decoder/internal/models"
	"github.com/feichai0017/policy-decoder/pkg/logger"
)

var mediaTypes = map[string]struct{}{
	"text/plain":    {},
	"text/markdown": {},
}

type Processor struct {
	logger logger.Logger
}

func NewProcessor(logger logger.Logger) *Processor {
	return &Processor{logger: logger.Named("text")}
}

func (p *Processor) CanProcess(mimeType string) bool {
	_, ok := mediaTypes[mimeType]
	return ok
}

func (p *Processor) FileType() models.FileType {
	return models.PlainText
}

func (p *Processor) Open(ctx context.Context, data []byte) (document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	segments := bytes.Split(data, []byte{'\f'})
	p.logger.Debug("Opened text", logger.Int("segments", len(segments)))
	return textDocument(segments), nil
}

type textDocument [][]byte

func (d textDocument) NumUnits() int { return len(d) }

func (d textDocument) Title() string { return "" }

// Fragments returns the non-blank lines of segment i, undecoded.
func (d textDocument) Fragments(_ context.Context, i int) ([]string, error) {
	lines := bytes.Split(d[i], []byte{'\n'})
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if s := strings.TrimSpace(string(line)); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
