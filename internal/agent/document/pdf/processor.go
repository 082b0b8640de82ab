package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/feichai0017/policy-decoder/internal/agent/document"
	"github.com/feichai0017/policy-decoder/internal/models"
	"github.com/feichai0017/policy-decoder/pkg/logger"
)

const MediaType = "application/pdf"

type Processor struct {
	logger logger.Logger
}

func NewProcessor(logger logger.Logger) *Processor {
	return &Processor{
		logger: logger.Named("pdf"),
	}
}

func (p *Processor) CanProcess(mimeType string) bool {
	return mimeType == MediaType
}

func (p *Processor) FileType() models.FileType {
	return models.PDF
}

// Open reads the cross-reference table and trailer only; page content is
// decoded later, one page at a time.
func (p *Processor) Open(ctx context.Context, data []byte) (document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// bytes.Reader 实现了 io.ReaderAt
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", document.ErrMalformedDocument, err)
	}

	pages := pdfReader.NumPage()
	if pages < 0 {
		return nil, fmt.Errorf("%w: negative page count", document.ErrMalformedDocument)
	}

	// resolving Info may panic on a corrupt object; callers of Open recover
	title := readTitle(pdfReader)

	p.logger.Debug("Opened PDF", logger.Int("pages", pages))
	return &pdfDocument{reader: pdfReader, pages: pages, title: title}, nil
}

func readTitle(r *pdf.Reader) string {
	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return ""
	}
	return info.Key("Title").Text()
}

type pdfDocument struct {
	reader *pdf.Reader
	pages  int
	title  string
}

func (d *pdfDocument) NumUnits() int {
	return d.pages
}

func (d *pdfDocument) Title() string {
	return d.title
}

// Fragments returns the text lines of page i+1.
func (d *pdfDocument) Fragments(ctx context.Context, i int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page := d.reader.Page(i + 1)
	if page.V.IsNull() {
		return nil, nil
	}

	text, err := page.GetPlainText(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get text from page %d: %w", i+1, err)
	}

	lines := strings.Split(text, "\n")
	fragments := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			fragments = append(fragments, line)
		}
	}
	return fragments, nil
}
