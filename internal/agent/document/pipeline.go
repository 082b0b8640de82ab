package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/feichai0017/policy-decoder/internal/models"
	"github.com/feichai0017/policy-decoder/pkg/converters"
	"github.com/feichai0017/policy-decoder/pkg/logger"
	"github.com/feichai0017/policy-decoder/pkg/storage"
)

const defaultUnitWorkers = 4

// Pipeline turns an untrusted upload into sanitized, size-capped text.
// It holds no per-call state and is safe for concurrent use.
type Pipeline struct {
	processors Resolver
	storage    storage.Storage
	converter  converters.DocumentConverter
	logger     logger.Logger
	workers    int
}

type PipelineOption func(*Pipeline)

// WithUnitWorkers bounds how many units are decoded concurrently.
func WithUnitWorkers(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithConverter(c converters.DocumentConverter) PipelineOption {
	return func(p *Pipeline) {
		p.converter = c
	}
}

// NewPipeline creates a pipeline. store may be nil when every document
// carries its bytes inline.
func NewPipeline(processors Resolver, store storage.Storage, log logger.Logger, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		processors: processors,
		storage:    store,
		converter:  converters.NewTextConverter(),
		logger:     log.Named("pipeline"),
		workers:    defaultUnitWorkers,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Extract validates, decodes and sanitizes raw. The backing artifact named
// by raw.FileID is deleted before Extract returns, whatever the outcome.
func (p *Pipeline) Extract(ctx context.Context, raw *models.RawDocument, limits Limits) (models.ExtractedText, error) {
	log := logger.FromContext(ctx, p.logger)
	limits = limits.WithDefaults()

	if raw != nil && raw.FileID != "" {
		defer p.cleanup(ctx, log, raw.FileID)
	}

	if !raw.HasContent() {
		return models.ExtractedText{}, fmt.Errorf("%w: empty document", ErrInvalidInput)
	}

	size := raw.Size
	if size == 0 && raw.FileID == "" {
		size = int64(len(raw.Data))
	}
	if size <= 0 {
		return models.ExtractedText{}, fmt.Errorf("%w: empty document", ErrInvalidInput)
	}
	if size > limits.MaxBytes {
		log.Warn("Rejected oversized document",
			logger.Int64("size", size),
			logger.Int64("maxBytes", limits.MaxBytes),
		)
		return models.ExtractedText{}, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, size, limits.MaxBytes)
	}

	data, err := p.load(ctx, raw, limits.MaxBytes)
	if err != nil {
		return models.ExtractedText{}, err
	}
	if len(data) == 0 {
		return models.ExtractedText{}, fmt.Errorf("%w: empty document", ErrInvalidInput)
	}

	mediaType := resolveMediaType(raw.MediaType, data)
	proc, err := p.processors.GetProcessor(mediaType)
	if err != nil {
		return models.ExtractedText{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	doc, err := open(ctx, proc, data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.ExtractedText{}, aborted(ctxErr)
		}
		log.Warn("Failed to parse document",
			logger.String("mediaType", mediaType),
			logger.Error(err),
		)
		return models.ExtractedText{}, err
	}

	units := doc.NumUnits()
	if units > limits.MaxUnits {
		log.Warn("Rejected complex document",
			logger.Int("units", units),
			logger.Int("maxUnits", limits.MaxUnits),
		)
		return models.ExtractedText{}, fmt.Errorf("%w: %d pages, limit %d", ErrTooComplex, units, limits.MaxUnits)
	}

	chunks, err := p.decodeUnits(ctx, log, doc, units)
	if err != nil {
		return models.ExtractedText{}, err
	}

	text, truncated := p.converter.Convert(chunks, limits.MaxTextBytes)
	if truncated {
		log.Info("Truncated extracted text", logger.Int("maxTextBytes", limits.MaxTextBytes))
	}

	rawTitle, err := title(doc)
	if err != nil {
		log.Warn("Failed to read document title", logger.Error(err))
		return models.ExtractedText{}, err
	}
	docTitle, _ := converters.TruncateUTF8(strings.TrimSpace(Sanitize(validUTF8(rawTitle))), 512)

	log.Info("Extracted document",
		logger.String("mediaType", mediaType),
		logger.Int("units", units),
		logger.Int("textBytes", len(text)),
	)

	return models.ExtractedText{
		Text:      text,
		Units:     units,
		MediaType: mediaType,
		FileType:  proc.FileType(),
		Title:     docTitle,
		Truncated: truncated,
	}, nil
}

// load returns the document bytes, reading at most maxBytes+1 from storage.
func (p *Pipeline) load(ctx context.Context, raw *models.RawDocument, maxBytes int64) ([]byte, error) {
	if len(raw.Data) > 0 {
		if int64(len(raw.Data)) > maxBytes {
			return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(raw.Data), maxBytes)
		}
		return raw.Data, nil
	}
	if p.storage == nil {
		return nil, fmt.Errorf("%w: no storage for file %s", ErrInvalidInput, raw.FileID)
	}

	rc, err := p.storage.Get(ctx, raw.FileID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, aborted(ctxErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read upload: %w", ErrInvalidInput, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxBytes)
	}
	return data, nil
}

// decodeUnits reads every unit concurrently and keeps unit order.
func (p *Pipeline) decodeUnits(ctx context.Context, log logger.Logger, doc Document, units int) ([]models.DocumentChunk, error) {
	chunks := make([]models.DocumentChunk, units)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := 0; i < units; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			raw, err := fragments(gctx, doc, i)
			if err != nil {
				if errors.Is(err, ErrMalformedDocument) {
					return err
				}
				if gctx.Err() != nil {
					return gctx.Err()
				}
				// an unreadable page is skipped like an undecodable fragment
				log.Warn("Skipped unreadable page",
					logger.Int("unit", i+1),
					logger.Error(err),
				)
				chunks[i] = models.DocumentChunk{Unit: i + 1}
				return nil
			}

			clean := make([]string, 0, len(raw))
			for j, f := range raw {
				if !utf8.ValidString(f) {
					log.Warn("Skipped undecodable fragment",
						logger.Int("unit", i+1),
						logger.Int("fragment", j),
					)
					continue
				}
				if s := Sanitize(f); s != "" {
					clean = append(clean, s)
				}
			}
			chunks[i] = models.DocumentChunk{Unit: i + 1, Fragments: clean}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrMalformedDocument) {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, aborted(ctxErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	return chunks, nil
}

func (p *Pipeline) cleanup(ctx context.Context, log logger.Logger, fileID string) {
	if p.storage == nil {
		return
	}
	if err := p.storage.Delete(context.WithoutCancel(ctx), fileID); err != nil {
		log.Warn("Failed to delete upload",
			logger.String("fileId", fileID),
			logger.Error(err),
		)
	}
}

// open calls proc.Open and turns parser panics into ErrMalformedDocument.
func open(ctx context.Context, proc Processor, data []byte) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("%w: %v", ErrMalformedDocument, r)
		}
	}()

	doc, err = proc.Open(ctx, data)
	if err != nil && !errors.Is(err, ErrMalformedDocument) {
		err = fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	return doc, err
}

func fragments(ctx context.Context, doc Document, i int) (out []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: page %d: %v", ErrMalformedDocument, i+1, r)
		}
	}()
	return doc.Fragments(ctx, i)
}

func title(doc Document) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("%w: title: %v", ErrMalformedDocument, r)
		}
	}()
	return doc.Title(), nil
}

// aborted reports a cancelled extraction as invalid input.
func aborted(err error) error {
	return fmt.Errorf("%w: extraction aborted: %w", ErrInvalidInput, err)
}

// resolveMediaType strips parameters from the declared type and sniffs the
// content when nothing useful was declared.
func resolveMediaType(declared string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return strings.ToLower(mt)
	}
	mt, _, err := mime.ParseMediaType(http.DetectContentType(data))
	if err != nil {
		return "application/octet-stream"
	}
	return mt
}

func validUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "")
}
