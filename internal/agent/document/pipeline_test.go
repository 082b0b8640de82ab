package document_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/policy-decoder/internal/agent"
	"github.com/feichai0017/policy-decoder/internal/agent/document"
	"github.com/feichai0017/policy-decoder/internal/models"
	"github.com/feichai0017/policy-decoder/internal/testutil"
	"github.com/feichai0017/policy-decoder/pkg/logger"
	"github.com/feichai0017/policy-decoder/pkg/storage/local"
)

// countingResolver records how often a processor was requested.
type countingResolver struct {
	inner document.Resolver
	calls atomic.Int32
}

func (r *countingResolver) GetProcessor(mediaType string) (document.Processor, error) {
	r.calls.Add(1)
	return r.inner.GetProcessor(mediaType)
}

type panicProcessor struct{}

func (panicProcessor) CanProcess(string) bool { return true }
func (panicProcessor) FileType() models.FileType { return models.PDF }
// badTitleProcessor opens fine but its document panics on Title.
type badTitleProcessor struct{}

type badTitleDocument struct{}

func (badTitleProcessor) CanProcess(string) bool    { return true }
func (badTitleProcessor) FileType() models.FileType { return models.PDF }
func (badTitleProcessor) Open(context.Context, []byte) (document.Document, error) {
	return badTitleDocument{}, nil
}

func (badTitleDocument) NumUnits() int { return 1 }
func (badTitleDocument) Title() string { panic("loading {5 0}: found int64 instead of objdef") }
func (badTitleDocument) Fragments(context.Context, int) ([]string, error) {
	return []string{"hello"}, nil
}

func (panicProcessor) Open(context.Context, []byte) (document.Document, error) {
	panic("corrupt object stream")
}

type fixture struct {
	pipeline *document.Pipeline
	resolver *countingResolver
	storage  *local.LocalStorage
	log      *logger.TestLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewTestLogger()
	store, err := local.New(t.TempDir(), log)
	require.NoError(t, err)

	resolver := &countingResolver{inner: agent.NewProcessorFactory(log)}
	return &fixture{
		pipeline: document.NewPipeline(resolver, store, log),
		resolver: resolver,
		storage:  store,
		log:      log,
	}
}

// upload stores data and returns a document pointing at the artifact.
func (f *fixture) upload(t *testing.T, data []byte, mediaType string) *models.RawDocument {
	t.Helper()
	id, err := f.storage.Store(context.Background(), bytes.NewReader(data), "upload.bin")
	require.NoError(t, err)
	return &models.RawDocument{FileID: id, MediaType: mediaType, Size: int64(len(data)), Filename: "upload.bin"}
}

func (f *fixture) assertDeleted(t *testing.T, raw *models.RawDocument) {
	t.Helper()
	_, err := f.storage.Get(context.Background(), raw.FileID)
	assert.ErrorIs(t, err, local.ErrNotFound, "upload artifact must be removed")
}

func TestExtract_SmallText(t *testing.T) {
	f := newFixture(t)
	data := []byte("Home insurance policy. Excess: $500. Contact us.")
	require.Less(t, len(data), 51)

	raw := f.upload(t, data, "text/plain")
	out, err := f.pipeline.Extract(context.Background(), raw, document.DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, 1, out.Units)
	assert.Equal(t, string(data), out.Text)
	assert.Equal(t, models.PlainText, out.FileType)
	assert.False(t, out.Truncated)
	f.assertDeleted(t, raw)
}

func TestExtract_TooLargeIsNotParsed(t *testing.T) {
	f := newFixture(t)
	limits := document.Limits{MaxBytes: 64}

	raw := f.upload(t, bytes.Repeat([]byte("a"), 65), "text/plain")
	_, err := f.pipeline.Extract(context.Background(), raw, limits)

	require.ErrorIs(t, err, document.ErrTooLarge)
	assert.Zero(t, f.resolver.calls.Load(), "oversized input must not reach a decoder")
	f.assertDeleted(t, raw)
}

func TestExtract_TooLargeWhenDeclaredSizeLies(t *testing.T) {
	f := newFixture(t)
	limits := document.Limits{MaxBytes: 64}

	raw := f.upload(t, bytes.Repeat([]byte("a"), 200), "text/plain")
	raw.Size = 10

	_, err := f.pipeline.Extract(context.Background(), raw, limits)
	require.ErrorIs(t, err, document.ErrTooLarge)
	assert.Zero(t, f.resolver.calls.Load())
	f.assertDeleted(t, raw)
}

func TestExtract_TooComplex(t *testing.T) {
	f := newFixture(t)

	segments := make([]string, 101)
	for i := range segments {
		segments[i] = "page"
	}
	raw := f.upload(t, []byte(strings.Join(segments, "\f")), "text/plain")

	_, err := f.pipeline.Extract(context.Background(), raw, document.DefaultLimits())
	require.ErrorIs(t, err, document.ErrTooComplex)
	f.assertDeleted(t, raw)
}

func TestExtract_TooComplexPDF(t *testing.T) {
	f := newFixture(t)

	pages := make([]string, 6)
	for i := range pages {
		pages[i] = "page"
	}
	raw := f.upload(t, testutil.BuildPDF("", pages...), "application/pdf")

	_, err := f.pipeline.Extract(context.Background(), raw, document.Limits{MaxUnits: 5})
	require.ErrorIs(t, err, document.ErrTooComplex)
	f.assertDeleted(t, raw)
}

func TestExtract_InvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.pipeline.Extract(ctx, nil, document.DefaultLimits())
	assert.ErrorIs(t, err, document.ErrInvalidInput)

	_, err = f.pipeline.Extract(ctx, &models.RawDocument{}, document.DefaultLimits())
	assert.ErrorIs(t, err, document.ErrInvalidInput)

	raw := f.upload(t, []byte{}, "text/plain")
	_, err = f.pipeline.Extract(ctx, raw, document.DefaultLimits())
	assert.ErrorIs(t, err, document.ErrInvalidInput)
	f.assertDeleted(t, raw)
}

func TestExtract_UnsupportedType(t *testing.T) {
	f := newFixture(t)

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	raw := f.upload(t, png, "")

	_, err := f.pipeline.Extract(context.Background(), raw, document.DefaultLimits())
	require.ErrorIs(t, err, document.ErrInvalidInput)
	f.assertDeleted(t, raw)
}

func TestExtract_MalformedPDF(t *testing.T) {
	f := newFixture(t)

	raw := f.upload(t, []byte("%PDF-1.4\n"+strings.Repeat("garbage ", 40)), "application/pdf")
	_, err := f.pipeline.Extract(context.Background(), raw, document.DefaultLimits())

	require.ErrorIs(t, err, document.ErrMalformedDocument)
	assert.False(t, errors.Is(err, document.ErrInvalidInput))
	f.assertDeleted(t, raw)
}

func TestExtract_ParserPanicIsMalformed(t *testing.T) {
	log := logger.NewTestLogger()
	p := document.NewPipeline(agent.NewProcessorFactoryWith(log, panicProcessor{}), nil, log)

	_, err := p.Extract(context.Background(), &models.RawDocument{Data: []byte("boom"), MediaType: "application/pdf"}, document.DefaultLimits())
	assert.ErrorIs(t, err, document.ErrMalformedDocument)
}

func TestExtract_CorruptInfoObjectIsMalformed(t *testing.T) {
	f := newFixture(t)

	// object 5 is the Info dictionary; the xref still points at it
	data := bytes.Replace(testutil.BuildPDF("Title", "hello"), []byte("5 0 obj"), []byte("5 0 xbj"), 1)
	raw := f.upload(t, data, "application/pdf")

	var err error
	require.NotPanics(t, func() {
		_, err = f.pipeline.Extract(context.Background(), raw, document.DefaultLimits())
	})
	assert.ErrorIs(t, err, document.ErrMalformedDocument)
	f.assertDeleted(t, raw)
}

func TestExtract_TitlePanicIsMalformed(t *testing.T) {
	log := logger.NewTestLogger()
	p := document.NewPipeline(agent.NewProcessorFactoryWith(log, badTitleProcessor{}), nil, log)

	var err error
	require.NotPanics(t, func() {
		_, err = p.Extract(context.Background(), &models.RawDocument{Data: []byte("data"), MediaType: "application/pdf"}, document.DefaultLimits())
	})
	assert.ErrorIs(t, err, document.ErrMalformedDocument)
}

func TestExtract_StripsControlCharacters(t *testing.T) {
	f := newFixture(t)

	raw := f.upload(t, []byte("Cov\x00ered\x07: fire\u0085, flood\x1b"), "text/plain; charset=utf-8")
	out, err := f.pipeline.Extract(context.Background(), raw, document.DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, "Covered: fire, flood", out.Text)
	assert.Equal(t, "text/plain", out.MediaType)
	for _, r := range out.Text {
		assert.False(t, r < 0x20 && r != '\t' && r != '\n', "control rune %U", r)
	}
}

func TestExtract_SkipsUndecodableFragments(t *testing.T) {
	f := newFixture(t)

	raw := f.upload(t, []byte("good line\n\xff\xfe\xfd\nanother"), "text/plain")
	out, err := f.pipeline.Extract(context.Background(), raw, document.DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, "good line another", out.Text)
	assert.NotEmpty(t, f.log.EntriesAt("WARN"))
}

func TestExtract_PDF(t *testing.T) {
	f := newFixture(t)

	data := testutil.BuildPDF("Travel Cover", "Policy Schedule\nInsurer: Acme", "Excess: $250", "   ")
	raw := f.upload(t, data, "")

	out, err := f.pipeline.Extract(context.Background(), raw, document.DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, 3, out.Units)
	assert.Equal(t, "application/pdf", out.MediaType)
	assert.Equal(t, models.PDF, out.FileType)
	assert.Equal(t, "Travel Cover", out.Title)
	assert.Equal(t, "Policy Schedule Insurer: Acme\n\nExcess: $250", out.Text)
	f.assertDeleted(t, raw)
}

func TestExtract_Truncates(t *testing.T) {
	f := newFixture(t)

	raw := f.upload(t, []byte(strings.Repeat("word ", 100)), "text/plain")
	out, err := f.pipeline.Extract(context.Background(), raw, document.Limits{MaxTextBytes: 32})
	require.NoError(t, err)

	assert.True(t, out.Truncated)
	assert.LessOrEqual(t, len(out.Text), 32)
}

func TestExtract_InlineData(t *testing.T) {
	log := logger.NewNop()
	p := document.NewPipeline(agent.NewProcessorFactory(log), nil, log)

	out, err := p.Extract(context.Background(), &models.RawDocument{Data: []byte("inline text")}, document.DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, "inline text", out.Text)
}

func TestExtract_Cancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	raw := f.upload(t, []byte("some text"), "text/plain")
	_, err := f.pipeline.Extract(ctx, raw, document.DefaultLimits())

	require.ErrorIs(t, err, document.ErrInvalidInput)
	assert.ErrorIs(t, err, context.Canceled)
	f.assertDeleted(t, raw)
}
