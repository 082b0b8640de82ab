package pdf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/policy-decoder/internal/agent/document"
	"github.com/feichai0017/policy-decoder/internal/testutil"
	"github.com/feichai0017/policy-decoder/pkg/logger"
)

func TestProcessor_CanProcess(t *testing.T) {
	p := NewProcessor(logger.NewNop())
	assert.True(t, p.CanProcess("application/pdf"))
	assert.False(t, p.CanProcess("text/plain"))
}

func TestProcessor_OpenAndFragments(t *testing.T) {
	ctx := context.Background()
	p := NewProcessor(logger.NewNop())

	data := testutil.BuildPDF("Home Policy", "Policy Schedule\nInsurer: Acme", "Excess: $500")
	doc, err := p.Open(ctx, data)
	require.NoError(t, err)

	assert.Equal(t, 2, doc.NumUnits())
	assert.Equal(t, "Home Policy", doc.Title())

	first, err := doc.Fragments(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Policy Schedule", "Insurer: Acme"}, first)

	second, err := doc.Fragments(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Excess: $500"}, second)
}

func TestProcessor_NoTitle(t *testing.T) {
	doc, err := NewProcessor(logger.NewNop()).Open(context.Background(), testutil.BuildPDF("", "text"))
	require.NoError(t, err)
	assert.Equal(t, "", doc.Title())
}

func TestProcessor_OpenMalformed(t *testing.T) {
	p := NewProcessor(logger.NewNop())

	_, err := p.Open(context.Background(), []byte("%PDF-1.4\nthis is not really a pdf at all"))
	assert.ErrorIs(t, err, document.ErrMalformedDocument)

	_, err = p.Open(context.Background(), []byte("plain words"))
	assert.ErrorIs(t, err, document.ErrMalformedDocument)
}

func TestProcessor_OpenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProcessor(logger.NewNop()).Open(ctx, testutil.BuildPDF("", "x"))
	assert.ErrorIs(t, err, context.Canceled)
}
