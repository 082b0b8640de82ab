package text

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/policy-decoder/pkg/logger"
)

func TestProcessor_Segments(t *testing.T) {
	ctx := context.Background()
	p := NewProcessor(logger.NewNop())

	assert.True(t, p.CanProcess("text/plain"))
	assert.False(t, p.CanProcess("application/pdf"))

	doc, err := p.Open(ctx, []byte("first line\r\n\n  second line \fnext page"))
	require.NoError(t, err)
	assert.Equal(t, 2, doc.NumUnits())
	assert.Empty(t, doc.Title())

	frags, err := doc.Fragments(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"first line", "second line"}, frags)

	frags, err = doc.Fragments(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"next page"}, frags)
}

func TestProcessor_InvalidUTF8IsPassedThrough(t *testing.T) {
	doc, err := NewProcessor(logger.NewNop()).Open(context.Background(), []byte("ok\n\xff\xfe\n"))
	require.NoError(t, err)

	frags, err := doc.Fragments(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok", "\xff\xfe"}, frags)
}
