package converters

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/feichai0017/policy-decoder/internal/models"
)

func TestTextConverter_Convert(t *testing.T) {
	c := NewTextConverter()

	chunks := []models.DocumentChunk{
		{Unit: 1, Fragments: []string{"Policy", "", "Schedule"}},
		{Unit: 2, Fragments: []string{"Excess:", "$500"}},
		{Unit: 3, Fragments: nil},
	}

	text, truncated := c.Convert(chunks, 0)
	assert.False(t, truncated)
	assert.Equal(t, "Policy Schedule\n\nExcess: $500", text)
}

func TestTextConverter_ConvertTrims(t *testing.T) {
	c := NewTextConverter()
	text, _ := c.Convert([]models.DocumentChunk{{Fragments: []string{"  padded  "}}}, 0)
	assert.Equal(t, "padded", text)
}

func TestTruncateUTF8(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		max       int
		want      string
		truncated bool
	}{
		{"fits", "hello", 10, "hello", false},
		{"exact", "hello", 5, "hello", false},
		{"ascii", "hello world", 7, "hello w", true},
		{"rune boundary", "ab€cd", 4, "ab", true},
		{"trailing space", "hello world", 6, "hello", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, truncated := TruncateUTF8(tt.in, tt.max)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.truncated, truncated)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestTextConverter_ConvertRespectsLimit(t *testing.T) {
	c := NewTextConverter()
	long := strings.Repeat("é", 100)

	text, truncated := c.Convert([]models.DocumentChunk{{Fragments: []string{long}}}, 51)
	assert.True(t, truncated)
	assert.LessOrEqual(t, len(text), 51)
	assert.True(t, utf8.ValidString(text))
}
