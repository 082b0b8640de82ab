package converters

import (
	"strings"
	"unicode/utf8"

	"github.com/feichai0017/policy-decoder/internal/models"
)

const (
	FragmentSeparator = " "
	UnitSeparator     = "\n\n"
)

// DocumentConverter 定义文档转换器接口
type DocumentConverter interface {
	// Convert assembles decoded chunks into one string of at most maxBytes
	// bytes (0 means unbounded) and reports whether it had to truncate.
	Convert(chunks []models.DocumentChunk, maxBytes int) (string, bool)
}

// TextConverter joins fragments with a space and units with a blank line.
type TextConverter struct{}

func NewTextConverter() *TextConverter {
	return &TextConverter{}
}

func (c *TextConverter) Convert(chunks []models.DocumentChunk, maxBytes int) (string, bool) {
	var b strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			b.WriteString(UnitSeparator)
		}
		first := true
		for _, f := range chunk.Fragments {
			if f == "" {
				continue
			}
			if !first {
				b.WriteString(FragmentSeparator)
			}
			b.WriteString(f)
			first = false
		}
	}

	text := strings.TrimSpace(b.String())
	if maxBytes <= 0 {
		return text, false
	}
	return TruncateUTF8(text, maxBytes)
}

// TruncateUTF8 cuts s to at most max bytes without splitting a rune.
func TruncateUTF8(s string, max int) (string, bool) {
	if len(s) <= max {
		return s, false
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimRightFunc(s[:cut], isSpace), true
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}
