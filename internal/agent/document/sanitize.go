package document

import (
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// isControl matches C0 and C1 control code points except tab and newline.
func isControl(r rune) bool {
	if r == '\t' || r == '\n' {
		return false
	}
	return r <= 0x1F || (r >= 0x7F && r <= 0x9F)
}

// Sanitize strips control code points and normalizes to NFC. The result
// contains no rune in U+0000–U+001F or U+007F–U+009F other than \t and \n.
func Sanitize(s string) string {
	t := transform.Chain(runes.Remove(runes.Predicate(isControl)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		// fall back to removal only; NFC never fails on valid input
		out = removeControls(s)
	}
	return out
}

func removeControls(s string) string {
	buf := make([]rune, 0, len(s))
	for _, r := range s {
		if !isControl(r) {
			buf = append(buf, r)
		}
	}
	return string(buf)
}
