package document

import "errors"

// Every error returned by Pipeline.Extract matches exactly one of these.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrTooLarge          = errors.New("file exceeds maximum size limit")
	ErrTooComplex        = errors.New("document has too many pages")
	ErrMalformedDocument = errors.New("malformed document")
)

// Reason returns a short message suitable for showing to the uploader.
// It never includes document content.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTooLarge):
		return "The file is too large."
	case errors.Is(err, ErrTooComplex):
		return "The document has too many pages."
	case errors.Is(err, ErrMalformedDocument):
		return "The document could not be read."
	case errors.Is(err, ErrInvalidInput):
		return "The file is empty or of an unsupported type."
	default:
		return "The document could not be processed."
	}
}
