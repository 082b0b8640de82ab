package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	docagent "github.com/feichai0017/policy-decoder/internal/agent/document"
	"github.com/feichai0017/policy-decoder/internal/agent/llm"
	"github.com/feichai0017/policy-decoder/internal/service/document"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{fmt.Errorf("%w: empty document", docagent.ErrInvalidInput), http.StatusBadRequest, "The file is empty or of an unsupported type."},
		{fmt.Errorf("%w: 11 MiB", docagent.ErrTooLarge), http.StatusRequestEntityTooLarge, "The file is too large."},
		{fmt.Errorf("%w: 101 pages", docagent.ErrTooComplex), http.StatusUnprocessableEntity, "The document has too many pages."},
		{fmt.Errorf("%w: bad xref", docagent.ErrMalformedDocument), http.StatusUnprocessableEntity, "The document could not be read."},
		{document.ErrSessionNotFound, http.StatusNotFound, msgUploadAgain},
		{document.ErrInvalidQuestion, http.StatusBadRequest, "Please enter a question"},
		{llm.ErrUnavailable, http.StatusServiceUnavailable, msgTryLater},
		{fmt.Errorf("%w: 500 from upstream", llm.ErrCompletion), http.StatusBadGateway, msgTryLater},
		{errors.New("disk full"), http.StatusInternalServerError, msgInternalFail},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, body := statusFor(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.message, body.Message)
			assert.NotContains(t, body.Error, tt.err.Error())
		})
	}
}

func TestStatusFor_FileErrorsAskForRetry(t *testing.T) {
	for _, err := range []error{docagent.ErrInvalidInput, docagent.ErrTooLarge, docagent.ErrTooComplex, docagent.ErrMalformedDocument} {
		_, body := statusFor(err)
		assert.Equal(t, msgCheckFile, body.Error)
	}
}
