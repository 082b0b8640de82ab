package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	docagent "github.com/feichai0017/policy-decoder/internal/agent/document"
	"github.com/feichai0017/policy-decoder/internal/models"
)

const (
	// MaxPromptChars bounds how much document text is sent with a question.
	MaxPromptChars = 8000
	truncationNote = "... [text truncated due to length] ..."
)

const chatSystemPrompt = "You are a helpful insurance assistant that answers questions about insurance policies. " +
	"Provide accurate, concise answers based only on the policy information provided. " +
	"If the document does not say, answer that you are not sure rather than guessing."

const summarySystemPrompt = "You extract structured facts from insurance policy documents. " +
	"Reply with a single JSON object and nothing else."

// truncateForPrompt keeps the first MaxPromptChars characters of text.
func truncateForPrompt(text string) (string, bool) {
	if utf8.RuneCountInString(text) <= MaxPromptChars {
		return text, false
	}
	n := 0
	for i := range text {
		if n == MaxPromptChars {
			return text[:i], true
		}
		n++
	}
	return text, false
}

func buildChatPrompt(payload models.SessionPayload, question string) string {
	text, truncated := truncateForPrompt(payload.Document.Text)

	var b strings.Builder
	b.WriteString("I have the following text extracted from an insurance policy document:\n\n")
	b.WriteString(text)
	b.WriteString("\n\n")
	if truncated {
		b.WriteString(truncationNote)
		b.WriteString("\n\n")
	}
	if summary := formatSummary(payload.Category, payload.Summary); summary != "" {
		b.WriteString("A summary of the policy:\n")
		b.WriteString(summary)
		b.WriteString("\n\n")
	}
	b.WriteString("Based on this document, please answer the following question:\n")
	b.WriteString(question)
	b.WriteString("\n\nPlease provide a concise and accurate answer based only on the information in the document.")
	return b.String()
}

func buildSummaryPrompt(text string) string {
	text, truncated := truncateForPrompt(text)

	var b strings.Builder
	b.WriteString(`Read the insurance policy below and reply with JSON of the form
{"category": "health|car|home|life|travel|business|other", "name": "", "provider": "",
 "covered": [], "notCovered": [], "limits": [], "excess": "", "premium": "",
 "contact": {"phone": "", "email": "", "website": ""}}
Use empty strings or empty lists for anything the document does not state.

`)
	b.WriteString(text)
	if truncated {
		b.WriteString("\n\n")
		b.WriteString(truncationNote)
	}
	return b.String()
}

type summaryReply struct {
	Category string `json:"category"`
	models.PolicySummary
}

// parseSummary reads the model's JSON reply. Models often wrap JSON in a
// markdown fence or add a sentence around it, so only the outermost object
// is decoded.
func parseSummary(reply string) (models.PolicyCategory, models.PolicySummary, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return "", models.PolicySummary{}, errors.New("no JSON object in reply")
	}

	var out summaryReply
	if err := json.Unmarshal([]byte(reply[start:end+1]), &out); err != nil {
		return "", models.PolicySummary{}, fmt.Errorf("decode summary: %w", err)
	}
	return models.ParseCategory(out.Category), normalizeSummary(out.PolicySummary), nil
}

// normalizeSummary cleans model output the same way extracted text is
// cleaned, and never leaves a list nil.
func normalizeSummary(s models.PolicySummary) models.PolicySummary {
	clean := func(v string) string { return strings.TrimSpace(docagent.Sanitize(v)) }

	s.Name = clean(s.Name)
	s.Provider = clean(s.Provider)
	s.Excess = clean(s.Excess)
	s.Premium = clean(s.Premium)
	s.Contact.Phone = clean(s.Contact.Phone)
	s.Contact.Email = clean(s.Contact.Email)
	s.Contact.Website = clean(s.Contact.Website)
	s.Covered = cleanList(s.Covered, clean)
	s.NotCovered = cleanList(s.NotCovered, clean)
	s.Limits = cleanList(s.Limits, clean)
	return s
}

func cleanList(items []string, clean func(string) string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = clean(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func formatSummary(category models.PolicyCategory, s models.PolicySummary) string {
	var lines []string
	add := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			lines = append(lines, label+": "+value)
		}
	}
	add("Name", s.Name)
	add("Provider", s.Provider)
	add("Covered", strings.Join(s.Covered, "; "))
	add("Not covered", strings.Join(s.NotCovered, "; "))
	add("Limits", strings.Join(s.Limits, "; "))
	add("Excess", s.Excess)
	add("Premium", s.Premium)
	if len(lines) == 0 {
		return ""
	}
	if category != "" {
		lines = append([]string{"Type: " + string(category)}, lines...)
	}
	return strings.Join(lines, "\n")
}
