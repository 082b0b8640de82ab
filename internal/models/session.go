package models

import (
	"strings"
	"time"
)

// PolicyCategory labels the kind of insurance a document covers.
type PolicyCategory string

const (
	CategoryHealth   PolicyCategory = "health"
	CategoryCar      PolicyCategory = "car"
	CategoryHome     PolicyCategory = "home"
	CategoryLife     PolicyCategory = "life"
	CategoryTravel   PolicyCategory = "travel"
	CategoryBusiness PolicyCategory = "business"
	CategoryOther    PolicyCategory = "other"
)

var knownCategories = map[PolicyCategory]struct{}{
	CategoryHealth:   {},
	CategoryCar:      {},
	CategoryHome:     {},
	CategoryLife:     {},
	CategoryTravel:   {},
	CategoryBusiness: {},
	CategoryOther:    {},
}

// ParseCategory normalizes a free-form label; unknown labels map to CategoryOther.
func ParseCategory(s string) PolicyCategory {
	c := PolicyCategory(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := knownCategories[c]; ok {
		return c
	}
	return CategoryOther
}

// Contact holds the insurer's contact details.
type Contact struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
}

// PolicySummary are the structured fields derived from the document text.
type PolicySummary struct {
	Name       string   `json:"name,omitempty"`
	Provider   string   `json:"provider,omitempty"`
	Covered    []string `json:"covered"`
	NotCovered []string `json:"notCovered"`
	Limits     []string `json:"limits"`
	Excess     string   `json:"excess,omitempty"`
	Premium    string   `json:"premium,omitempty"`
	Contact    Contact  `json:"contact"`
}

// SessionPayload is what a session keeps alive: the document text and the
// fields derived from it.
type SessionPayload struct {
	Document ExtractedText  `json:"document"`
	Filename string         `json:"filename"`
	Category PolicyCategory `json:"category"`
	Summary  PolicySummary  `json:"summary"`
}

// SessionRecord is the unit of ephemeral storage.
type SessionRecord struct {
	ID             string         `json:"id"`
	Payload        SessionPayload `json:"payload"`
	CreatedAt      time.Time      `json:"createdAt"`
	LastAccessedAt time.Time      `json:"lastAccessedAt"`
}

// SessionIdle describes one live session for operational visibility.
type SessionIdle struct {
	ID             string        `json:"id"`
	CreatedAt      time.Time     `json:"createdAt"`
	LastAccessedAt time.Time     `json:"lastAccessedAt"`
	Idle           time.Duration `json:"idle"`
}

// SessionStats is a read-only snapshot of the session store.
type SessionStats struct {
	Count    int           `json:"count"`
	Timeout  time.Duration `json:"timeout"`
	Sessions []SessionIdle `json:"sessions"`
}
