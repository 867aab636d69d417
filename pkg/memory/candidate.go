package memory

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCandidate is returned when a candidate fails validation.
var ErrInvalidCandidate = errors.New("invalid memory candidate")

// Candidate is a proposed memory before deduplication against the store.
type Candidate struct {
	Type     Type     `json:"type"`
	Category Category `json:"category"`
	Content  string   `json:"content"`

	// Confidence is optional; nil means DefaultConfidence.
	Confidence *float64 `json:"confidence,omitempty"`

	// Importance is optional; empty means medium.
	Importance Importance `json:"importance,omitempty"`

	Tags    []string `json:"tags,omitempty"`
	Source  Source   `json:"source"`
	Context *Context `json:"context,omitempty"`
}

// Validate checks that the candidate has a known type and category and
// non-empty content.
func (c Candidate) Validate() error {
	if !c.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidCandidate, c.Type)
	}
	if !c.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidCandidate, c.Category)
	}
	if strings.TrimSpace(c.Content) == "" {
		return fmt.Errorf("%w: empty content", ErrInvalidCandidate)
	}
	if c.Importance != "" && !c.Importance.Valid() {
		return fmt.Errorf("%w: unknown importance %q", ErrInvalidCandidate, c.Importance)
	}
	return nil
}

// Float returns a pointer to v, for setting Candidate.Confidence.
func Float(v float64) *float64 {
	return &v
}
