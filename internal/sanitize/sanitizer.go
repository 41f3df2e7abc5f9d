// Package sanitize strips markup from user-supplied text before it is sent or printed.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer removes every HTML element from text.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// New creates a sanitizer backed by bluemonday's strict policy.
func New() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Text strips tags and returns plain text with entities decoded, trimmed.
func (s *Sanitizer) Text(content string) string {
	if content == "" {
		return ""
	}
	// StrictPolicy escapes what it keeps, so decode once for terminal output.
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(content)))
}

// Comment prepares a comment body for submission.
// Returns "" when nothing but markup was supplied.
func (s *Sanitizer) Comment(content string) string {
	return s.Text(content)
}
