// Package sanitizer cleans user-supplied text before it reaches
// storage. Policies are compiled once and shared.
package sanitizer

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict *bluemonday.Policy
	once   sync.Once
)

func policies() {
	once.Do(func() {
		strict = bluemonday.StrictPolicy()
	})
}

// StripHTML removes every tag and attribute, leaving plain text, and
// trims surrounding whitespace. Profile fields go through this before
// they are persisted.
func StripHTML(s string) string {
	policies()
	return strings.TrimSpace(strict.Sanitize(s))
}
