// Package htmlsanitize cleans user-supplied rich text before it is stored.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// policy is safe for concurrent use once built.
var policy = bluemonday.UGCPolicy()

// Sanitize strips scripts, event handlers, unsafe URLs and any element not
// allowed in user-generated content. Surrounding whitespace is trimmed.
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return strings.TrimSpace(policy.Sanitize(s))
}
