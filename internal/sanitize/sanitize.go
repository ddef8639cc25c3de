// Package sanitize cleans user-supplied text before it is stored. Expense
// descriptions and profile fields come straight from the SPA, so any markup
// in them is treated as hostile and stripped entirely.
package sanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the singleton bluemonday strict policy. Initialized once via
// sync.Once for thread-safe lazy initialization.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared sanitization policy, initializing it on first call.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		// StrictPolicy strips all HTML. Descriptions are plain text; there
		// is no rich-text surface anywhere in the API.
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text strips all HTML from user-supplied text and trims surrounding
// whitespace. MUST be called on free-form string input before persisting it.
func Text(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSpace(getPolicy().Sanitize(input))
}
