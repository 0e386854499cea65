// Package sanitize strips unsafe markup from user-submitted HTML before
// it reaches the store.
package sanitize

import "github.com/microcosm-cc/bluemonday"

var policy = bluemonday.UGCPolicy()

// HTML sanitizes user-submitted post and comment bodies.
func HTML(input string) string {
	return policy.Sanitize(input)
}
