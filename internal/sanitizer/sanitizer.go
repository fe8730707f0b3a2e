// Package sanitizer strips HTML from user-supplied text before it reaches
// stored records or outgoing emails.
package sanitizer

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy *bluemonday.Policy
	initOnce     sync.Once
)

func policy() *bluemonday.Policy {
	initOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// Text strips ALL HTML and trims surrounding whitespace, returning plain
// text. Applied to quote text/authors and unsubscribe feedback, which end up
// interpolated into rendered emails.
func Text(s string) string {
	return strings.TrimSpace(policy().Sanitize(s))
}
