package content

import (
	"strings"
	"unicode"
)

// slugify lowercases the title and collapses every non-alphanumeric run into
// a single dash.
func slugify(title string) string {
	var b strings.Builder
	var dash bool
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		default:
			dash = true
		}
	}
	if b.Len() == 0 {
		return "post"
	}
	return b.String()
}
