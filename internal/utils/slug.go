package utils

import "strings"

// Slugify lowercases text and joins its alphanumeric runs with dashes.
func Slugify(text string) string {
	var b strings.Builder
	pendingDash := false

	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}

	return b.String()
}
