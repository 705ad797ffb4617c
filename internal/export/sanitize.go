package export

import (
	"strings"
	"unicode"
)

// CleanCueText normalizes engine text for subtitle display: control
// characters are dropped, runs of whitespace collapse to one space.
func CleanCueText(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteRune(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}
