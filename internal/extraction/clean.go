package extraction

import (
	"regexp"
	"strings"
)

// disallowed matches anything but letters, digits, underscore, whitespace and . , '
var disallowed = regexp.MustCompile(`[^\p{L}\p{N}\p{M}_\s.,']+`)

// CleanText prepares raw extracted text for offline corpus work: symbols are dropped,
// whitespace is collapsed to single spaces and every sentence ending in a single
// period starts a new line. Ellipses stay inline.
func CleanText(raw string) string {
	cleaned := disallowed.ReplaceAllString(raw, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	var sb strings.Builder
	sb.Grow(len(cleaned))
	for i := 0; i < len(cleaned); i++ {
		c := cleaned[i]
		if c == '.' && (i == 0 || cleaned[i-1] != '.') && i+1 < len(cleaned) && cleaned[i+1] == ' ' {
			sb.WriteString(".\n")
			i++ // consume the space
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
