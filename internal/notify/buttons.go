package notify

import "strings"

// ParseBracketList splits the legacy "[A][B]" form into its labels,
// left to right. Text outside brackets, unterminated tokens and empty
// labels are dropped; labels are trimmed.
func ParseBracketList(s string) []string {
	var labels []string
	var current strings.Builder
	inside := false

	for _, r := range strings.TrimSpace(s) {
		switch {
		case r == '[':
			current.Reset()
			inside = true
		case r == ']':
			if inside {
				if label := strings.TrimSpace(current.String()); label != "" {
					labels = append(labels, label)
				}
			}
			inside = false
		case inside:
			current.WriteRune(r)
		}
	}

	return labels
}
