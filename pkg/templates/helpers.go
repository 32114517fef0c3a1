package templates

import (
	"strings"
)

// Preview returns at most limit runes of text, with an ellipsis when cut.
// Invalid UTF-8 is dropped first so log lines stay printable.
func Preview(text string, limit int) string {
	text = strings.ToValidUTF8(text, "")
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
