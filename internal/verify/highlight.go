package verify

import (
	"regexp"
	"sort"
	"strings"
)

// highlight wraps every occurrence of a matched token in the passage text
// with ** markers. The underlying text is never altered apart from the
// inserted markers, so stripping them recovers the exact chunk.
func highlight(text string, matched map[string]bool) string {
	if len(matched) == 0 {
		return text
	}

	tokens := make([]string, 0, len(matched))
	for t := range matched {
		tokens = append(tokens, regexp.QuoteMeta(t))
	}
	// Longest first so "diabetes" wins over "diab" if both ever appear.
	sort.Slice(tokens, func(i, j int) bool { return len(tokens[i]) > len(tokens[j]) })

	re, err := regexp.Compile(`(?i)\b(` + strings.Join(tokens, "|") + `)\b`)
	if err != nil {
		return text
	}
	return re.ReplaceAllString(text, "**$1**")
}
