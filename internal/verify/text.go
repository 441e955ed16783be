package verify

import (
	"strings"
	"unicode"
)

// stopwords are excluded from token matching so that grounding reflects
// content words. Numbers always count as content.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "being": true, "of": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "with": true,
	"by": true, "from": true, "as": true, "and": true, "or": true, "but": true,
	"it": true, "its": true, "this": true, "that": true, "these": true,
	"those": true, "there": true, "their": true, "has": true, "have": true,
	"had": true, "do": true, "does": true, "did": true, "will": true,
	"would": true, "can": true, "could": true, "should": true, "may": true,
	"which": true, "who": true, "whom": true, "what": true, "when": true,
	"where": true, "how": true, "than": true, "then": true, "so": true,
	"if": true, "into": true, "about": true, "also": true,
}

// negations signal a reversed statement when present in one text but not
// its counterpart.
var negations = map[string]bool{
	"not": true, "no": true, "never": true, "without": true, "none": true,
	"cannot": true, "isnt": true, "arent": true, "wasnt": true, "werent": true,
	"dont": true, "doesnt": true, "didnt": true, "wont": true, "cant": true,
}

// splitSentences splits text on sentence terminators. Unlike prose
// heuristics tuned for web pages, short fragments are kept: clinical notes
// are full of terse statements like "BP 120/80."
func splitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\n", " ")

	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			// Look ahead to avoid splitting on decimals like "7.2".
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				sentence := strings.TrimSpace(current.String())
				if sentence != "" && sentence != "." && sentence != "!" && sentence != "?" {
					sentences = append(sentences, sentence)
				}
				current.Reset()
			}
		}
	}

	if current.Len() > 0 {
		sentence := strings.TrimSpace(current.String())
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
	}

	return sentences
}

// tokenize lowercases, strips punctuation, and drops stopwords. Numeric
// tokens survive whole, including ones with internal punctuation like
// "7.2" or "120/80"; other tokens split on internal punctuation, so
// "mmol/L" yields "mmol" and "l".
func tokenize(text string) []string {
	var tokens []string
	for _, field := range strings.Fields(strings.ToLower(text)) {
		token := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if token == "" {
			continue
		}
		if isNumeric(token) {
			tokens = append(tokens, token)
			continue
		}
		for _, sub := range strings.FieldsFunc(token, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) {
			if stopwords[sub] {
				continue
			}
			tokens = append(tokens, sub)
		}
	}
	return tokens
}

func stripInnerPunct(token string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, token)
}

func isNumeric(token string) bool {
	hasDigit := false
	for _, r := range token {
		if unicode.IsDigit(r) {
			hasDigit = true
		} else if r != '.' && r != ',' && r != '/' && r != '%' && r != '-' {
			return false
		}
	}
	return hasDigit
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
