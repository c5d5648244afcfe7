package search

import (
	"regexp"
	"strings"
)

// Letters with optional trailing digits (e.g., "piso3").
var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

// stopwords holds the Spanish and English function words dropped from
// keyword extraction.
var stopwords = map[string]struct{}{
	// en
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "by": {}, "from": {},
	"at": {}, "as": {}, "that": {}, "this": {}, "it": {}, "be": {}, "was": {}, "were": {},
	"my": {}, "i": {}, "not": {}, "doesn": {}, "t": {}, "please": {}, "hi": {}, "hello": {},
	// es
	"el": {}, "la": {}, "los": {}, "las": {}, "un": {}, "una": {}, "y": {}, "o": {},
	"de": {}, "del": {}, "al": {}, "en": {}, "es": {}, "que": {}, "por": {}, "para": {},
	"con": {}, "mi": {}, "no": {}, "se": {}, "lo": {}, "le": {}, "hay": {}, "esta": {},
	"hola": {}, "favor": {}, "buenas": {}, "buenos": {}, "dias": {}, "tardes": {},
}

// Keywords returns up to max significant words of text, lowercased, in the
// order they first appear. Duplicates and stop words are skipped.
func Keywords(text string, max int) []string {
	words := wordRE.FindAllString(strings.ToLower(text), -1)
	if len(words) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, skip := stopwords[Fold(w)]; skip {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}
