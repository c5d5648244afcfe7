// Package search provides the in-memory knowledge matcher used by the intake
// engine. A Matcher is built from a building's active knowledge entries (as
// loaded from the repository, already in ranking order) and answers
// substring/keyword queries against them:
//
//   - No logging in the library (callers decide how/what to log)
//   - Functional options (Option pattern)
//   - Case- and accent-insensitive matching ("Alberca" matches "alberca",
//     "cuota" matches "Cuóta")
//   - Immutable after construction (safe for concurrent use)
//   - Input order is preserved, so ranking stays with the caller
//
// An entry matches when the folded query is a substring of its question or
// answer, or equals one of its keywords. A match is Strong when a keyword
// matched exactly or the query appears in the question.
package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/condohub/condo-backend/internal/domain"
)

// DefaultLimit is the number of hits returned when the caller passes limit <= 0.
const DefaultLimit = 5

// Hit is one matching knowledge entry.
type Hit struct {
	Entry  domain.KnowledgeEntry
	Strong bool
}

// Matcher is the minimal interface implemented by knowledge matchers.
type Matcher interface {
	Match(query string, limit int) []Hit
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	defaultLimit  int
	minQueryRunes int
}

func defaultConfig() config {
	return config{
		defaultLimit:  DefaultLimit,
		minQueryRunes: 2,
	}
}

// WithDefaultLimit overrides the cap used when Match receives limit <= 0.
func WithDefaultLimit(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.defaultLimit = n
		}
	}
}

// WithMinQueryRunes sets the shortest folded query that may match anything.
func WithMinQueryRunes(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.minQueryRunes = n
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type entry struct {
	src      domain.KnowledgeEntry
	question string
	answer   string
	keywords map[string]struct{}
}

type matcher struct {
	cfg     config
	entries []entry
}

// NewMatcher folds every active entry once and returns an immutable Matcher.
// Inactive entries are dropped.
func NewMatcher(entries []domain.KnowledgeEntry, opts ...Option) Matcher {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	out := make([]entry, 0, len(entries))
	for _, e := range entries {
		if !e.Active {
			continue
		}
		kw := make(map[string]struct{}, len(e.Keywords))
		for _, k := range e.Keywords {
			if f := Fold(k); f != "" {
				kw[f] = struct{}{}
			}
		}
		out = append(out, entry{
			src:      e,
			question: Fold(e.Question),
			answer:   Fold(e.Answer),
			keywords: kw,
		})
	}
	return &matcher{cfg: cfg, entries: out}
}

// Match returns up to limit hits in the order the entries were supplied.
func (m *matcher) Match(q string, limit int) []Hit {
	if len(m.entries) == 0 {
		return nil
	}
	fq := Fold(q)
	if fq == "" || utf8.RuneCountInString(fq) < m.cfg.minQueryRunes {
		return nil
	}
	if limit <= 0 {
		limit = m.cfg.defaultLimit
	}

	var out []Hit
	for _, e := range m.entries {
		_, kw := e.keywords[fq]
		inQuestion := strings.Contains(e.question, fq)
		if !kw && !inQuestion && !strings.Contains(e.answer, fq) {
			continue
		}
		out = append(out, Hit{Entry: e.src, Strong: kw || inQuestion})
		if len(out) >= limit {
			break
		}
	}
	return out
}

// ----------------------------------------------------------------------------
// Helpers

// Fold lowercases s, strips combining marks and collapses whitespace.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.TrimSpace(normalizeWhitespace(strings.ToLower(folded)))
}

func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
