// Package query parses free-text job queries with quoted phrases and the OR operator.
package query

import (
	"strings"
	"unicode"

	"github.com/ChristinaDay/FabLab/internal/domain/text"
)

const orOperator = "or"

// Query is a parsed search query. Required terms are ANDed; terms inside a group are ORed
// and every group must be satisfied.
type Query struct {
	raw      string
	required []string
	groups   [][]string
}

// Parse tokenizes raw. Quoted substrings are single tokens; an unquoted OR (any case)
// switches the query to alternative matching. A query made only of OR operators matches everything.
func Parse(raw string) Query {
	q := Query{raw: strings.TrimSpace(raw)}

	toks := tokenize(q.raw)
	hasOr := false
	seen := make(map[string]struct{}, len(toks))
	terms := make([]string, 0, len(toks))
	for _, t := range toks {
		if !t.quoted && t.value == orOperator {
			hasOr = true
			continue
		}
		if _, dup := seen[t.value]; dup {
			continue
		}
		seen[t.value] = struct{}{}
		terms = append(terms, t.value)
	}

	switch {
	case len(terms) == 0:
	case hasOr:
		q.groups = [][]string{terms}
	default:
		q.required = terms
	}
	return q
}

// Raw returns the trimmed input.
func (q Query) Raw() string { return q.raw }

// Required returns the ANDed terms.
func (q Query) Required() []string { return q.required }

// Groups returns the alternative groups.
func (q Query) Groups() [][]string { return q.groups }

// IsEmpty reports whether the query places no constraint.
func (q Query) IsEmpty() bool { return len(q.required) == 0 && len(q.groups) == 0 }

// Terms returns every distinct term in the query, required first.
func (q Query) Terms() []string {
	out := make([]string, 0, len(q.required))
	out = append(out, q.required...)
	for _, g := range q.groups {
		out = append(out, g...)
	}
	return out
}

// Matches reports whether haystack satisfies the query. Matching is case-folded substring.
func (q Query) Matches(haystack string) bool {
	if q.IsEmpty() {
		return true
	}
	h := text.Fold(haystack)
	for _, t := range q.required {
		if !strings.Contains(h, t) {
			return false
		}
	}
	for _, g := range q.groups {
		if !containsAny(h, g) {
			return false
		}
	}
	return true
}

// CountMatches returns how many distinct terms occur in haystack.
func (q Query) CountMatches(haystack string) int {
	if q.IsEmpty() {
		return 0
	}
	h := text.Fold(haystack)
	n := 0
	for _, t := range q.Terms() {
		if strings.Contains(h, t) {
			n++
		}
	}
	return n
}

func containsAny(h string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(h, t) {
			return true
		}
	}
	return false
}

type token struct {
	value  string
	quoted bool
}

func tokenize(s string) []token {
	var (
		out     []token
		cur     strings.Builder
		inQuote bool
	)
	flush := func(quoted bool) {
		v := text.CollapseSpace(text.Fold(cur.String()))
		cur.Reset()
		if v != "" {
			out = append(out, token{value: v, quoted: quoted})
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			flush(inQuote)
			inQuote = !inQuote
		case unicode.IsSpace(r) && !inQuote:
			flush(false)
		default:
			cur.WriteRune(r)
		}
	}
	// An unterminated quote still yields its content as one phrase.
	flush(inQuote)
	return out
}
