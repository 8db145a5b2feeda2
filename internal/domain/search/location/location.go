// Package location normalizes free-text locations into a display phrase and match tokens.
package location

import (
	"strings"

	"github.com/ChristinaDay/FabLab/internal/domain/text"
)

// Ranking weights.
const (
	PhraseScore = 3
	TokenScore  = 1
)

// Token is one location word. Alias holds the expanded state name for two-letter abbreviations.
type Token struct {
	Term  string
	Alias string
}

func (t Token) matches(h string) bool {
	if strings.Contains(h, t.Term) {
		return true
	}
	return t.Alias != "" && strings.Contains(h, t.Alias)
}

// Location is a normalized location. The zero value means "no location filter".
type Location struct {
	phrase string
	folded string
	tokens []Token
}

// Normalize parses raw. A whole-input alias ("sf", "nyc") is expanded before splitting.
func Normalize(raw string) Location {
	display := strings.TrimSpace(raw)
	if display == "" {
		return Location{}
	}
	if a, ok := aliases[text.CollapseSpace(text.Fold(display))]; ok {
		display = a
	}

	parts := strings.Split(display, ",")
	kept := parts[:0]
	for _, p := range parts {
		if p = text.CollapseSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	phrase := strings.Join(kept, ", ")

	seen := map[string]struct{}{}
	var tokens []Token
	for _, w := range text.Words(text.Fold(display)) {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		tok := Token{Term: w}
		if len(w) == 2 {
			tok.Alias = states[w]
		}
		tokens = append(tokens, tok)
	}

	return Location{phrase: phrase, folded: text.Fold(phrase), tokens: tokens}
}

// Phrase returns the canonical display phrase.
func (l Location) Phrase() string { return l.phrase }

// Tokens returns the match tokens.
func (l Location) Tokens() []Token { return l.tokens }

// IsEmpty reports whether no location was given.
func (l Location) IsEmpty() bool { return l.phrase == "" && len(l.tokens) == 0 }

// Matches reports whether haystack contains the phrase or every token.
// An empty location matches everything.
func (l Location) Matches(haystack string) bool {
	if l.IsEmpty() {
		return true
	}
	h := text.Fold(haystack)
	if l.folded != "" && strings.Contains(h, l.folded) {
		return true
	}
	if len(l.tokens) == 0 {
		return false
	}
	for _, t := range l.tokens {
		if !t.matches(h) {
			return false
		}
	}
	return true
}

// Score returns PhraseScore when the phrase occurs plus TokenScore per matching token.
func (l Location) Score(haystack string) int {
	if l.IsEmpty() {
		return 0
	}
	h := text.Fold(haystack)
	score := 0
	if l.folded != "" && strings.Contains(h, l.folded) {
		score += PhraseScore
	}
	for _, t := range l.tokens {
		if t.matches(h) {
			score += TokenScore
		}
	}
	return score
}
