package relevance

import (
	"regexp"
	"strings"

	"github.com/ChristinaDay/FabLab/internal/domain/text"
)

// DefaultPositiveTerms are the in-domain terms always present in the vocabulary.
var DefaultPositiveTerms = []string{
	"welder", "welding", "fabricator", "fabrication", "metal fabricator", "sheet metal",
	"cnc", "machinist", "machining", "millwright", "ironworker", "boilermaker", "pipefitter",
	"tool and die", "toolmaker", "model maker", "prototype", "composite", "additive",
	"3d printing", "woodworker", "metal shop", "shop manager", "ceramic", "kiln",
	"blacksmith", "metalworker", "press brake", "waterjet", "laser cutting",
}

// DefaultNegativeTerms are occupations that show up as false positives.
var DefaultNegativeTerms = []string{
	"nurse", "nursing", "cashier", "barista", "bartender", "caregiver", "server",
	"dishwasher", "housekeeper", "receptionist", "pharmacist", "dental", "teller",
}

var stopWords = map[string]struct{}{
	"and": {}, "the": {}, "for": {}, "with": {}, "not": {}, "job": {}, "jobs": {},
	"hiring": {}, "near": {}, "from": {}, "all": {}, "any": {}, "remote": {},
}

var quoted = regexp.MustCompile(`"([^"]+)"`)

// DeriveTerms extracts vocabulary terms from source queries: quoted phrases as-is,
// other words of at least three letters minus OR and stop words.
func DeriveTerms(queries []string) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(t string) {
		if _, dup := seen[t]; dup || t == "" {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, q := range queries {
		q = text.Fold(q)
		for _, m := range quoted.FindAllStringSubmatch(q, -1) {
			add(text.CollapseSpace(m[1]))
		}
		rest := quoted.ReplaceAllString(q, " ")
		for _, w := range text.Words(rest) {
			if len(w) < 3 || w == "or" {
				continue
			}
			if _, stop := stopWords[w]; stop {
				continue
			}
			add(w)
		}
	}
	return out
}

func normalizeTerms(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = text.CollapseSpace(text.Fold(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func union(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return normalizeTerms(out)
}

func isPhrase(t string) bool {
	return strings.Contains(t, " ")
}
