package query

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		required []string
		groups   [][]string
	}{
		{"empty", "", nil, nil},
		{"blank", "   ", nil, nil},
		{"implicit and", "welder cnc", []string{"welder", "cnc"}, nil},
		{"case folded", "Welder CNC", []string{"welder", "cnc"}, nil},
		{"quoted phrase", `"metal fabricator"`, []string{"metal fabricator"}, nil},
		{"or alternatives", "welder OR fabricator", nil, [][]string{{"welder", "fabricator"}}},
		{"lowercase or", "welder or fabricator", nil, [][]string{{"welder", "fabricator"}}},
		{
			"or with phrase", `welder OR "metal fabricator"`,
			nil, [][]string{{"welder", "metal fabricator"}},
		},
		{"only operators", "OR OR or", nil, nil},
		{"quoted or is a term", `"or" welder`, []string{"or", "welder"}, nil},
		{"duplicates removed", "welder WELDER", []string{"welder"}, nil},
		{"unterminated quote", `"sheet metal`, []string{"sheet metal"}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := Parse(tc.raw)
			if !reflect.DeepEqual(q.Required(), tc.required) {
				t.Errorf("Required() = %#v, want %#v", q.Required(), tc.required)
			}
			if !reflect.DeepEqual(q.Groups(), tc.groups) {
				t.Errorf("Groups() = %#v, want %#v", q.Groups(), tc.groups)
			}
		})
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		raw      string
		haystack string
		want     bool
	}{
		{"", "anything", true},
		{"OR", "anything", true},
		{"welder cnc", "CNC Welder needed", true},
		{"welder cnc", "Welder needed", false},
		{"welder OR fabricator", "Fabricator, day shift", true},
		{"welder OR fabricator", "Machinist", false},
		{`"metal fabricator"`, "Senior Metal Fabricator", true},
		{`"metal fabricator"`, "metal shop fabricator", false},
		{"soudeur", "Soudeur qualifié", true},
		{"zurich", "Zürich shop", true},
	}
	for _, tc := range tests {
		if got := Parse(tc.raw).Matches(tc.haystack); got != tc.want {
			t.Errorf("Parse(%q).Matches(%q) = %v, want %v", tc.raw, tc.haystack, got, tc.want)
		}
	}
}

func TestCountMatches(t *testing.T) {
	q := Parse(`welder OR "metal fabricator"`)
	if got := q.CountMatches("Metal Fabricator / Welder"); got != 2 {
		t.Errorf("CountMatches = %d, want 2", got)
	}
	if got := q.CountMatches("Machinist"); got != 0 {
		t.Errorf("CountMatches = %d, want 0", got)
	}
	if got := Parse("").CountMatches("welder"); got != 0 {
		t.Errorf("empty query CountMatches = %d", got)
	}
}

func TestTerms(t *testing.T) {
	got := Parse(`cnc OR "tool and die"`).Terms()
	want := []string{"cnc", "tool and die"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Terms() = %#v, want %#v", got, want)
	}
}
