package text

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFold(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Welder", "welder"},
		{"CNC-Machinist", "cnc-machinist"},
		{"Zürich", "zurich"},
		{"  São Paulo ", "  sao paulo "},
		{"", ""},
	}
	for _, tc := range tests {
		if got := Fold(tc.in); got != tc.want {
			t.Errorf("Fold(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCollapseSpace(t *testing.T) {
	got := CollapseSpace("  metal \n\t fabricator   wanted ")
	if got != "metal fabricator wanted" {
		t.Errorf("got %q", got)
	}
}

func TestWords(t *testing.T) {
	got := Words("cnc-machinist, san francisco/ca")
	want := []string{"cnc", "machinist", "san", "francisco", "ca"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("word %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTruncate(t *testing.T) {
	t.Run("short string untouched", func(t *testing.T) {
		if got := Truncate("abc", 10); got != "abc" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("ascii cut", func(t *testing.T) {
		if got := Truncate(strings.Repeat("a", 2500), 2000); len(got) != 2000 {
			t.Errorf("expected 2000 bytes, got %d", len(got))
		}
	})

	t.Run("multibyte runes are not split", func(t *testing.T) {
		got := Truncate(strings.Repeat("é", 2500), 2000)
		if !utf8.ValidString(got) {
			t.Fatal("truncated string is not valid UTF-8")
		}
		if n := utf8.RuneCountInString(got); n != 2000 {
			t.Errorf("expected 2000 runes, got %d", n)
		}
	})

	t.Run("zero limit", func(t *testing.T) {
		if got := Truncate("abc", 0); got != "" {
			t.Errorf("got %q", got)
		}
	})
}
