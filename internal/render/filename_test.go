package render

import (
	"strings"
	"testing"
)

func TestSuggestFilename(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"example title", "My Great Post!", "my-great-post"},
		{"keeps hyphens", "Go 1.25 - What's New?", "go-125---whats-new"},
		{"collapses whitespace", "A \t lot   of\nspace", "a-lot-of-space"},
		{"strips unicode", "Café Crème Brûlée", "caf-crme-brle"},
		{"empty title", "", "blog-post"},
		{"blank title", "   ", "blog-post"},
		{"nothing usable", "!!! ???", "blog-post"},
		{"only emoji", "🚀🚀", "blog-post"},
		{"no-break space", "My\u00a0Great Post!", "my-great-post"},
		{"vertical tab", "My\vGreat Post!", "my-great-post"},
		{"unicode spaces", "My\u2003Great\u202fBig\u3000Post", "my-great-big-post"},
		{"line separators", "My\u2028Great\u2029Post", "my-great-post"},
		{"byte order mark", "\ufeffMy Post", "-my-post"},
		{"nbsp only", "\u00a0\u00a0", "blog-post"},
		{"byte order mark only", "\ufeff", "blog-post"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SuggestFilename(tc.title, "blog-post"); got != tc.want {
				t.Fatalf("SuggestFilename(%q) = %q, want %q", tc.title, got, tc.want)
			}
		})
	}
}

func TestSuggestFilename_TruncatesToFifty(t *testing.T) {
	title := strings.Repeat("Long Title Words ", 10)
	got := SuggestFilename(title, "x")
	if len(got) != 50 {
		t.Fatalf("expected 50 chars, got %d (%q)", len(got), got)
	}
	if got != strings.ToLower(got) {
		t.Fatalf("expected lower case, got %q", got)
	}
}
