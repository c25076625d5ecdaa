package render

import (
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestMain(m *testing.M) {
	SetLogger(zerolog.Nop())
	os.Exit(m.Run())
}

func TestRenderMarkdown(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "Paragraph and emphasis",
			input:    "Family breeders since **1998**.",
			contains: []string{"<p>", "<strong>1998</strong>"},
		},
		{
			name:     "Heading gets an id",
			input:    "# Our story",
			contains: []string{`<h1 id="our-story">Our story</h1>`},
		},
		{
			name:     "External links open in a new tab without follow",
			input:    "[club](https://kennel.example/club)",
			contains: []string{`href="https://kennel.example/club"`, `rel="nofollow`, `target="_blank"`},
		},
		{
			name:     "Script is stripped",
			input:    "hello <script>alert(1)</script>",
			contains: []string{"hello"},
			excludes: []string{"<script", "alert(1)"},
		},
		{
			name:     "Event handlers are stripped",
			input:    `<img src="https://img.example/a.jpg" onerror="alert(1)">`,
			excludes: []string{"onerror"},
		},
		{
			name:     "Javascript links are dropped",
			input:    "[x](javascript:alert(1))",
			excludes: []string{"javascript:"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := string(RenderMarkdown([]byte(tc.input)))
			for _, want := range tc.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Expected output to contain %q, got %q", want, got)
				}
			}
			for _, bad := range tc.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("Expected output not to contain %q, got %q", bad, got)
				}
			}
		})
	}
}

func TestRenderMarkdownCached(t *testing.T) {
	ClearCache()
	t.Cleanup(ClearCache)

	if got := RenderMarkdownCached(nil); got != "" {
		t.Errorf("Expected empty output for empty input, got %q", got)
	}
	if rendered.Len() != 0 {
		t.Errorf("Expected empty input not to be cached, got %d entries", rendered.Len())
	}

	md := []byte("Puppies *available* soon")
	first := RenderMarkdownCached(md)
	if first != RenderMarkdown(md) {
		t.Errorf("Expected cached output to match direct rendering, got %q", first)
	}
	if rendered.Len() != 1 {
		t.Fatalf("Expected 1 cached entry, got %d", rendered.Len())
	}

	if second := RenderMarkdownCached([]byte("Puppies *available* soon")); second != first {
		t.Errorf("Expected %q, got %q", first, second)
	}
	if rendered.Len() != 1 {
		t.Errorf("Expected a cache hit, got %d entries", rendered.Len())
	}

	RenderMarkdownCached([]byte("Other text"))
	if rendered.Len() != 2 {
		t.Errorf("Expected 2 cached entries, got %d", rendered.Len())
	}

	ClearCache()
	if rendered.Len() != 0 {
		t.Errorf("Expected cache to be cleared, got %d entries", rendered.Len())
	}
}
