package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func TestGateway_SuggestTools(t *testing.T) {
	gen := &fakeGenerator{reply: "```json\n[{\"title\":\"Figma\",\"url\":\"https://figma.com\",\"description\":\"Design tool\",\"category\":\"Design\",\"tags\":[\"ui\"]}]\n```"}
	g := NewGateway(gen, 9)

	got, err := g.SuggestTools(context.Background(), "  UI Design ")
	if err != nil {
		t.Fatalf("SuggestTools: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Figma" || got[0].Category != "Design" {
		t.Fatalf("unexpected suggestions: %+v", got)
	}

	prompt := gen.prompts[0]
	if !strings.Contains(prompt, `"  UI Design "`) {
		t.Errorf("prompt should carry the raw query, got %q", prompt)
	}
	if !strings.Contains(prompt, "Suggest 9 REAL") {
		t.Errorf("prompt should request 9 tools, got %q", prompt)
	}
	if !strings.Contains(prompt, `Do not use "Development" if "Design" or "AI" fits better`) {
		t.Errorf("prompt should carry the category tie-break hint")
	}
}

func TestGateway_SuggestTools_Errors(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
		want error
	}{
		{"rate limited", &fakeGenerator{err: ErrRateLimited}, ErrRateLimited},
		{"unclassified provider error", &fakeGenerator{err: errors.New("connection reset")}, ErrProvider},
		{"malformed output", &fakeGenerator{reply: "no tools, sorry"}, ErrMalformedOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewGateway(tt.gen, 9).SuggestTools(context.Background(), "react")
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if len(got) != 0 {
				t.Fatalf("expected no suggestions, got %+v", got)
			}
		})
	}
}

func TestGateway_DescribeWebsite(t *testing.T) {
	gen := &fakeGenerator{reply: `{"summary": "A really long summary that keeps going well past the eighty five character limit set for cards", "category": "design", "tags": ["UI", "ui", " Prototyping ", "figma", "vector", "collab", "extra"]}`}
	g := NewGateway(gen, 9)

	e, err := g.DescribeWebsite(context.Background(), "https://figma.com", PageContext{Title: "Figma"})
	if err != nil {
		t.Fatalf("DescribeWebsite: %v", err)
	}
	if n := len([]rune(e.Summary)); n > MaxSummaryLength {
		t.Errorf("summary has %d runes, want <= %d", n, MaxSummaryLength)
	}
	if e.Category != "Design" {
		t.Errorf("category = %q, want canonical %q", e.Category, "Design")
	}
	want := []string{"ui", "prototyping", "figma", "vector", "collab"}
	if strings.Join(e.Tags, ",") != strings.Join(want, ",") {
		t.Errorf("tags = %v, want %v", e.Tags, want)
	}
	if !strings.Contains(gen.prompts[0], "Page title: Figma") {
		t.Errorf("prompt should include page title hint")
	}
}

func TestGateway_DescribeWebsite_UnknownCategoryDropped(t *testing.T) {
	gen := &fakeGenerator{reply: `{"summary": "Chat app", "category": "Social", "tags": ["chat"]}`}
	e, err := NewGateway(gen, 9).DescribeWebsite(context.Background(), "https://example.com", PageContext{})
	if err != nil {
		t.Fatalf("DescribeWebsite: %v", err)
	}
	if e.Category != "" {
		t.Fatalf("category = %q, want empty for value outside the closed set", e.Category)
	}
}

func TestGateway_DescribeWebsite_EmptyObject(t *testing.T) {
	gen := &fakeGenerator{reply: `{}`}
	_, err := NewGateway(gen, 9).DescribeWebsite(context.Background(), "https://example.com", PageContext{})
	if !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
}

func TestCanonicalCategory(t *testing.T) {
	tests := map[string]string{
		"AI":           "AI",
		"ai":           "AI",
		" devops ":     "DevOps",
		"Productivity": "Productivity",
		"Marketing":    "",
		"":             "",
	}
	for in, want := range tests {
		if got := CanonicalCategory(in); got != want {
			t.Errorf("CanonicalCategory(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKind(t *testing.T) {
	if Kind(nil) != "none" {
		t.Error("nil error kind")
	}
	if Kind(ErrRateLimited) != "rate_limited" {
		t.Error("rate limited kind")
	}
	if Kind(&MalformedOutputError{Raw: "x"}) != "malformed_output" {
		t.Error("malformed kind")
	}
	if Kind(errors.New("boom")) != "provider" {
		t.Error("provider kind")
	}
}
