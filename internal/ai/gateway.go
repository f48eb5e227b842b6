package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Generator sends a prompt to a text model and returns the raw reply.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Gateway turns prompts into typed results. Every failure is returned as an
// error classified as ErrRateLimited, ErrProvider or ErrMalformedOutput.
type Gateway struct {
	gen             Generator
	suggestionCount int
}

// NewGateway creates a Gateway asking gen for suggestionCount tools per query.
func NewGateway(gen Generator, suggestionCount int) *Gateway {
	if suggestionCount <= 0 {
		suggestionCount = 9
	}
	return &Gateway{gen: gen, suggestionCount: suggestionCount}
}

// SuggestTools asks the model for tools matching query. The query is sent as
// typed by the user; normalization only applies to cache keys.
func (g *Gateway) SuggestTools(ctx context.Context, query string) ([]Suggestion, error) {
	raw, err := g.generate(ctx, buildSuggestionPrompt(query, g.suggestionCount))
	if err != nil {
		return []Suggestion{}, err
	}
	return ExtractArray[Suggestion](raw)
}

// DescribeWebsite asks the model for a summary, category and tags for url.
// The result is post-processed: summary bounded, category checked against
// the closed set (dropped if unknown), tags lowercased and capped.
func (g *Gateway) DescribeWebsite(ctx context.Context, url string, page PageContext) (*Enrichment, error) {
	raw, err := g.generate(ctx, buildEnrichmentPrompt(url, page))
	if err != nil {
		return nil, err
	}

	e, err := ExtractObject[Enrichment](raw)
	if err != nil {
		return nil, err
	}

	e.Summary = truncateRunes(strings.TrimSpace(e.Summary), MaxSummaryLength)
	e.Category = CanonicalCategory(e.Category)
	e.Tags = NormalizeTags(e.Tags)

	if e.Summary == "" && e.Category == "" && len(e.Tags) == 0 {
		return nil, &MalformedOutputError{Raw: raw, Err: errors.New("empty enrichment")}
	}
	return e, nil
}

func (g *Gateway) generate(ctx context.Context, prompt string) (string, error) {
	raw, err := g.gen.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrProvider) || errors.Is(err, ErrMalformedOutput) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrProvider, err)
	}
	return raw, nil
}
