package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// GeminiGenerator calls the Gemini API. An optional local budget stops the
// service from exceeding its provider quota; a denied call is reported as
// ErrRateLimited without contacting the provider.
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
}

// NewGeminiGenerator creates a generator for model that makes at most
// requestsPerMinute calls a minute.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, requestsPerMinute int) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiGenerator{
		client:  client,
		model:   model,
		limiter: newBudget(requestsPerMinute),
	}, nil
}

// newBudget returns nil (unlimited) when requestsPerMinute is zero.
func newBudget(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute)
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.limiter != nil && !g.limiter.Allow() {
		return "", fmt.Errorf("%w: local request budget exhausted", ErrRateLimited)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", classifyError(err)
	}

	text := responseText(resp)
	if text == "" {
		return "", &MalformedOutputError{Err: errors.New("empty response")}
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" && !part.Thought {
				sb.WriteString(part.Text)
			}
		}
		// Only the first candidate with content is used.
		if sb.Len() > 0 {
			break
		}
	}
	return sb.String()
}

func classifyError(err error) error {
	if isRateLimitError(err) {
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %w", ErrProvider, err)
}

func isRateLimitError(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED"
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code == http.StatusTooManyRequests || apiErrPtr.Status == "RESOURCE_EXHAUSTED"
	}
	return strings.Contains(err.Error(), "429")
}

// Disabled is the Generator used when no API key is configured.
type Disabled struct{}

func (Disabled) Generate(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: %w", ErrProvider, ErrDisabled)
}
