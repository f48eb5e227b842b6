package website

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/stacksift/api/internal/ai"
	"github.com/stacksift/api/internal/linkpreview"
)

var (
	ErrInvalidURL          = errors.New("a valid http or https URL is required")
	ErrTitleRequired       = errors.New("title is required")
	ErrDescriptionRequired = errors.New("description is required")
)

// Enricher fills in missing metadata for a submission. *enrich.Service satisfies it.
type Enricher interface {
	Enrich(ctx context.Context, url string) (*ai.Enrichment, bool)
}

// PageFetcher supplies page metadata. *linkpreview.Fetcher satisfies it.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*linkpreview.Page, error)
}

type Service struct {
	repo     *Repository
	enricher Enricher
	pages    PageFetcher
	logger   *slog.Logger
}

// NewService creates a Service. enricher and pages may be nil.
func NewService(repo *Repository, enricher Enricher, pages PageFetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, enricher: enricher, pages: pages, logger: logger.With("component", "website")}
}

type SubmitInput struct {
	Title       string
	URL         string
	Description string
	Category    string
	Tags        []string
	AddedBy     string
}

// Submit validates and stores a new website. A missing title falls back to
// the page title, and a missing description, category or tag list is filled
// from AI enrichment when available. Values the submitter provided are kept.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*Website, error) {
	rawURL, domain, err := parseWebsiteURL(input.URL)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByURL(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrURLAlreadyExists
	}

	create := CreateInput{
		Title:       strings.TrimSpace(input.Title),
		URL:         rawURL,
		Domain:      domain,
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
		Tags:        submittedTags(input.Tags),
		AddedBy:     input.AddedBy,
	}

	if s.pages != nil {
		page, err := s.pages.Fetch(ctx, rawURL)
		if err != nil {
			s.logger.Debug("page metadata unavailable", "url", rawURL, "error", err)
		} else if page != nil {
			if create.Title == "" {
				create.Title = strings.TrimSpace(page.Title)
			}
			if page.ImageURL != "" {
				create.ScreenshotURL = &page.ImageURL
			}
		}
	}

	if needsEnrichment(create) && s.enricher != nil {
		if e, ok := s.enricher.Enrich(ctx, rawURL); ok {
			mergeEnrichment(&create, e)
		}
	}

	if create.Title == "" {
		return nil, ErrTitleRequired
	}
	if create.Description == "" {
		return nil, ErrDescriptionRequired
	}

	w, err := s.repo.Create(ctx, create)
	if err != nil {
		return nil, err
	}
	s.logger.Info("website added", "id", w.ID, "url", w.URL, "added_by", input.AddedBy)
	return w, nil
}

func needsEnrichment(c CreateInput) bool {
	return c.Description == "" || len(c.Tags) == 0 || c.Category == "" || c.Category == DefaultCategory
}

func mergeEnrichment(c *CreateInput, e *ai.Enrichment) {
	if c.Description == "" {
		c.Description = e.Summary
	}
	if (c.Category == "" || c.Category == DefaultCategory) && e.Category != "" {
		c.Category = e.Category
	}
	if len(c.Tags) == 0 {
		c.Tags = ai.NormalizeTags(e.Tags)
	}
}

// submittedTags keeps the submitter's tags as sent, dropping blank entries.
func submittedTags(tags []string) []string {
	kept := make([]string, 0, len(tags))
	for _, t := range tags {
		if strings.TrimSpace(t) != "" {
			kept = append(kept, t)
		}
	}
	return kept
}

// parseWebsiteURL accepts absolute http(s) URLs and returns the trimmed URL
// and its domain without a leading "www.".
func parseWebsiteURL(raw string) (string, string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return "", "", ErrInvalidURL
	}
	domain := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return raw, domain, nil
}
