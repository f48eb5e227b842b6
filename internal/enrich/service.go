// Package enrich generates a summary, category and tags for a submitted
// website. Enrichment is best effort: callers get a result or nothing.
package enrich

import (
	"context"
	"errors"
	"log/slog"

	"github.com/stacksift/api/internal/ai"
	"github.com/stacksift/api/internal/linkpreview"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/stacksift/api/internal/enrich"

// Describer is the part of ai.Gateway the service needs.
type Describer interface {
	DescribeWebsite(ctx context.Context, url string, page ai.PageContext) (*ai.Enrichment, error)
}

// PageFetcher supplies page metadata used as prompt context. *linkpreview.Fetcher satisfies it.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*linkpreview.Page, error)
}

type Service struct {
	describer Describer
	pages     PageFetcher
	logger    *slog.Logger
	outcomes  metric.Int64Counter
}

// NewService creates a Service. pages may be nil, in which case prompts are
// built from the URL alone.
func NewService(describer Describer, pages PageFetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "enrich")

	outcomes, err := otel.GetMeterProvider().Meter(meterName).Int64Counter(
		"stacksift.ai.enrichments",
		metric.WithDescription("Website enrichment attempts, by outcome"),
	)
	if err != nil {
		logger.Warn("unable to register metric", "metric", "stacksift.ai.enrichments", "error", err)
		outcomes = noop.Int64Counter{}
	}

	return &Service{describer: describer, pages: pages, logger: logger, outcomes: outcomes}
}

// Enrich returns generated metadata for url. It never fails: any problem
// with the page fetch is ignored and any model failure yields ok == false.
func (s *Service) Enrich(ctx context.Context, url string) (*ai.Enrichment, bool) {
	var page ai.PageContext
	if s.pages != nil {
		p, err := s.pages.Fetch(ctx, url)
		if err != nil {
			s.logger.Debug("page metadata unavailable", "url", url, "error", err)
		} else if p != nil {
			page = ai.PageContext{Title: p.Title, Description: p.Description}
		}
	}

	e, err := s.describer.DescribeWebsite(ctx, url, page)
	if err != nil {
		s.record(ctx, ai.Kind(err))
		var malformed *ai.MalformedOutputError
		switch {
		case errors.Is(err, ai.ErrRateLimited):
			s.logger.Warn("ai rate limited during enrichment", "url", url)
		case errors.As(err, &malformed):
			s.logger.Warn("ai returned malformed enrichment", "url", url, "error", err, "raw", malformed.Raw)
		default:
			s.logger.Error("enrichment failed", "url", url, "error", err)
		}
		return nil, false
	}
	if e == nil {
		s.record(ctx, "empty")
		return nil, false
	}

	s.record(ctx, "ok")
	return e, true
}

func (s *Service) record(ctx context.Context, outcome string) {
	s.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
