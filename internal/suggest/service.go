// Package suggest answers free-text tool searches from the AI suggestion
// cache, asking the model only on a miss.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stacksift/api/internal/ai"
	"github.com/stacksift/api/internal/aicache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/stacksift/api/internal/suggest"

// Gateway is the part of ai.Gateway the service needs.
type Gateway interface {
	SuggestTools(ctx context.Context, query string) ([]ai.Suggestion, error)
}

type Service struct {
	cache   aicache.Store
	gateway Gateway
	logger  *slog.Logger

	hits     metric.Int64Counter
	misses   metric.Int64Counter
	failures metric.Int64Counter
}

// NewService creates a Service reading through cache before asking gateway.
func NewService(cache aicache.Store, gateway Gateway, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "suggest")

	meter := otel.GetMeterProvider().Meter(meterName)
	return &Service{
		cache:    cache,
		gateway:  gateway,
		logger:   logger,
		hits:     counter(meter, logger, "stacksift.ai.cache.hits", "AI suggestion cache hits"),
		misses:   counter(meter, logger, "stacksift.ai.cache.misses", "AI suggestion cache misses"),
		failures: counter(meter, logger, "stacksift.ai.failures", "AI suggestion calls that produced no results, by kind"),
	}
}

func counter(meter metric.Meter, logger *slog.Logger, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		logger.Warn("unable to register metric", "metric", name, "error", err)
		return noop.Int64Counter{}
	}
	return c
}

// Suggest returns tools for query. A cached result set for the normalized
// query is returned without calling the model. On a miss the model is asked
// with the query as typed, and a non-empty answer is cached. Model failures
// yield an empty list and are never returned; only a failed cache read is.
func (s *Service) Suggest(ctx context.Context, query string) ([]ai.Suggestion, error) {
	key := aicache.Normalize(query)

	cached, ok, err := s.cache.Lookup(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("looking up ai cache: %w", err)
	}
	if ok {
		s.hits.Add(ctx, 1)
		s.logger.Debug("ai cache hit", "query", key, "results", len(cached))
		return cached, nil
	}
	s.misses.Add(ctx, 1)

	results, err := s.gateway.SuggestTools(ctx, query)
	if err != nil {
		s.logFailure(ctx, key, err)
		return []ai.Suggestion{}, nil
	}
	if len(results) == 0 {
		s.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "empty")))
		s.logger.Info("ai returned no suggestions", "query", key)
		return []ai.Suggestion{}, nil
	}

	if err := s.cache.Store(ctx, key, results); err != nil {
		s.logger.Error("failed to cache ai suggestions", "query", key, "error", err)
	}
	return results, nil
}

func (s *Service) logFailure(ctx context.Context, key string, err error) {
	kind := ai.Kind(err)
	s.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))

	var malformed *ai.MalformedOutputError
	switch {
	case errors.Is(err, ai.ErrRateLimited):
		s.logger.Warn("ai rate limited", "query", key, "error", err)
	case errors.As(err, &malformed):
		s.logger.Warn("ai returned malformed suggestions", "query", key, "error", err, "raw", malformed.Raw)
	default:
		s.logger.Error("ai suggestion failed", "query", key, "kind", kind, "error", err)
	}
}
