package style

import (
	"context"
	"fmt"
	"log/slog"

	"vowcraft/internal/domain/models/invitation"
	"vowcraft/internal/metrics"
)

// Cache stores resolved styles. Entries are keyed by version, so they never go stale.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}) error
}

// Service resolves styles for documents and branches, caching per version.
type Service struct {
	cache   Cache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewService creates a style service. cache may be nil.
func NewService(cache Cache, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{cache: cache, metrics: m, logger: logger}
}

// ResolveDocument returns the resolved style of a committed document version.
func (s *Service) ResolveDocument(ctx context.Context, doc *invitation.Document) *ResolvedStyle {
	return s.resolve(ctx, fmt.Sprintf("style:document:%s:%d", doc.ID, doc.Version), doc)
}

// ResolveBranch returns the resolved style of a branch version.
func (s *Service) ResolveBranch(ctx context.Context, branch *invitation.Branch) *ResolvedStyle {
	return s.resolve(ctx, fmt.Sprintf("style:branch:%s:%d", branch.ID, branch.Version()), &branch.Document)
}

func (s *Service) resolve(ctx context.Context, key string, doc *invitation.Document) *ResolvedStyle {
	if s.cache != nil {
		var cached ResolvedStyle
		found, err := s.cache.GetJSON(ctx, key, &cached)
		switch {
		case err != nil:
			s.metrics.StyleCacheTotal.WithLabelValues("error").Inc()
			s.logger.Warn("style cache read failed", "key", key, "error", err)
		case found:
			s.metrics.StyleCacheTotal.WithLabelValues("hit").Inc()
			return &cached
		default:
			s.metrics.StyleCacheTotal.WithLabelValues("miss").Inc()
		}
	}

	resolved := ResolveDocument(doc)
	degraded := resolved.Degraded()
	for _, fb := range degraded {
		s.metrics.StyleFallbackTotal.WithLabelValues(string(fb.Property)).Inc()
	}
	if len(resolved.Fallbacks) > 0 {
		s.logger.Debug("style resolved with fallbacks",
			"key", key,
			"fallbacks", len(resolved.Fallbacks),
			"degraded", len(degraded),
		)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, resolved); err != nil {
			s.logger.Warn("style cache write failed", "key", key, "error", err)
		}
	}
	return &resolved
}
