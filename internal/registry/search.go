package registry

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"reconciler/internal/logging"
	"reconciler/internal/services"
)

// Searcher is the driver operation the search client needs.
type Searcher interface {
	Search(ctx context.Context, key string) ([]Candidate, error)
}

// SearchClient issues registry lookups for record keys and classifies the
// result as Found, NotFound, or Unavailable. Searches are spaced at least
// rateLimit apart.
type SearchClient struct {
	searcher   Searcher
	logger     *slog.Logger
	rateLimit  time.Duration
	mu         sync.Mutex
	lastLookup time.Time
}

// SearchOption configures a SearchClient.
type SearchOption func(*SearchClient)

// WithRateLimit sets the minimum spacing between searches.
func WithRateLimit(d time.Duration) SearchOption {
	return func(c *SearchClient) {
		if d >= 0 {
			c.rateLimit = d
		}
	}
}

// WithLogger sets the logger used for lookup diagnostics.
func WithLogger(logger *slog.Logger) SearchOption {
	return func(c *SearchClient) {
		c.logger = logging.NewComponentLogger(logger, "registry")
	}
}

// NewSearchClient wraps a driver.
func NewSearchClient(searcher Searcher, opts ...SearchOption) *SearchClient {
	client := &SearchClient{
		searcher:   searcher,
		logger:     logging.NewComponentLogger(nil, "registry"),
		rateLimit:  250 * time.Millisecond,
		lastLookup: time.Unix(0, 0),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Search looks up key. It never returns an error: transport failures surface
// as Unavailable so that an empty result cannot be mistaken for an outage.
func (c *SearchClient) Search(ctx context.Context, key string) LookupResult {
	if c == nil || c.searcher == nil {
		return Unavailable(services.Wrap(services.ErrConfiguration, "registry", "search", "registry client unavailable", nil))
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return Unavailable(services.Wrap(services.ErrValidation, "registry", "search", "empty key", nil))
	}
	if err := c.throttle(ctx); err != nil {
		return Unavailable(services.Wrap(services.ErrLookupUnavailable, "registry", "search", "canceled while rate limited", err))
	}

	start := time.Now()
	candidates, err := c.searcher.Search(ctx, key)
	latency := time.Since(start)
	logger := logging.WithContext(ctx, c.logger)
	if err != nil {
		if !services.IsMarked(err) {
			err = services.Wrap(services.ErrLookupUnavailable, "registry", "search", "lookup failed", err)
		}
		logging.WarnWithContext(logger, "registry search failed", "lookup_unavailable",
			logging.Error(err),
			logging.Duration("latency", latency),
			logging.String(logging.FieldErrorKind, string(services.Kind(err))),
			logging.String(logging.FieldErrorHint, "check registry.base_url and registry availability"),
		)
		result := Unavailable(err)
		result.Latency = latency
		return result
	}
	logger.Debug("registry search completed",
		logging.Int("candidates", len(candidates)),
		logging.Duration("latency", latency),
	)
	result := NotFound()
	if len(candidates) > 0 {
		result = Found(candidates)
	}
	result.Latency = latency
	return result
}

func (c *SearchClient) throttle(ctx context.Context) error {
	c.mu.Lock()
	wait := c.rateLimit - time.Since(c.lastLookup)
	if wait > 0 {
		c.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		c.mu.Lock()
	}
	c.lastLookup = time.Now()
	c.mu.Unlock()
	return nil
}
