package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/efb/signals/signals-backend/internal/domain"
	"github.com/efb/signals/signals-backend/internal/parser"
	"github.com/efb/signals/signals-backend/internal/registry"
	"github.com/efb/signals/signals-backend/internal/timeseries"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultCacheTTL applies to sources without their own cacheTTL
	DefaultCacheTTL = 1 * time.Hour
	// DefaultBatchConcurrency bounds concurrent pipelines in GetMany
	DefaultBatchConcurrency = 8
)

// SeriesServiceConfig holds configuration for the series service
type SeriesServiceConfig struct {
	DefaultCacheTTL  time.Duration
	BatchConcurrency int
}

// SeriesResult is one member of a batch request
type SeriesResult struct {
	Envelope *domain.Envelope
	Err      error
}

// SeriesService runs the fetch, parse, normalize, annotate and window pipeline for registry sources
type SeriesService struct {
	registry    *registry.Registry
	fetcher     domain.Fetcher
	cache       domain.SeriesCache
	defaultTTL  time.Duration
	concurrency int
	now         func() time.Time
}

// NewSeriesService creates a new SeriesService. cache may be nil.
func NewSeriesService(reg *registry.Registry, fetcher domain.Fetcher, cache domain.SeriesCache, cfg SeriesServiceConfig) *SeriesService {
	if cfg.DefaultCacheTTL <= 0 {
		cfg.DefaultCacheTTL = DefaultCacheTTL
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = DefaultBatchConcurrency
	}
	return &SeriesService{
		registry:    reg,
		fetcher:     fetcher,
		cache:       cache,
		defaultTTL:  cfg.DefaultCacheTTL,
		concurrency: cfg.BatchConcurrency,
		now:         time.Now,
	}
}

// List returns the registry listing in declaration order
func (s *SeriesService) List() []domain.SourceSummary {
	sources := s.registry.All()
	summaries := make([]domain.SourceSummary, 0, len(sources))
	for _, src := range sources {
		summaries = append(summaries, domain.SourceSummary{
			ID:        src.ID,
			Name:      src.Name,
			Source:    src.Label,
			Unit:      src.Unit,
			Frequency: src.Frequency,
		})
	}
	return summaries
}

// Source returns the registry record for id
func (s *SeriesService) Source(id string) (*domain.Source, error) {
	src, ok := s.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, id)
	}
	return src, nil
}

// CacheTTL returns how long envelopes of src stay fresh
func (s *SeriesService) CacheTTL(src *domain.Source) time.Duration {
	if src.CacheTTL > 0 {
		return src.CacheTTL
	}
	return s.defaultTTL
}

// ResolveParams applies defaults and validation to the currency pair of an exchange-rate source.
// Other sources ignore params.
func (s *SeriesService) ResolveParams(src *domain.Source, params domain.SeriesParams) (domain.SeriesParams, error) {
	if src.Variant != domain.VariantExchangeRate {
		return domain.SeriesParams{}, nil
	}

	base := strings.ToUpper(strings.TrimSpace(params.Base))
	if base == "" {
		base = src.DefaultBase
	}
	symbol := strings.ToUpper(strings.TrimSpace(params.Symbol))
	if symbol == "" {
		symbol = src.DefaultSymbol
	}

	if !isCurrencyCode(base) {
		return domain.SeriesParams{}, fmt.Errorf("%w: base must be a 3-letter currency code", domain.ErrInvalidInput)
	}
	if !isCurrencyCode(symbol) {
		return domain.SeriesParams{}, fmt.Errorf("%w: sym must be a 3-letter currency code", domain.ErrInvalidInput)
	}
	return domain.SeriesParams{Base: base, Symbol: symbol}, nil
}

// Get returns the envelope for id, serving from cache when possible and applying the
// source's failure policy when the pipeline fails
func (s *SeriesService) Get(ctx context.Context, id string, params domain.SeriesParams) (*domain.Envelope, error) {
	src, err := s.Source(id)
	if err != nil {
		return nil, err
	}
	params, err = s.ResolveParams(src, params)
	if err != nil {
		return nil, err
	}

	key := cacheKey(src, params)
	if cached := s.cached(ctx, key); cached != nil {
		return cached, nil
	}

	envelope, err := s.Build(ctx, src, params)
	if err != nil {
		return s.applyPolicy(src, err)
	}

	s.store(ctx, key, envelope, s.CacheTTL(src))
	return envelope, nil
}

// GetMany runs Get for each id concurrently. Every id gets its own envelope or error.
func (s *SeriesService) GetMany(ctx context.Context, ids []string) map[string]SeriesResult {
	results := make([]SeriesResult, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			envelope, err := s.Get(gctx, id, domain.SeriesParams{})
			results[i] = SeriesResult{Envelope: envelope, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]SeriesResult, len(ids))
	for i, id := range ids {
		out[id] = results[i]
	}
	return out
}

// RefreshResult summarizes a refresh pass
type RefreshResult struct {
	Refreshed []string
	Failed    map[string]error
}

// Refresh rebuilds every source with default params and rewrites the cache, bypassing cached reads
func (s *SeriesService) Refresh(ctx context.Context) *RefreshResult {
	result := &RefreshResult{Failed: make(map[string]error)}

	for _, src := range s.registry.All() {
		if ctx.Err() != nil {
			break
		}
		params, err := s.ResolveParams(src, domain.SeriesParams{})
		if err != nil {
			result.Failed[src.ID] = err
			continue
		}
		envelope, err := s.Build(ctx, src, params)
		if err != nil {
			result.Failed[src.ID] = err
			continue
		}
		s.store(ctx, cacheKey(src, params), envelope, s.CacheTTL(src))
		result.Refreshed = append(result.Refreshed, src.ID)
	}
	return result
}

// Build runs the pipeline for src without cache or failure policy
func (s *SeriesService) Build(ctx context.Context, src *domain.Source, params domain.SeriesParams) (*domain.Envelope, error) {
	var body []byte
	if src.RequiresFetch() {
		var err error
		body, err = s.fetcher.Fetch(ctx, buildFetchRequest(src, params))
		if err != nil {
			return nil, err
		}
	}

	raw, err := parser.Parse(src, parser.Input{Body: body, Params: params, Now: s.now()})
	if err != nil {
		return nil, err
	}

	points := timeseries.Normalize(raw, src.Frequency)
	points = timeseries.AnnotateYoY(points, src.Frequency, src.YoY)
	points = timeseries.TrailingWindow(points, src.Window)

	envelope := &domain.Envelope{
		ID:        src.ID,
		Source:    src.Label,
		Unit:      src.Unit,
		Frequency: src.Frequency,
		Note:      src.Note,
		Points:    points,
	}
	if src.Variant == domain.VariantExchangeRate {
		envelope.Pair = params.Base + "/" + params.Symbol
	}
	return envelope, nil
}

func (s *SeriesService) applyPolicy(src *domain.Source, err error) (*domain.Envelope, error) {
	// a bad symbol is a client error, never masked by the fallback
	if src.OnFailure == domain.FailureFallback && !errors.Is(err, domain.ErrSymbolNotFound) {
		log.Warn().Err(err).Str("series", src.ID).Msg("Serving fallback envelope")
		return domain.FallbackEnvelope(src), nil
	}
	return nil, fmt.Errorf("series %s: %w", src.ID, err)
}

func (s *SeriesService) cached(ctx context.Context, key string) *domain.Envelope {
	if s.cache == nil {
		return nil
	}
	envelope, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Series cache read failed")
		return nil
	}
	return envelope
}

func (s *SeriesService) store(ctx context.Context, key string, envelope *domain.Envelope, ttl time.Duration) {
	if s.cache == nil || envelope.IsFallback() {
		return
	}
	if err := s.cache.Set(ctx, key, envelope, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Series cache write failed")
	}
}

func buildFetchRequest(src *domain.Source, params domain.SeriesParams) domain.FetchRequest {
	target := src.URL
	if params.Base != "" {
		target = strings.ReplaceAll(target, "{base}", url.PathEscape(params.Base))
	}

	headers := make(map[string]string, len(src.Headers))
	for k, v := range src.Headers {
		headers[k] = v
	}

	return domain.FetchRequest{
		Method:  http.MethodGet,
		URL:     target,
		Headers: headers,
	}
}

func cacheKey(src *domain.Source, params domain.SeriesParams) string {
	if params.Base == "" && params.Symbol == "" {
		return src.ID
	}
	return src.ID + ":" + params.Base + ":" + params.Symbol
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
