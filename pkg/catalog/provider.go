package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/menuforge/menuforge/pkg/menu"
	"github.com/menuforge/menuforge/pkg/telemetry"
)

// cacheKeyPrefix namespaces cached restaurant catalogs in the store.
const cacheKeyPrefix = "menu_cache:"

// Cache is the slice of the store gateway the provider needs.
type Cache interface {
	GetOrFallback(ctx context.Context, key, fallback string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// ProviderConfig configures the upstream dish API client.
type ProviderConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// Provider fetches restaurant catalogs from the upstream dish API,
// caching results in the shared store. Upstream failures degrade to an
// empty catalog; the transport error never propagates to callers.
type Provider struct {
	cfg    ProviderConfig
	client *http.Client
	cache  Cache
	log    *telemetry.Logger
}

// NewProvider creates a catalog provider. cache may be nil to disable
// catalog caching.
func NewProvider(cfg ProviderConfig, cache Cache, log *telemetry.Logger) *Provider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cache:  cache,
		log:    log.Component("catalog"),
	}
}

// Fetch returns the restaurant's dishes, from cache when possible. Any
// failure yields an empty list.
func (p *Provider) Fetch(ctx context.Context, restaurantID string) []menu.Dish {
	key := cacheKeyPrefix + restaurantID

	if p.cache != nil {
		if cached, ok := p.cache.GetOrFallback(ctx, key, ""); ok {
			var dishes []menu.Dish
			if err := json.Unmarshal([]byte(cached), &dishes); err == nil {
				return dishes
			}
			p.log.Warn().Str("restaurant_id", restaurantID).Msg("discarding malformed cached catalog")
		}
	}

	dishes := p.fetchUpstream(ctx, restaurantID)

	if p.cache != nil && len(dishes) > 0 {
		if payload, err := json.Marshal(dishes); err == nil {
			if err := p.cache.Set(ctx, key, string(payload), p.cfg.CacheTTL); err != nil {
				p.log.Warn().Err(err).Msg("caching catalog failed")
			}
		}
	}

	return dishes
}

func (p *Provider) fetchUpstream(ctx context.Context, restaurantID string) []menu.Dish {
	url := fmt.Sprintf("%s/dishes/%s", p.cfg.BaseURL, restaurantID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		p.log.Error().Err(err).Msg("building catalog request failed")
		return nil
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Warn().Str("restaurant_id", restaurantID).Err(err).Msg("catalog fetch failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.log.Warn().
			Str("restaurant_id", restaurantID).
			Int("status", resp.StatusCode).
			Msg("upstream returned non-OK status")
		return nil
	}

	var dishes []menu.Dish
	if err := json.NewDecoder(resp.Body).Decode(&dishes); err != nil {
		p.log.Warn().Str("restaurant_id", restaurantID).Err(err).Msg("decoding catalog failed")
		return nil
	}
	return dishes
}
