// Package store wraps the shared Redis key-value store with retryable
// operations. Connectivity failures are retried with exponential backoff;
// everything else propagates immediately. SetIfAbsent (SETNX with TTL) is
// the single atomic primitive the orchestrator builds mutual exclusion on.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/menuforge/menuforge/pkg/menu"
	"github.com/menuforge/menuforge/pkg/telemetry"
)

// Commands is the slice of the go-redis client the gateway needs. Tests
// substitute a fake built from the go-redis result constructors.
type Commands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RetryConfig bounds the gateway's retry behavior.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `yaml:"max_retries" validate:"gte=0"`

	// BaseDelay is the first backoff delay; attempt n waits
	// BaseDelay * 2^n, capped at MaxDelay.
	BaseDelay time.Duration `yaml:"base_delay"`
	MaxDelay  time.Duration `yaml:"max_delay"`

	// HealthInterval is the minimum spacing between actual PINGs;
	// Healthy calls inside the window reuse the cached verdict.
	HealthInterval time.Duration `yaml:"health_interval"`
}

// DefaultRetryConfig returns the production retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		BaseDelay:      100 * time.Millisecond,
		MaxDelay:       2 * time.Second,
		HealthInterval: 30 * time.Second,
	}
}

// Gateway is the resilient store front. All methods are safe for
// concurrent use.
type Gateway struct {
	client Commands
	cfg    RetryConfig
	log    *telemetry.Logger

	probe *rate.Limiter

	mu      sync.Mutex
	healthy bool
}

// NewGateway wraps a redis client (or compatible fake) with the retry
// policy and a rate-limited health probe.
func NewGateway(client Commands, cfg RetryConfig, log *telemetry.Logger) *Gateway {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 2 * time.Second
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = 30 * time.Second
	}
	return &Gateway{
		client: client,
		cfg:    cfg,
		log:    log.Component("store"),
		probe:  rate.NewLimiter(rate.Every(cfg.HealthInterval), 1),
	}
}

// Get fetches a key. The second return is false when the key is absent.
// Connectivity failures that outlast the retry budget surface as a
// connectivity-class error.
func (g *Gateway) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	var found bool
	err := g.withRetry(ctx, "GET", func() error {
		v, err := g.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		value, found = v, true
		return nil
	})
	return value, found, err
}

// GetOrFallback is Get with a caller-supplied fallback: retry exhaustion
// yields the fallback instead of an error. Used where stale-or-default
// beats failing, e.g. the catalog cache.
func (g *Gateway) GetOrFallback(ctx context.Context, key, fallback string) (string, bool) {
	value, found, err := g.Get(ctx, key)
	if err != nil {
		g.log.Warn().Str("key", key).Err(err).Msg("get failed after retries, using fallback")
		return fallback, false
	}
	if !found {
		return fallback, false
	}
	return value, true
}

// Set writes a key with a TTL.
func (g *Gateway) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return g.withRetry(ctx, "SET", func() error {
		return g.client.Set(ctx, key, value, ttl).Err()
	})
}

// SetIfAbsent atomically creates a key with a TTL when it does not
// exist, returning whether this caller won the creation. This is the
// store's only mutual-exclusion primitive.
func (g *Gateway) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	var acquired bool
	err := g.withRetry(ctx, "SETNX", func() error {
		ok, err := g.client.SetNX(ctx, key, value, ttl).Result()
		if err != nil {
			return err
		}
		acquired = ok
		return nil
	})
	return acquired, err
}

// Delete removes a key. Deleting an absent key is not an error.
func (g *Gateway) Delete(ctx context.Context, key string) error {
	return g.withRetry(ctx, "DEL", func() error {
		return g.client.Del(ctx, key).Err()
	})
}

// Healthy reports whether the store answered a recent PING. Probes are
// rate-limited; calls between probes reuse the last verdict.
func (g *Gateway) Healthy(ctx context.Context) bool {
	if !g.probe.Allow() {
		g.mu.Lock()
		defer g.mu.Unlock()
		return g.healthy
	}

	err := g.client.Ping(ctx).Err()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.healthy = err == nil
	if err != nil {
		g.log.Warn().Err(err).Msg("store health probe failed")
	}
	return g.healthy
}

// withRetry runs op, retrying connectivity-class failures with
// exponential backoff. Non-connectivity errors propagate on the first
// occurrence.
func (g *Gateway) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			g.setHealthy(true)
			return nil
		}
		if !isConnectivity(err) {
			return err
		}

		lastErr = err
		g.setHealthy(false)
		if attempt == g.cfg.MaxRetries {
			break
		}

		delay := g.cfg.BaseDelay << uint(attempt)
		if delay > g.cfg.MaxDelay {
			delay = g.cfg.MaxDelay
		}
		g.log.Warn().
			Str("op", op).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Err(err).
			Msg("store operation failed, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return menu.NewConnectivityError(
				fmt.Sprintf("store %s aborted while backing off", op), ctx.Err()).
				WithCode(menu.ErrCodeStoreUnavailable)
		}
	}

	return menu.NewConnectivityError(
		fmt.Sprintf("store %s failed after %d attempts", op, g.cfg.MaxRetries+1), lastErr).
		WithCode(menu.ErrCodeStoreUnavailable)
}

func (g *Gateway) setHealthy(v bool) {
	g.mu.Lock()
	g.healthy = v
	g.mu.Unlock()
}
