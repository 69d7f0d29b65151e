package methods

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// StorePort abstracts the Postgres repository.
type StorePort interface {
	ListActive(ctx context.Context) ([]Method, error)
}

const (
	nameKeyPrefix = "tillpoint:method_name:"
	defaultTTL    = 15 * time.Minute
)

// Registry is the payment-method lookup injected into calculation callers.
// Display names are served through a best-effort, read-through Redis cache
// refreshed externally; staleness affects labels only, never balances. When
// both the store and the cache are unavailable the built-in defaults apply.
type Registry struct {
	store  StorePort
	redis  *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// NewRegistry constructs the registry. Both store and redis may be nil, in
// which case only the fallback defaults are served.
func NewRegistry(store StorePort, redisClient *redis.Client, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{store: store, redis: redisClient, logger: logger, ttl: defaultTTL}
}

// ActiveMethods lists the configured methods, falling back to the defaults
// when the store is unavailable or empty.
func (r *Registry) ActiveMethods(ctx context.Context) []Method {
	if r.store != nil {
		listed, err := r.store.ListActive(ctx)
		if err != nil {
			r.logger.Warn("methods: list active", slog.Any("error", err))
		} else if len(listed) > 0 {
			return listed
		}
	}
	return Defaults()
}

// ActiveCodes lists the configured method codes.
func (r *Registry) ActiveCodes(ctx context.Context) []string {
	active := r.ActiveMethods(ctx)
	codes := make([]string, 0, len(active))
	for _, m := range active {
		codes = append(codes, m.Code)
	}
	return codes
}

// DisplayName resolves a method code to its display label through the cache.
func (r *Registry) DisplayName(ctx context.Context, code string) string {
	if r.redis != nil {
		cached, err := r.redis.Get(ctx, nameKeyPrefix+code).Result()
		if err == nil && cached != "" {
			return cached
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			r.logger.Warn("methods: cache get", slog.String("code", code), slog.Any("error", err))
		}
	}
	name := r.lookupName(ctx, code)
	if r.redis != nil {
		if err := r.redis.Set(ctx, nameKeyPrefix+code, name, r.ttl).Err(); err != nil {
			r.logger.Warn("methods: cache set", slog.String("code", code), slog.Any("error", err))
		}
	}
	return name
}

func (r *Registry) lookupName(ctx context.Context, code string) string {
	for _, m := range r.ActiveMethods(ctx) {
		if m.Code == code {
			return m.Name
		}
	}
	return FallbackName(code)
}

// Refresh warms the display-name cache for every active method. Background
// jobs call this so that read paths mostly hit Redis.
func (r *Registry) Refresh(ctx context.Context) error {
	if r.redis == nil {
		return nil
	}
	for _, m := range r.ActiveMethods(ctx) {
		if err := r.redis.Set(ctx, nameKeyPrefix+m.Code, m.Name, r.ttl).Err(); err != nil {
			return err
		}
	}
	return nil
}
