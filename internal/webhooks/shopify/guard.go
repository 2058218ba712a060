package shopifywebhook

import (
	"context"
	"time"

	"github.com/kitchenartsandletters/damaged-books-service/pkg/logger"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/redis"
)

const guardScope = "shopify"

// IdempotencyGuard deduplicates webhook deliveries by their delivery id. It
// is best effort: a redis failure admits the delivery and relies on the rule
// engine's check-before-write mutations as the backstop.
type IdempotencyGuard struct {
	store  redis.IdempotencyStore
	ttl    time.Duration
	logger *logger.Logger
}

// NewIdempotencyGuard builds a guard with the given retention TTL.
func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) *IdempotencyGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyGuard{store: store, ttl: ttl, logger: logg}
}

// Admit reports whether this delivery should be processed. An empty delivery
// id is always admitted.
func (g *IdempotencyGuard) Admit(ctx context.Context, deliveryID string) bool {
	if deliveryID == "" || g.store == nil {
		return true
	}
	key := g.store.IdempotencyKey(guardScope, deliveryID)
	won, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		if g.logger != nil {
			g.logger.Warn(ctx, "idempotency check failed, admitting delivery")
		}
		return true
	}
	return won
}

// Release forgets a delivery id so an upstream retry can be admitted again.
// Used when processing failed before any state was touched.
func (g *IdempotencyGuard) Release(ctx context.Context, deliveryID string) {
	if deliveryID == "" || g.store == nil {
		return
	}
	key := g.store.IdempotencyKey(guardScope, deliveryID)
	if err := g.store.Del(ctx, key); err != nil && g.logger != nil {
		g.logger.Warn(ctx, "idempotency release failed")
	}
}
