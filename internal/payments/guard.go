package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eventhub/eventhub-backend/pkg/redis"
)

const webhookScope = "payment-webhook"

// WebhookGuard drops repeated deliveries of the same gateway callback.
type WebhookGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewWebhookGuard(store redis.IdempotencyStore, ttl time.Duration) (*WebhookGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &WebhookGuard{store: store, ttl: ttl}, nil
}

// CheckAndMark reports whether the delivery was already seen and marks it
// otherwise.
func (g *WebhookGuard) CheckAndMark(ctx context.Context, transactionID, status string) (bool, error) {
	if transactionID == "" {
		return false, errors.New("transaction id is required")
	}
	key := g.store.IdempotencyKey(webhookScope, deliveryID(transactionID, status))
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Delete releases the mark so a failed delivery can be retried.
func (g *WebhookGuard) Delete(ctx context.Context, transactionID, status string) error {
	if transactionID == "" {
		return errors.New("transaction id is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(webhookScope, deliveryID(transactionID, status)))
}

func deliveryID(transactionID, status string) string {
	return transactionID + ":" + status
}
