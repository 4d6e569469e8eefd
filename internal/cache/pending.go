// Package cache holds the pending-checkout store: wallet checkouts are not
// persisted as orders until capture succeeds, so the normalized payload
// lives in a shared keyed store in the interim. Redis (not process memory)
// so confirmations survive restarts and multiple server instances.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/declared-as-ala/backend/internal/config"
	"github.com/declared-as-ala/backend/internal/model"
)

type PendingStore interface {
	Put(ctx context.Context, sessionID string, order *model.Order) error
	// Get returns (nil, nil) when no payload exists for sessionID.
	Get(ctx context.Context, sessionID string) (*model.Order, error)
	Delete(ctx context.Context, sessionID string) error
}

type redisPendingStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPendingStore(cfg *config.Redis) PendingStore {
	return &redisPendingStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		ttl: cfg.PendingTTL,
	}
}

func pendingKey(sessionID string) string {
	return fmt.Sprintf("checkout:pending:%s", sessionID)
}

func (s *redisPendingStore) Put(ctx context.Context, sessionID string, order *model.Order) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal pending checkout: %w", err)
	}
	return s.client.Set(ctx, pendingKey(sessionID), payload, s.ttl).Err()
}

func (s *redisPendingStore) Get(ctx context.Context, sessionID string) (*model.Order, error) {
	payload, err := s.client.Get(ctx, pendingKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var order model.Order
	if err := json.Unmarshal(payload, &order); err != nil {
		return nil, fmt.Errorf("unmarshal pending checkout: %w", err)
	}
	return &order, nil
}

func (s *redisPendingStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, pendingKey(sessionID)).Err()
}
