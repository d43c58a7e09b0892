package repository

import (
	"context"
	"encoding/json"
	"time"

	"aparca/internal/entities"

	"github.com/redis/go-redis/v9"
)

const (
	lotListKey  = "lots:public"
	lotCacheTTL = 30 * time.Second
)

// LotCache keeps a short-lived snapshot of the public lot listing in redis.
// A nil client disables caching entirely.
type LotCache struct {
	Client *redis.Client
}

func NewLotCache(client *redis.Client) *LotCache {
	return &LotCache{Client: client}
}

func (c *LotCache) GetPublicLots(ctx context.Context) ([]entities.LotResponse, bool) {
	if c == nil || c.Client == nil {
		return nil, false
	}
	raw, err := c.Client.Get(ctx, lotListKey).Bytes()
	if err != nil {
		// redis.Nil and transport errors alike fall back to the database.
		return nil, false
	}
	var lots []entities.LotResponse
	if err := json.Unmarshal(raw, &lots); err != nil {
		return nil, false
	}
	return lots, true
}

func (c *LotCache) SetPublicLots(ctx context.Context, lots []entities.LotResponse) {
	if c == nil || c.Client == nil {
		return
	}
	raw, err := json.Marshal(lots)
	if err != nil {
		return
	}
	c.Client.Set(ctx, lotListKey, raw, lotCacheTTL)
}

// Invalidate drops the snapshot; called when an admin approves or removes a
// lot so the public listing reflects it immediately.
func (c *LotCache) Invalidate(ctx context.Context) {
	if c == nil || c.Client == nil {
		return
	}
	c.Client.Del(ctx, lotListKey)
}
