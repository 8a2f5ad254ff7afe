package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PotCache guarda no Redis o valor corrente do pote de cada mesa
// (base + acúmulos), evitando recalcular a cada consulta.
type PotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPotCache(rdb *redis.Client, ttl time.Duration) *PotCache {
	return &PotCache{rdb: rdb, ttl: ttl}
}

func key(tableID string) string { return fmt.Sprintf("pot:%s", tableID) }

// Get devolve o pote em cache ("", false quando não há entrada)
func (c *PotCache) Get(ctx context.Context, tableID string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, key(tableID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *PotCache) Set(ctx context.Context, tableID, amount string) error {
	return c.rdb.Set(ctx, key(tableID), amount, c.ttl).Err()
}

// Invalidate remove a entrada; chamado após mutações que mexem no pote
func (c *PotCache) Invalidate(ctx context.Context, tableID string) error {
	return c.rdb.Del(ctx, key(tableID)).Err()
}
