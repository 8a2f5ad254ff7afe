package scheduler

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTickLock implementa TickLock com SETNX: a instância que grava a chave
// primeiro processa o tick, as demais pulam.
type RedisTickLock struct {
	Rdb *redis.Client
	Key string
	TTL time.Duration
}

func NewRedisTickLock(rdb *redis.Client, ttl time.Duration) *RedisTickLock {
	return &RedisTickLock{Rdb: rdb, Key: "lifecycle:tick", TTL: ttl}
}

func (l *RedisTickLock) TryAcquire(ctx context.Context) (bool, error) {
	return l.Rdb.SetNX(ctx, l.Key, "1", l.TTL).Result()
}

func (l *RedisTickLock) Release(ctx context.Context) {
	_ = l.Rdb.Del(ctx, l.Key).Err()
}
