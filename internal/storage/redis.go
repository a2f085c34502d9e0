package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tinydoc/internal/record"
)

// RedisBackend stores one collection's JSON document under a single key.
type RedisBackend struct {
	Client redis.UniversalClient
	Key    string
	Schema record.Schema
}

func NewRedisBackend(rdb redis.UniversalClient, prefix string, s record.Schema) *RedisBackend {
	return &RedisBackend{Client: rdb, Key: prefix + s.Name, Schema: s}
}

func (b *RedisBackend) Load(ctx context.Context) (*record.Collection, error) {
	data, err := b.Client.Get(ctx, b.Key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, record.ErrNoState
		}
		return nil, fmt.Errorf("redis load %s: %w", b.Key, err)
	}
	return record.Decode(b.Schema, data)
}

func (b *RedisBackend) Save(ctx context.Context, c *record.Collection) error {
	doc, err := record.Encode(b.Schema, c)
	if err != nil {
		return err
	}
	if err := b.Client.Set(ctx, b.Key, doc, 0).Err(); err != nil {
		return fmt.Errorf("redis save %s: %w", b.Key, err)
	}
	return nil
}
