// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-objpoller.
//
// go-objpoller is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces watermark keys.
const DefaultRedisPrefix = "objpoller:watermark:"

// saveScript sets KEYS[1] to ARGV[1] unless the stored value sorts at or
// after it. Values use timeLayout, so string order is time order.
var saveScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur and cur >= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1])
return 1
`)

// RedisClient is the subset of go-redis used by Redis. Any
// redis.UniversalClient satisfies it.
type RedisClient interface {
	redis.Scripter
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Redis stores one string key per entity. Save runs as a script, so the
// compare and the write are atomic across processes sharing the server.
type Redis struct {
	client RedisClient
	prefix string
	close  func() error
}

var _ Store = (*Redis)(nil)

// NewRedis wraps an existing client.
func NewRedis(client RedisClient, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// OpenRedis parses a redis:// URL and connects a client.
func OpenRedis(ctx context.Context, url, prefix string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	r := NewRedis(client, prefix)
	r.close = client.Close
	return r, nil
}

func (r *Redis) key(entity string) string {
	return r.prefix + entity
}

// TryLoad implements Loader.
func (r *Redis) TryLoad(ctx context.Context, entity string) (time.Time, bool, error) {
	raw, err := r.client.Get(ctx, r.key(entity)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load watermark for %s: %w", entity, err)
	}
	t, err := parseTime(entity, raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// Save implements Saver.
func (r *Redis) Save(ctx context.Context, entity string, t time.Time) error {
	if err := saveScript.Run(ctx, r.client, []string{r.key(entity)}, formatTime(t)).Err(); err != nil {
		return fmt.Errorf("save watermark for %s: %w", entity, err)
	}
	return nil
}

// Close releases a client opened by OpenRedis.
func (r *Redis) Close() error {
	if r.close != nil {
		return r.close()
	}
	return nil
}
