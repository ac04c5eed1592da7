package vehicles

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey holds the shared reference set.
const DefaultRedisKey = "breadcrumbs:vehicles"

// RedisStore shares the reference set between services as a Redis SET.
type RedisStore struct {
	rdb *redis.Client
	key string
}

func NewRedisStore(rdb *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{rdb: rdb, key: key}
}

// Save replaces the stored set with s in one MULTI/EXEC.
func (r *RedisStore) Save(ctx context.Context, s *Set) error {
	ids := s.IDs()
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, r.key)
		if len(members) > 0 {
			p.SAdd(ctx, r.key, members...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save vehicle set: %w", err)
	}
	return nil
}

// Load reads the stored set. A missing key is an empty set.
func (r *RedisStore) Load(ctx context.Context) (*Set, error) {
	members, err := r.rdb.SMembers(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("load vehicle set: %w", err)
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("load vehicle set: member %q: %w", m, err)
		}
		ids = append(ids, id)
	}
	return NewSet(ids...), nil
}
