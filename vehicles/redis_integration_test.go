//go:build integration

package vehicles

import (
	"context"
	"os"
	"slices"
	"testing"

	"github.com/redis/go-redis/v9"
)

// Run with: REDIS_ADDR=localhost:6379 go test -tags=integration ./vehicles/...

func TestIntegration_RedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("skipping: REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Fatalf("redis ping: %v", err)
	}

	store := NewRedisStore(rdb, "breadcrumbs:test:vehicles")
	t.Cleanup(func() { rdb.Del(context.Background(), "breadcrumbs:test:vehicles") })

	if err := store.Save(ctx, NewSet(3, 1, 2)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// second save replaces, not merges
	if err := store.Save(ctx, NewSet(4, 1)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ids := got.IDs(); !slices.Equal(ids, []int64{1, 4}) {
		t.Errorf("ids = %v, want [1 4]", ids)
	}
}
