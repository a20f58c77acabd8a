package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T, ttl time.Duration) (*ReadCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewReadCache(client, "vehicles", ttl), mr
}

func TestReadCacheFetchJSONCachesLoaderResult(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "list", "user-1")
	if err != nil {
		t.Fatalf("build key: %v", err)
	}

	calls := 0
	loader := func(ctx context.Context) (interface{}, error) {
		calls++
		return []string{"BA-111-AA", "BA-222-BB"}, nil
	}

	var first []string
	if err := cache.FetchJSON(ctx, key, &first, loader); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	var second []string
	if err := cache.FetchJSON(ctx, key, &second, loader); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single loader call, got %d", calls)
	}
	if len(second) != 2 || second[0] != "BA-111-AA" {
		t.Fatalf("unexpected cached value: %v", second)
	}
}

func TestReadCacheBustInvalidatesNamespace(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	key, _ := cache.BuildKey(ctx, "list")
	calls := 0
	loader := func(ctx context.Context) (interface{}, error) {
		calls++
		return calls, nil
	}

	var v int
	if err := cache.FetchJSON(ctx, key, &v, loader); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if err := cache.Bust(ctx); err != nil {
		t.Fatalf("bust: %v", err)
	}

	key2, _ := cache.BuildKey(ctx, "list")
	if key == key2 {
		t.Fatal("bust must change the composed key")
	}
	if err := cache.FetchJSON(ctx, key2, &v, loader); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected reload after bust, loader ran %d times", calls)
	}
}

func TestReadCacheExpiresWithTTL(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	key, _ := cache.BuildKey(ctx, "list")
	calls := 0
	loader := func(ctx context.Context) (interface{}, error) {
		calls++
		return "payload", nil
	}

	var v string
	if err := cache.FetchJSON(ctx, key, &v, loader); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if err := cache.FetchJSON(ctx, key, &v, loader); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected reload after TTL, loader ran %d times", calls)
	}
}

func TestReadCacheLoaderErrorPropagates(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	key, _ := cache.BuildKey(ctx, "list")
	wantErr := errors.New("query failed")
	var v string
	err := cache.FetchJSON(ctx, key, &v, func(ctx context.Context) (interface{}, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected loader error, got %v", err)
	}
}

func TestReadCacheNilClientFallsThrough(t *testing.T) {
	cache := NewReadCache(nil, "vehicles", time.Minute)
	var v []int
	err := cache.FetchJSON(context.Background(), "any", &v, func(ctx context.Context) (interface{}, error) {
		return []int{1, 2, 3}, nil
	})
	if err != nil {
		t.Fatalf("fetch without redis: %v", err)
	}
	if len(v) != 3 {
		t.Fatalf("unexpected value: %v", v)
	}
}
