package access

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newCountingLoader(grants []Grant) (LoadFunc, *int) {
	calls := new(int)
	var mu sync.Mutex
	load := func(ctx context.Context, userID uuid.UUID) ([]Grant, error) {
		mu.Lock()
		*calls++
		mu.Unlock()
		return grants, nil
	}
	return load, calls
}

func TestGrantCacheServesWithinTTL(t *testing.T) {
	userID := uuid.New()
	load, calls := newCountingLoader([]Grant{{UserID: userID, CompanyID: uuid.New()}})
	cache := NewGrantCache(load, 5*time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := cache.Get(context.Background(), userID); err != nil {
			t.Fatalf("get: %v", err)
		}
	}
	if *calls != 1 {
		t.Fatalf("expected 1 store hit, got %d", *calls)
	}
}

func TestGrantCacheExpiresAfterTTL(t *testing.T) {
	userID := uuid.New()
	load, calls := newCountingLoader(nil)
	cache := NewGrantCache(load, 5*time.Minute)

	current := time.Now()
	cache.now = func() time.Time { return current }

	if _, err := cache.Get(context.Background(), userID); err != nil {
		t.Fatalf("get: %v", err)
	}
	current = current.Add(4 * time.Minute)
	if _, err := cache.Get(context.Background(), userID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if *calls != 1 {
		t.Fatalf("entry still fresh, expected 1 store hit, got %d", *calls)
	}

	current = current.Add(time.Minute)
	if _, err := cache.Get(context.Background(), userID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if *calls != 2 {
		t.Fatalf("entry at TTL must refetch, got %d store hits", *calls)
	}
}

func TestGrantCacheInvalidateForcesRefetch(t *testing.T) {
	userID := uuid.New()
	load, calls := newCountingLoader(nil)
	cache := NewGrantCache(load, 5*time.Minute)

	if _, err := cache.Get(context.Background(), userID); err != nil {
		t.Fatalf("get: %v", err)
	}
	cache.Invalidate(userID)
	if _, err := cache.Get(context.Background(), userID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if *calls != 2 {
		t.Fatalf("invalidate must force a refetch, got %d store hits", *calls)
	}
}

func TestGrantCacheInvalidateDropsWholeUserEntry(t *testing.T) {
	userID := uuid.New()
	companyA := uuid.New()
	companyB := uuid.New()

	var mu sync.Mutex
	stored := []Grant{
		{UserID: userID, CompanyID: companyA},
		{UserID: userID, CompanyID: companyB},
	}
	cache := NewGrantCache(func(ctx context.Context, id uuid.UUID) ([]Grant, error) {
		mu.Lock()
		defer mu.Unlock()
		out := make([]Grant, len(stored))
		copy(out, stored)
		return out, nil
	}, 5*time.Minute)

	first, err := cache.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 grants, got %d", len(first))
	}

	// A change affecting one company invalidates the user's entire entry.
	mu.Lock()
	stored = stored[:1]
	mu.Unlock()
	cache.Invalidate(userID)

	second, err := cache.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("stale entry served after invalidation, got %d grants", len(second))
	}
}

func TestGrantCacheInvalidateDuringLoadPreventsStaleEntry(t *testing.T) {
	userID := uuid.New()
	companyID := uuid.New()

	var mu sync.Mutex
	granted := false
	firstLoad := true
	loadStarted := make(chan struct{})
	releaseLoad := make(chan struct{})

	load := func(ctx context.Context, id uuid.UUID) ([]Grant, error) {
		mu.Lock()
		snapshot := granted
		blocking := firstLoad
		firstLoad = false
		mu.Unlock()
		if blocking {
			close(loadStarted)
			<-releaseLoad
		}
		if !snapshot {
			return nil, nil
		}
		return []Grant{{UserID: id, CompanyID: companyID}}, nil
	}
	cache := NewGrantCache(load, 5*time.Minute)

	// A reader starts loading before the grant exists and stalls inside the
	// store call.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := cache.Get(context.Background(), userID); err != nil {
			t.Errorf("get: %v", err)
		}
	}()
	<-loadStarted

	// The grant commits and the write path invalidates while that read is
	// still in flight.
	mu.Lock()
	granted = true
	mu.Unlock()
	cache.Invalidate(userID)
	close(releaseLoad)
	<-done

	// The mutating caller's next read must observe the committed grant, not
	// the pre-mutation result the stalled load carried.
	grants, err := cache.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(grants) != 1 {
		t.Fatalf("read after invalidation returned %d grants, want 1", len(grants))
	}
	if grants[0].CompanyID != companyID {
		t.Fatalf("unexpected grant company %s", grants[0].CompanyID)
	}
}

func TestGrantCacheConcurrentAccess(t *testing.T) {
	userID := uuid.New()
	load, _ := newCountingLoader([]Grant{{UserID: userID, CompanyID: uuid.New()}})
	cache := NewGrantCache(load, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				switch n % 3 {
				case 0:
					cache.Invalidate(userID)
				case 1:
					if _, err := cache.Get(context.Background(), userID); err != nil {
						t.Errorf("get: %v", err)
					}
				default:
					cache.Reset()
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestGrantCacheReturnsCopies(t *testing.T) {
	userID := uuid.New()
	companyID := uuid.New()
	load, _ := newCountingLoader([]Grant{{UserID: userID, CompanyID: companyID}})
	cache := NewGrantCache(load, time.Minute)

	first, err := cache.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	first[0].CompanyID = uuid.New()

	second, err := cache.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if second[0].CompanyID != companyID {
		t.Fatal("caller mutation leaked into the cached entry")
	}
}
