package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestHelper(t *testing.T, prefix string) (*CacheHelper, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCacheHelper(client, prefix), mr
}

func TestCacheHelper_SetGet(t *testing.T) {
	helper, _ := newTestHelper(t, "session:")
	ctx := context.Background()

	type payload struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}

	in := payload{ID: "abc", Title: "Physics review"}
	if err := helper.Set(ctx, "id:abc", in, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var out payload
	if err := helper.Get(ctx, "id:abc", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestCacheHelper_GetMissing(t *testing.T) {
	helper, _ := newTestHelper(t, "session:")

	var out struct{}
	err := helper.Get(context.Background(), "id:missing", &out)
	if err != ErrCacheNotFound {
		t.Errorf("got %v, want ErrCacheNotFound", err)
	}
}

func TestCacheHelper_NilClientDegradesGracefully(t *testing.T) {
	helper := NewCacheHelper(nil, "session:")
	ctx := context.Background()

	if err := helper.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Errorf("Set with nil client: %v", err)
	}
	if err := helper.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete with nil client: %v", err)
	}

	var out string
	if err := helper.Get(ctx, "k", &out); err != ErrCacheNotAvailable {
		t.Errorf("got %v, want ErrCacheNotAvailable", err)
	}
}

func TestCacheHelper_InvalidatePattern(t *testing.T) {
	helper, mr := newTestHelper(t, "participant:")
	ctx := context.Background()

	keys := []string{"session:s1:u1", "session:s1:u2", "session:s2:u1"}
	for _, k := range keys {
		if err := helper.Set(ctx, k, "x", time.Minute); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}

	if err := helper.InvalidatePattern(ctx, "session:s1:*"); err != nil {
		t.Fatalf("InvalidatePattern: %v", err)
	}

	if mr.Exists("participant:session:s1:u1") || mr.Exists("participant:session:s1:u2") {
		t.Error("s1 keys should have been removed")
	}
	if !mr.Exists("participant:session:s2:u1") {
		t.Error("s2 key should have survived")
	}
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	helper, _ := newTestHelper(t, "stats:")
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return map[string]int{"count": 7}, nil
	}

	var out map[string]int
	if err := helper.CacheOrExecute(ctx, "session:s1:counts", &out, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute: %v", err)
	}
	if calls != 1 {
		t.Fatalf("fetch calls = %d, want 1", calls)
	}
	if out["count"] != 7 {
		t.Errorf("count = %d, want 7", out["count"])
	}

	// The async cache write may still be in flight; wait for the key.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if ok, _ := helper.Exists(ctx, "session:s1:counts"); ok {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	var again map[string]int
	if err := helper.CacheOrExecute(ctx, "session:s1:counts", &again, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute (cached): %v", err)
	}
	if calls != 1 {
		t.Errorf("fetch calls = %d, want 1 (second read served from cache)", calls)
	}
}

func TestCacheManager_NilClient(t *testing.T) {
	cm := NewCacheManager(nil)
	if err := cm.HealthCheck(context.Background()); err != ErrCacheNotAvailable {
		t.Errorf("got %v, want ErrCacheNotAvailable", err)
	}
}
