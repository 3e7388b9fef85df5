package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func setupTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	c, err := NewRedisCache("redis://"+s.Addr(), time.Minute)
	if err != nil {
		t.Fatalf("failed to create redis cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, s
}

func TestRedisCache_SetAndGet(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	if err := c.SetJSON(ctx, "style:document:d1:3", payload{Name: "classic", Count: 2}); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}

	var got payload
	found, err := c.GetJSON(ctx, "style:document:d1:3", &got)
	if err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if !found {
		t.Fatal("expected a hit")
	}
	if got.Name != "classic" || got.Count != 2 {
		t.Errorf("unexpected value %+v", got)
	}
}

func TestRedisCache_Miss(t *testing.T) {
	c, _ := setupTestCache(t)

	var got payload
	found, err := c.GetJSON(context.Background(), "missing", &got)
	if err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if found {
		t.Error("expected a miss")
	}
}

func TestRedisCache_KeysArePrefixedAndExpire(t *testing.T) {
	c, s := setupTestCache(t)
	ctx := context.Background()

	if err := c.SetJSON(ctx, "k", payload{Name: "x"}); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}
	if !s.Exists("vowcraft:k") {
		t.Fatal("expected prefixed key")
	}

	s.FastForward(2 * time.Minute)

	var got payload
	found, err := c.GetJSON(ctx, "k", &got)
	if err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if found {
		t.Error("expected the entry to expire")
	}
}

func TestRedisCache_Delete(t *testing.T) {
	c, s := setupTestCache(t)
	ctx := context.Background()

	if err := c.SetJSON(ctx, "k", payload{Name: "x"}); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if s.Exists("vowcraft:k") {
		t.Error("expected key to be deleted")
	}
}

func TestNewRedisCache_BadURL(t *testing.T) {
	if _, err := NewRedisCache("not a url", time.Minute); err == nil {
		t.Error("expected an error for a malformed url")
	}
}
