package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/denisok6893-rgb/stay-pricing/internal/domain"
)

func TestNewRedisBaselineCache_BadURL(t *testing.T) {
	if _, err := NewRedisBaselineCache("redis://localhost:6379/notadb", time.Minute); err == nil {
		t.Fatal("expected parse error")
	}
	c, err := NewRedisBaselineCache("localhost:6379", time.Minute)
	if err != nil {
		t.Fatalf("bare address: %v", err)
	}
	_ = c.Close()
}

// Runs only against a live Redis, e.g. REDIS_URL=redis://localhost:6379/15.
func TestRedisBaselineCache_RoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()

	c, err := NewRedisBaselineCache(url, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisBaselineCache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	b := domain.MarketBaseline{Location: "test-loc", Category: "test-cat", AveragePrice: dec("123.45"), ListingCount: 7}
	if err := c.Set(ctx, b); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := c.Get(ctx, "test-loc", "test-cat")
	if err != nil || !ok {
		t.Fatalf("Get ok=%v err=%v", ok, err)
	}
	if !got.AveragePrice.Equal(b.AveragePrice) || got.ListingCount != 7 {
		t.Fatalf("got %+v", got)
	}

	if err := c.Delete(ctx, "test-loc", "test-cat"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, err := c.Get(ctx, "test-loc", "test-cat"); ok || err != nil {
		t.Fatalf("after delete ok=%v err=%v", ok, err)
	}
}
