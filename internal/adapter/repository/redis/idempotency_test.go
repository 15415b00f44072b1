package redis

import (
	"context"
	"testing"
	"time"
)

func TestIdempotencyStore_ReserveNewKey(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	reserved, stored, err := store.Reserve(ctx, "pending", time.Minute)
	if err != nil || !reserved || stored != nil {
		t.Fatalf("unexpected result: reserved=%v stored=%v err=%v", reserved, stored, err)
	}

	val, err := client.Get(ctx, store.prefix+"pending").Result()
	if err != nil || val != processingMarker {
		t.Fatalf("expected placeholder lock, got val=%s err=%v", val, err)
	}

	if ttl := mr.TTL(store.prefix + "pending"); ttl != time.Minute {
		t.Fatalf("expected ttl of one minute, got %v", ttl)
	}
}

func TestIdempotencyStore_ReserveInFlight(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	if _, _, err := store.Reserve(ctx, "key", time.Minute); err != nil {
		t.Fatalf("first reserve failed: %v", err)
	}

	reserved, stored, err := store.Reserve(ctx, "key", time.Minute)
	if err != nil || reserved || stored != nil {
		t.Fatalf("expected in-flight result, got reserved=%v stored=%s err=%v", reserved, stored, err)
	}
}

func TestIdempotencyStore_ReserveCompleted(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	if _, _, err := store.Reserve(ctx, "key", time.Minute); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := store.Complete(ctx, "key", []byte("done"), time.Minute); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	reserved, stored, err := store.Reserve(ctx, "key", time.Minute)
	if err != nil || reserved || string(stored) != "done" {
		t.Fatalf("expected stored response, got reserved=%v stored=%s err=%v", reserved, stored, err)
	}
}

func TestIdempotencyStore_Release(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	if _, _, err := store.Reserve(ctx, "key", time.Minute); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := store.Release(ctx, "key"); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	reserved, _, err := store.Reserve(ctx, "key", time.Minute)
	if err != nil || !reserved {
		t.Fatalf("expected key to be reservable again, got reserved=%v err=%v", reserved, err)
	}
}
