package cron

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kitchenartsandletters/damaged-books-service/pkg/redis"
)

func newLockClient(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	return redis.NewFromClient(raw)
}

func TestRedisLockMutualExclusion(t *testing.T) {
	client := newLockClient(t)
	key := client.LockKey("reconcile")
	ctx := context.Background()

	first, err := NewRedisLock(client, key, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	second, err := NewRedisLock(client, key, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}

	ok, err := first.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	ok, err = second.Acquire(ctx)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if ok {
		t.Fatal("second instance should not acquire a held lock")
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = second.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("acquire after release: ok=%v err=%v", ok, err)
	}
}

func TestRedisLockReleaseIgnoresForeignOwner(t *testing.T) {
	client := newLockClient(t)
	key := client.LockKey("reconcile")
	ctx := context.Background()

	lock, err := NewRedisLock(client, key, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	if ok, err := lock.Acquire(ctx); err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}

	// Simulate the TTL expiring and another instance taking over.
	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del: %v", err)
	}
	if err := client.Set(ctx, key, "other-owner", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	value, err := client.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if value != "other-owner" {
		t.Fatalf("release deleted a lock it no longer owned: %q", value)
	}
}

func TestRedisLockReleaseWithoutAcquireIsNoop(t *testing.T) {
	client := newLockClient(t)
	lock, err := NewRedisLock(client, client.LockKey("reconcile"), time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
}
