package cron

import (
	"context"
	"testing"
	"time"

	"github.com/eventhub/eventhub-backend/pkg/redis"
)

type memoryLockStore struct {
	values map[string]string
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryLockStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.ErrNil
	}
	return v, nil
}

func (m *memoryLockStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func TestRedisLockIsExclusiveUntilReleased(t *testing.T) {
	store := &memoryLockStore{values: map[string]string{}}
	first, err := NewRedisLock(store, "eh:lock:cron-worker", 0)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	second, _ := NewRedisLock(store, "eh:lock:cron-worker", time.Minute)
	ctx := context.Background()

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("expected first acquire, ok=%v err=%v", ok, err)
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatal("second instance should not acquire a held lock")
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("releasing an unowned lock should be a no-op: %v", err)
	}
	if _, held := store.values["eh:lock:cron-worker"]; !held {
		t.Fatal("non-owner release must not free the lock")
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatal("expected lock free after owner release")
	}
}

func TestRedisLockReleaseToleratesExpiredKey(t *testing.T) {
	store := &memoryLockStore{values: map[string]string{}}
	lock, _ := NewRedisLock(store, "eh:lock:cron-worker", time.Minute)
	ctx := context.Background()
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("expected acquire")
	}
	delete(store.values, "eh:lock:cron-worker")
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("expired key should release cleanly: %v", err)
	}
}

func TestNewRedisLockValidates(t *testing.T) {
	if _, err := NewRedisLock(nil, "k", 0); err == nil {
		t.Fatal("expected missing client error")
	}
	if _, err := NewRedisLock(&memoryLockStore{}, "", 0); err == nil {
		t.Fatal("expected missing key error")
	}
}
