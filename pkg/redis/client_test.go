package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/eventhub/eventhub-backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestSetNXOnlyWritesOnce(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	ok, err := client.SetNX(ctx, "k", "first", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first setnx to win, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, "k", "second", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second setnx to lose, ok=%v err=%v", ok, err)
	}
	got, err := client.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != "first" {
		t.Fatalf("expected first value, got %q", got)
	}

	if err := client.Del(ctx, "k"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, "k"); !errors.Is(err, ErrNil) {
		t.Fatalf("expected ErrNil after delete, got %v", err)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if _, err := client.SetNX(context.Background(), "k", "v", 0); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("webhook", "TXN_1:success"); got != "eh:idempotency:webhook:TXN_1:success" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.LockKey("cron-worker"); got != "eh:lock:cron-worker" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.ReminderKey("upcoming", "order-1", "2026-10-16"); got != "eh:reminder:upcoming:order-1:2026-10-16" {
		t.Fatalf("unexpected reminder key %s", got)
	}
	if got := client.IdempotencyKey("scope", ""); got != "eh:idempotency:scope" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected missing address error")
	}

	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 7, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.DB != 2 {
		t.Fatalf("expected db 2 from url, got %d", opts.DB)
	}
	if opts.PoolSize != 7 {
		t.Fatalf("expected pool size 7, got %d", opts.PoolSize)
	}
}

type mockCmdable struct {
	data map[string]string
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string)}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
