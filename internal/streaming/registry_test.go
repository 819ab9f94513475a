package streaming

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryRegistry(t *testing.T) {
	ctx := context.Background()
	registry := NewMemoryRegistry()

	ok, err := registry.Acquire(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("Acquire() = %v, %v, want true, nil", ok, err)
	}

	ok, err = registry.Acquire(ctx, 1)
	if err != nil || ok {
		t.Fatalf("second Acquire() = %v, %v, want false, nil", ok, err)
	}

	// Different users do not contend
	ok, err = registry.Acquire(ctx, 2)
	if err != nil || !ok {
		t.Fatalf("Acquire(2) = %v, %v, want true, nil", ok, err)
	}

	if err := registry.Release(ctx, 1); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	ok, err = registry.Acquire(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("Acquire() after release = %v, %v, want true, nil", ok, err)
	}
}

func TestRedisRegistry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	registry := NewRedisRegistry(client)

	t.Run("exclusive per user", func(t *testing.T) {
		ok, err := registry.Acquire(ctx, 1)
		if err != nil || !ok {
			t.Fatalf("Acquire() = %v, %v, want true, nil", ok, err)
		}

		ok, err = registry.Acquire(ctx, 1)
		if err != nil || ok {
			t.Fatalf("second Acquire() = %v, %v, want false, nil", ok, err)
		}

		if err := registry.Release(ctx, 1); err != nil {
			t.Fatalf("Release() error = %v", err)
		}

		ok, err = registry.Acquire(ctx, 1)
		if err != nil || !ok {
			t.Fatalf("Acquire() after release = %v, %v, want true, nil", ok, err)
		}
	})

	t.Run("slot expires without touch", func(t *testing.T) {
		ok, err := registry.Acquire(ctx, 2)
		if err != nil || !ok {
			t.Fatalf("Acquire() = %v, %v, want true, nil", ok, err)
		}

		mr.FastForward(sessionTTL + time.Second)

		ok, err = registry.Acquire(ctx, 2)
		if err != nil || !ok {
			t.Fatalf("Acquire() after expiry = %v, %v, want true, nil", ok, err)
		}
	})

	t.Run("touch extends the claim", func(t *testing.T) {
		ok, err := registry.Acquire(ctx, 3)
		if err != nil || !ok {
			t.Fatalf("Acquire() = %v, %v, want true, nil", ok, err)
		}

		mr.FastForward(sessionTTL / 2)
		if err := registry.Touch(ctx, 3); err != nil {
			t.Fatalf("Touch() error = %v", err)
		}
		mr.FastForward(sessionTTL / 2)

		// Still held: the touch reset the TTL
		ok, err = registry.Acquire(ctx, 3)
		if err != nil || ok {
			t.Fatalf("Acquire() after touch = %v, %v, want false, nil", ok, err)
		}
	})
}
