package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisStoreGetSet(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisStore(client)
	ctx := context.Background()

	val, err := s.Get(ctx, "trip:session")
	if err != nil {
		t.Fatalf("get missing key: %v", err)
	}
	if val != nil {
		t.Fatalf("expected nil for missing key, got %q", val)
	}

	if err := s.Set(ctx, "trip:session", []byte(`{"active":true}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	val, err = s.Get(ctx, "trip:session")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(val) != `{"active":true}` {
		t.Fatalf("unexpected value: %q", val)
	}
}

func TestRedisStoreDownReturnsError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	s := NewRedisStore(client)
	if err := s.Set(context.Background(), "k", []byte("v")); err == nil {
		t.Fatalf("expected error when redis is down")
	}
	if _, err := s.Get(context.Background(), "k"); err == nil {
		t.Fatalf("expected error when redis is down")
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	val, err := s.Get(ctx, "missing")
	if err != nil || val != nil {
		t.Fatalf("expected nil,nil for missing key")
	}

	payload := []byte("payload")
	if err := s.Set(ctx, "k", payload); err != nil {
		t.Fatalf("set: %v", err)
	}
	payload[0] = 'X'

	val, _ = s.Get(ctx, "k")
	if string(val) != "payload" {
		t.Fatalf("store must copy values, got %q", val)
	}
}
