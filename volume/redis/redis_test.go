package redis

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"

	"github.com/jonwraymond/codesession/volume"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for nil client")
	}
	if _, err := NewFromAddr(""); err == nil {
		t.Fatal("expected error for empty address")
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := New(Config{Client: newTestClient(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := s.Put(ctx, "scripts/run.lua", []byte("return 1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, "scripts/run.lua")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "return 1" {
		t.Fatalf("Get = %q, want %q", got, "return 1")
	}
}

func TestGetMissing(t *testing.T) {
	s, err := New(Config{Client: newTestClient(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = s.Get(context.Background(), "absent")
	if !errors.Is(err, volume.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListStripsKeyPrefix(t *testing.T) {
	ctx := context.Background()
	s, err := New(Config{Client: newTestClient(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, k := range []string{"scripts/b.lua", "scripts/a.lua", "notes.txt"} {
		if err := s.Put(ctx, k, []byte("x")); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	keys, err := s.List(ctx, "scripts/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"scripts/a.lua", "scripts/b.lua"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s, err := New(Config{Client: newTestClient(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, volume.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestKeyPrefixIsolation(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	a, err := New(Config{Client: client, KeyPrefix: "vol-a:"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, err := New(Config{Client: client, KeyPrefix: "vol-b:"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := a.Put(ctx, "shared", []byte("from a")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := b.Get(ctx, "shared"); !errors.Is(err, volume.ErrNotFound) {
		t.Fatalf("prefix leak: err = %v, want ErrNotFound", err)
	}
	keys, err := b.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("keys = %v, want empty", keys)
	}
}
