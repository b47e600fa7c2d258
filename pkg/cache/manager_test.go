package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil)
}

func TestManager_SetAndGet(t *testing.T) {
	client, mr := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := Key{Namespace: "http", Path: "/coins/markets"}
	entry := &Entry{
		Data:       []byte(`[{"id":"bitcoin"}]`),
		ETag:       `"abc123"`,
		Expires:    time.Now().Add(5 * time.Minute),
		StatusCode: 200,
		CachedAt:   time.Now(),
	}

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got.Data) != string(entry.Data) || got.ETag != entry.ETag {
		t.Errorf("Get() = %+v, want %+v", got, entry)
	}

	ttl := mr.TTL(key.String())
	if ttl <= 5*time.Minute || ttl > 5*time.Minute+DefaultStaleRetention {
		t.Errorf("redis TTL = %v, want expiry plus stale retention", ttl)
	}
}

func TestManager_GetMiss(t *testing.T) {
	client, _ := setupTestRedis(t)
	manager := NewManager(client)

	_, err := manager.Get(context.Background(), Key{Namespace: "http", Path: "/missing"})
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestManager_GetReturnsStaleEntry(t *testing.T) {
	client, _ := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := Key{Namespace: "http", Path: "/stale"}
	entry := &Entry{Data: []byte("x"), ETag: `"v1"`, Expires: time.Now().Add(-time.Second)}
	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.IsExpired() {
		t.Error("entry should be reported as expired")
	}
}

func TestManager_SetWithoutRetentionSkipsExpired(t *testing.T) {
	client, mr := setupTestRedis(t)
	manager := NewManager(client).WithStaleRetention(0)

	key := Key{Namespace: "http", Path: "/expired"}
	entry := &Entry{Data: []byte("x"), Expires: time.Now().Add(-time.Second)}
	if err := manager.Set(context.Background(), key, entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if mr.Exists(key.String()) {
		t.Error("expired entry should not be stored without stale retention")
	}
}

func TestManager_SetNil(t *testing.T) {
	client, _ := setupTestRedis(t)
	if err := NewManager(client).Set(context.Background(), Key{Path: "x"}, nil); err == nil {
		t.Error("Set(nil) should fail")
	}
}

func TestManager_GetInvalidEntry(t *testing.T) {
	client, mr := setupTestRedis(t)
	key := Key{Namespace: "http", Path: "/corrupt"}
	mr.Set(key.String(), "not json")

	_, err := NewManager(client).Get(context.Background(), key)
	if !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Get() error = %v, want ErrInvalidEntry", err)
	}
}

func TestManager_Delete(t *testing.T) {
	client, mr := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := Key{Namespace: "http", Path: "/delete"}
	if err := manager.Set(ctx, key, &Entry{Data: []byte("x"), Expires: time.Now().Add(time.Minute)}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if mr.Exists(key.String()) {
		t.Error("key should be deleted")
	}
}

func TestManager_UpdateTTL(t *testing.T) {
	client, _ := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := Key{Namespace: "http", Path: "/ttl"}
	if err := manager.Set(ctx, key, &Entry{Data: []byte("x"), Expires: time.Now().Add(-time.Second)}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	newExpires := time.Now().Add(time.Hour).Truncate(time.Second)
	if err := manager.UpdateTTL(ctx, key, newExpires); err != nil {
		t.Fatalf("UpdateTTL() error = %v", err)
	}

	got, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.Expires.Equal(newExpires) || got.IsExpired() {
		t.Errorf("Expires = %v, want %v", got.Expires, newExpires)
	}

	if err := manager.UpdateTTL(ctx, Key{Path: "/missing"}, newExpires); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("UpdateTTL() on missing key = %v, want ErrCacheMiss", err)
	}
}

func TestManager_JSON(t *testing.T) {
	client, _ := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	type page struct {
		Items []string `json:"items"`
		Total int      `json:"total"`
	}
	key := Key{Namespace: "coins", Path: "list"}

	var got page
	if err := manager.GetJSON(ctx, key, &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("GetJSON() before set = %v, want ErrCacheMiss", err)
	}

	want := page{Items: []string{"bitcoin", "ethereum"}, Total: 2}
	if err := manager.SetJSON(ctx, key, want, time.Minute); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}
	if err := manager.GetJSON(ctx, key, &got); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if got.Total != 2 || len(got.Items) != 2 || got.Items[1] != "ethereum" {
		t.Errorf("GetJSON() = %+v", got)
	}
}

func TestManager_Invalidate(t *testing.T) {
	client, mr := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	for _, path := range []string{"a", "b", "c"} {
		if err := manager.SetJSON(ctx, Key{Namespace: "coins", Path: path}, path, time.Minute); err != nil {
			t.Fatalf("SetJSON() error = %v", err)
		}
	}
	other := Key{Namespace: "http", Path: "keep"}
	if err := manager.SetJSON(ctx, other, "keep", time.Minute); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}

	removed, err := manager.Invalidate(ctx, "coins")
	if err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}
	if !mr.Exists(other.String()) {
		t.Error("keys in other namespaces must survive")
	}
}
