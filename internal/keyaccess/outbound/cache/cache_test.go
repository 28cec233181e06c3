package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/phonekey/internal/keyaccess/entity"
	"github.com/shandysiswandi/phonekey/internal/pkg/goerror"
	"github.com/shandysiswandi/phonekey/internal/pkg/hash"
	"github.com/shandysiswandi/phonekey/internal/pkg/instrument"
)

const phone = "+4917512345678"

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, hash.NewHMACSHA256("test-secret"), instrument.NewNoop()), mr
}

func TestCacheRoundTrip(t *testing.T) {
	// Arrange
	c, mr := newTestCache(t)
	ctx := context.Background()
	first := time.Date(2026, 6, 9, 3, 33, 47, 0, time.UTC)
	in := &entity.Verification{
		Phone:        phone,
		KeyID:        "8abe1a93-6a9c-490c-bbd5-d7f11a4a9c8f",
		Op:           entity.OperationRead,
		Code:         "123456",
		Verified:     true,
		InvalidCount: 2,
		FirstInvalid: &first,
	}

	// Act
	if err := c.Put(ctx, in); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := c.Get(ctx, phone)

	// Assert
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Phone != phone || got.KeyID != in.KeyID || got.Op != in.Op || got.Code != in.Code || !got.Verified || got.InvalidCount != 2 {
		t.Fatalf("Get() = %+v", got)
	}
	if got.FirstInvalid == nil || !got.FirstInvalid.Equal(first) {
		t.Fatalf("FirstInvalid = %v", got.FirstInvalid)
	}

	keys := mr.Keys()
	if len(keys) != 1 || !strings.HasPrefix(keys[0], keyPrefix) {
		t.Fatalf("keys = %v", keys)
	}
	if strings.Contains(keys[0], phone) {
		t.Fatal("redis key must not contain the phone number")
	}
	raw, _ := mr.Get(keys[0])
	if strings.Contains(raw, phone) {
		t.Fatal("stored value must not contain the phone number")
	}
}

func TestCacheGetMissing(t *testing.T) {
	c, _ := newTestCache(t)

	_, err := c.Get(context.Background(), phone)

	if !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestCacheOverwriteAndDelete(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_ = c.Put(ctx, &entity.Verification{Phone: phone, KeyID: "a", Op: entity.OperationCreate, Code: "111111"})
	_ = c.Put(ctx, &entity.Verification{Phone: phone, KeyID: "b", Op: entity.OperationCreate, Code: "222222"})

	got, err := c.Get(ctx, phone)
	if err != nil || got.KeyID != "b" || got.FirstInvalid != nil {
		t.Fatalf("Get() = %+v, %v", got, err)
	}

	if err := c.Delete(ctx, phone); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := c.Get(ctx, phone); !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("Get() after delete error = %v", err)
	}
}

func TestCacheCorruptValue(t *testing.T) {
	c, mr := newTestCache(t)
	key, _ := c.key(phone)
	_ = mr.Set(key, "{not json")

	if _, err := c.Get(context.Background(), phone); err == nil || errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("Get() error = %v, want decode error", err)
	}
}

func TestCacheConnectionError(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	if err := c.Put(context.Background(), &entity.Verification{Phone: phone}); err == nil {
		t.Fatal("Put() expected error when redis is down")
	}
}
