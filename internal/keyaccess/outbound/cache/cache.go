// Package cache stores verification records in redis. Keys carry a keyed
// digest of the phone number instead of the number itself.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/phonekey/internal/keyaccess/entity"
	"github.com/shandysiswandi/phonekey/internal/pkg/goerror"
	"github.com/shandysiswandi/phonekey/internal/pkg/hash"
	"github.com/shandysiswandi/phonekey/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const keyPrefix = "keyaccess:verification:"

type record struct {
	KeyID        string     `json:"key_id"`
	Op           string     `json:"op"`
	Code         string     `json:"code"`
	Verified     bool       `json:"verified"`
	InvalidCount int        `json:"invalid_count"`
	FirstInvalid *time.Time `json:"first_invalid"`
}

type Cache struct {
	client redis.UniversalClient
	hmac   hash.Hash
	ins    instrument.Instrumentation
}

func NewCache(client redis.UniversalClient, hmac hash.Hash, ins instrument.Instrumentation) *Cache {
	return &Cache{client: client, hmac: hmac, ins: ins}
}

func (c *Cache) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return c.ins.Tracer("keyaccess.outbound.cache").Start(ctx, name)
}

func (c *Cache) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (c *Cache) key(phone string) (string, error) {
	digest, err := c.hmac.Hash(phone)
	if err != nil {
		return "", err
	}
	return keyPrefix + string(digest), nil
}

func (c *Cache) Get(ctx context.Context, phone string) (_ *entity.Verification, err error) {
	ctx, span := c.startSpan(ctx, "Get")
	defer func() { c.endSpan(span, err) }()

	key, err := c.key(phone)
	if err != nil {
		return nil, err
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, goerror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}

	return &entity.Verification{
		Phone:        phone,
		KeyID:        rec.KeyID,
		Op:           entity.Operation(rec.Op),
		Code:         rec.Code,
		Verified:     rec.Verified,
		InvalidCount: rec.InvalidCount,
		FirstInvalid: rec.FirstInvalid,
	}, nil
}

func (c *Cache) Put(ctx context.Context, v *entity.Verification) (err error) {
	ctx, span := c.startSpan(ctx, "Put")
	defer func() { c.endSpan(span, err) }()

	key, err := c.key(v.Phone)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(record{
		KeyID:        v.KeyID,
		Op:           v.Op.String(),
		Code:         v.Code,
		Verified:     v.Verified,
		InvalidCount: v.InvalidCount,
		FirstInvalid: v.FirstInvalid,
	})
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, raw, 0).Err()
}

func (c *Cache) Delete(ctx context.Context, phone string) (err error) {
	ctx, span := c.startSpan(ctx, "Delete")
	defer func() { c.endSpan(span, err) }()

	key, err := c.key(phone)
	if err != nil {
		return err
	}

	return c.client.Del(ctx, key).Err()
}
