// Package blob keeps key secrets as sealed objects in a bucket.
package blob

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shandysiswandi/phonekey/internal/keyaccess/entity"
	"github.com/shandysiswandi/phonekey/internal/pkg/goerror"
	"github.com/shandysiswandi/phonekey/internal/pkg/instrument"
	"github.com/shandysiswandi/phonekey/internal/pkg/secretbox"
	"github.com/shandysiswandi/phonekey/internal/pkg/storage"
	"github.com/shandysiswandi/phonekey/internal/pkg/uid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	objectPrefix = "keys/"
	contentType  = "application/json"
)

type object struct {
	Secret    []byte    `json:"secret"`
	CreatedAt time.Time `json:"created_at"`
}

type Blob struct {
	storage storage.Storage
	bucket  string
	box     secretbox.Box
	uuid    uid.StringID
	ins     instrument.Instrumentation
}

func NewBlob(stg storage.Storage, bucket string, box secretbox.Box, uuid uid.StringID, ins instrument.Instrumentation) *Blob {
	return &Blob{storage: stg, bucket: bucket, box: box, uuid: uuid, ins: ins}
}

func (b *Blob) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return b.ins.Tracer("keyaccess.outbound.blob").Start(ctx, name)
}

func (b *Blob) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func scope(id string) secretbox.Scope {
	return secretbox.Scope{Purpose: secretbox.PurposeKeySecret, Subject: id}
}

// CreateKey assigns a fresh id to secret and writes it as an object.
func (b *Blob) CreateKey(ctx context.Context, secret []byte, createdAt time.Time) (*entity.Key, error) {
	key := entity.Key{ID: b.uuid.Generate(), Secret: secret, CreatedAt: createdAt}
	if err := b.SaveKey(ctx, key); err != nil {
		return nil, err
	}
	return &key, nil
}

// CreateDummyKey returns an id shaped like CreateKey's. Nothing is written.
func (b *Blob) CreateDummyKey(context.Context) string {
	return b.uuid.Generate()
}

func (b *Blob) SaveKey(ctx context.Context, key entity.Key) (err error) {
	ctx, span := b.startSpan(ctx, "SaveKey")
	defer func() { b.endSpan(span, err) }()

	sealed, err := b.box.Seal(key.Secret, scope(key.ID))
	if err != nil {
		return err
	}

	data, err := json.Marshal(object{Secret: sealed, CreatedAt: key.CreatedAt})
	if err != nil {
		return err
	}

	return b.storage.Put(ctx, b.bucket, objectPrefix+key.ID, data, contentType)
}

func (b *Blob) GetKey(ctx context.Context, id string) (_ *entity.Key, err error) {
	ctx, span := b.startSpan(ctx, "GetKey")
	defer func() { b.endSpan(span, err) }()

	data, err := b.storage.Get(ctx, b.bucket, objectPrefix+id)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, goerror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var obj object
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}

	secret, err := b.box.Open(obj.Secret, scope(id))
	if err != nil {
		return nil, err
	}

	return &entity.Key{ID: id, Secret: secret, CreatedAt: obj.CreatedAt}, nil
}

func (b *Blob) DeleteKey(ctx context.Context, id string) (err error) {
	ctx, span := b.startSpan(ctx, "DeleteKey")
	defer func() { b.endSpan(span, err) }()

	return b.storage.Delete(ctx, b.bucket, objectPrefix+id)
}
