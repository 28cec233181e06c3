package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shandysiswandi/phonekey/internal/keyaccess/entity"
	"github.com/shandysiswandi/phonekey/internal/pkg/goerror"
	"github.com/shandysiswandi/phonekey/internal/pkg/instrument"
	"github.com/shandysiswandi/phonekey/internal/pkg/secretbox"
	"github.com/shandysiswandi/phonekey/internal/pkg/storage"
)

type memStorage struct {
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStorage) Put(_ context.Context, bucket, key string, data []byte, ct string) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[bucket+"/"+key] = bytes.Clone(data)
	m.types[bucket+"/"+key] = ct
	return nil
}

func (m *memStorage) Get(_ context.Context, bucket, key string) ([]byte, error) {
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return data, nil
}

func (m *memStorage) Delete(_ context.Context, bucket, key string) error {
	delete(m.objects, bucket+"/"+key)
	return nil
}

func (m *memStorage) Close() error { return nil }

func newTestBlob(t *testing.T, stg storage.Storage) *Blob {
	t.Helper()
	keys, err := secretbox.NewHKDFKeyProvider(bytes.Repeat([]byte{9}, 32))
	if err != nil {
		t.Fatalf("key provider: %v", err)
	}
	return NewBlob(stg, "phonekey-keys", secretbox.NewAESGCM(keys), &seqID{}, instrument.NewNoop())
}

type seqID struct{ n int }

func (s *seqID) Generate() string {
	s.n++
	return fmt.Sprintf("key-%d", s.n)
}

func TestBlobKeyLifecycle(t *testing.T) {
	// Arrange
	stg := newMemStorage()
	b := newTestBlob(t, stg)
	ctx := context.Background()
	key := entity.Key{ID: "key-1", Secret: []byte("s3cr3t"), CreatedAt: time.Date(2026, 6, 9, 3, 0, 0, 0, time.UTC)}

	// Act
	err := b.SaveKey(ctx, key)

	// Assert
	if err != nil {
		t.Fatalf("SaveKey() error = %v", err)
	}
	stored, ok := stg.objects["phonekey-keys/keys/key-1"]
	if !ok {
		t.Fatalf("object not written, have %v", stg.objects)
	}
	if bytes.Contains(stored, key.Secret) {
		t.Fatal("object must not contain the plaintext secret")
	}
	if stg.types["phonekey-keys/keys/key-1"] != contentType {
		t.Fatalf("content type = %q", stg.types["phonekey-keys/keys/key-1"])
	}

	got, err := b.GetKey(ctx, key.ID)
	if err != nil {
		t.Fatalf("GetKey() error = %v", err)
	}
	if !bytes.Equal(got.Secret, key.Secret) || !got.CreatedAt.Equal(key.CreatedAt) {
		t.Fatalf("GetKey() = %+v", got)
	}

	if err := b.DeleteKey(ctx, key.ID); err != nil {
		t.Fatalf("DeleteKey() error = %v", err)
	}
	if _, err := b.GetKey(ctx, key.ID); !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("GetKey() after delete error = %v", err)
	}
}

func TestBlobRejectsObjectMovedToAnotherID(t *testing.T) {
	stg := newMemStorage()
	b := newTestBlob(t, stg)
	ctx := context.Background()

	_ = b.SaveKey(ctx, entity.Key{ID: "key-1", Secret: []byte("s3cr3t")})
	stg.objects["phonekey-keys/keys/key-2"] = stg.objects["phonekey-keys/keys/key-1"]

	if _, err := b.GetKey(ctx, "key-2"); !errors.Is(err, secretbox.ErrOpenFailed) {
		t.Fatalf("GetKey() error = %v, want ErrOpenFailed", err)
	}
}

func TestBlobCreateKey(t *testing.T) {
	// Arrange
	stg := newMemStorage()
	b := newTestBlob(t, stg)
	ctx := context.Background()
	createdAt := time.Date(2026, 6, 9, 3, 0, 0, 0, time.UTC)

	// Act
	dummy := b.CreateDummyKey(ctx)
	key, err := b.CreateKey(ctx, []byte("s3cr3t"), createdAt)

	// Assert
	if err != nil {
		t.Fatalf("CreateKey() error = %v", err)
	}
	if dummy != "key-1" || key.ID != "key-2" {
		t.Fatalf("ids = %q, %q; want ids from the same generator", dummy, key.ID)
	}
	if len(stg.objects) != 1 {
		t.Fatalf("objects = %v, want only the real key", stg.objects)
	}
	if _, err := b.GetKey(ctx, dummy); !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("GetKey(dummy) error = %v, want ErrNotFound", err)
	}
	got, err := b.GetKey(ctx, key.ID)
	if err != nil || !bytes.Equal(got.Secret, []byte("s3cr3t")) || !got.CreatedAt.Equal(createdAt) {
		t.Fatalf("GetKey() = %+v, %v", got, err)
	}
}

func TestBlobPutError(t *testing.T) {
	stg := newMemStorage()
	stg.putErr = errors.New("bucket unavailable")

	err := newTestBlob(t, stg).SaveKey(context.Background(), entity.Key{ID: "key-1", Secret: []byte("x")})

	if !errors.Is(err, stg.putErr) {
		t.Fatalf("SaveKey() error = %v", err)
	}
}
