package db

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/phonekey/internal/keyaccess/entity"
	"github.com/shandysiswandi/phonekey/internal/pkg/goerror"
	"github.com/shandysiswandi/phonekey/internal/pkg/instrument"
	"github.com/shandysiswandi/phonekey/internal/pkg/secretbox"
	"github.com/shandysiswandi/phonekey/internal/pkg/uid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

//go:embed schema.sql
var schema string

// DB is the postgres key store. Secrets are sealed with the key id as scope
// so a row copied under another id cannot be opened.
type DB struct {
	conn *pgxpool.Pool
	box  secretbox.Box
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func NewDB(conn *pgxpool.Pool, box secretbox.Box, uuid uid.StringID, ins instrument.Instrumentation) *DB {
	return &DB{conn: conn, box: box, uuid: uuid, ins: ins}
}

// Migrate creates the keys table when it does not exist.
func (s *DB) Migrate(ctx context.Context) (err error) {
	ctx, span := s.startSpan(ctx, "Migrate")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, schema)
	return err
}

// - 23505 unique violation → goerror.ErrConflict
// - 22P02 invalid_text_representation (malformed uuid) → goerror.ErrNotFound
func (s *DB) mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return goerror.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return goerror.ErrConflict
		case "22P02":
			return goerror.ErrNotFound
		}
	}

	return err
}

func (s *DB) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("keyaccess.outbound.db").Start(ctx, name)
}

func (s *DB) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) && !errors.Is(err, goerror.ErrConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func scope(id string) secretbox.Scope {
	return secretbox.Scope{Purpose: secretbox.PurposeKeySecret, Subject: id}
}

// CreateKey assigns a fresh id to secret and stores it.
func (s *DB) CreateKey(ctx context.Context, secret []byte, createdAt time.Time) (*entity.Key, error) {
	key := entity.Key{ID: s.uuid.Generate(), Secret: secret, CreatedAt: createdAt}
	if err := s.SaveKey(ctx, key); err != nil {
		return nil, err
	}
	return &key, nil
}

// CreateDummyKey returns an id shaped like CreateKey's without storing
// anything.
func (s *DB) CreateDummyKey(context.Context) string {
	return s.uuid.Generate()
}

func (s *DB) SaveKey(ctx context.Context, key entity.Key) (err error) {
	ctx, span := s.startSpan(ctx, "SaveKey")
	defer func() { s.endSpan(span, err) }()

	sealed, err := s.box.Seal(key.Secret, scope(key.ID))
	if err != nil {
		return err
	}

	_, err = s.conn.Exec(ctx,
		`INSERT INTO keyaccess_keys (id, secret, created_at) VALUES ($1, $2, $3)`,
		key.ID, sealed, key.CreatedAt,
	)
	return s.mapError(err)
}

func (s *DB) GetKey(ctx context.Context, id string) (_ *entity.Key, err error) {
	ctx, span := s.startSpan(ctx, "GetKey")
	defer func() { s.endSpan(span, err) }()

	key := &entity.Key{ID: id}
	var sealed []byte
	err = s.conn.QueryRow(ctx,
		`SELECT secret, created_at FROM keyaccess_keys WHERE id = $1`, id,
	).Scan(&sealed, &key.CreatedAt)
	if err != nil {
		return nil, s.mapError(err)
	}

	key.Secret, err = s.box.Open(sealed, scope(id))
	if err != nil {
		return nil, err
	}

	return key, nil
}

// DeleteKey removes the key. A missing key is not an error.
func (s *DB) DeleteKey(ctx context.Context, id string) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteKey")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `DELETE FROM keyaccess_keys WHERE id = $1`, id)
	err = s.mapError(err)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil
	}
	return err
}
