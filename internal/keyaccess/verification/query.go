package verification

import (
	"context"

	"github.com/shandysiswandi/phonekey/internal/keyaccess/entity"
)

// Get returns the record for phone, or nil when there is none.
func (e *Engine) Get(ctx context.Context, phone string) (*entity.Verification, error) {
	ctx, span := e.startSpan(ctx, "Get")
	defer span.End()

	if err := required("phone", phone); err != nil {
		return nil, err
	}

	return e.get(ctx, phone)
}

// GetVerified returns the record for phone only when it has been verified.
func (e *Engine) GetVerified(ctx context.Context, phone string) (*entity.Verification, error) {
	ctx, span := e.startSpan(ctx, "GetVerified")
	defer span.End()

	if err := required("phone", phone); err != nil {
		return nil, err
	}

	v, err := e.get(ctx, phone)
	if err != nil || v == nil || !v.Verified {
		return nil, err
	}
	return v, nil
}

// Remove deletes the record for phone when it is bound to keyID, otherwise it
// fails with ErrNoMatchingRecord without touching the store.
func (e *Engine) Remove(ctx context.Context, phone, keyID string) error {
	ctx, span := e.startSpan(ctx, "Remove")
	defer span.End()

	if err := required("phone", phone, "key_id", keyID); err != nil {
		return err
	}

	v, err := e.get(ctx, phone)
	if err != nil {
		return err
	}
	if v == nil || v.KeyID != keyID {
		return ErrNoMatchingRecord
	}

	return e.store.Delete(ctx, phone)
}
