package verification

import (
	"context"

	"github.com/shandysiswandi/phonekey/internal/keyaccess/entity"
)

// Register binds a fresh unverified record with a create code to phone and
// keyID, replacing any existing record, and returns the code.
func (e *Engine) Register(ctx context.Context, phone, keyID string) (string, error) {
	ctx, span := e.startSpan(ctx, "Register")
	defer span.End()

	if err := required("phone", phone, "key_id", keyID); err != nil {
		return "", err
	}

	code, err := e.code.Generate()
	if err != nil {
		return "", err
	}

	if err := e.store.Put(ctx, &entity.Verification{
		Phone: phone,
		KeyID: keyID,
		Op:    entity.OperationCreate,
		Code:  code,
	}); err != nil {
		return "", err
	}

	return code, nil
}

// Renew issues a new code for op on a verified record bound to keyID. It
// returns "" without writing when the phone has no such record. The failure
// streak is carried over.
func (e *Engine) Renew(ctx context.Context, phone, keyID string, op entity.Operation) (string, error) {
	ctx, span := e.startSpan(ctx, "Renew")
	defer span.End()

	if err := required("phone", phone, "key_id", keyID, "op", op.String()); err != nil {
		return "", err
	}

	v, err := e.get(ctx, phone)
	if err != nil {
		return "", err
	}
	if v == nil || !v.Verified || v.KeyID != keyID {
		return "", nil
	}

	code, err := e.code.Generate()
	if err != nil {
		return "", err
	}

	next := v.Clone()
	next.Phone = phone
	next.Code = code
	next.Op = op

	if err := e.store.Put(ctx, next); err != nil {
		return "", err
	}

	return code, nil
}
