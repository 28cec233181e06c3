package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/phonekey/internal/keyaccess/entity"
	"github.com/shandysiswandi/phonekey/internal/keyaccess/verification"
	"github.com/shandysiswandi/phonekey/internal/pkg/goerror"
)

type RequestCodeInput struct {
	Phone string           `json:"phone" validate:"required,phone"`
	KeyID string           `json:"key_id" validate:"required"`
	Op    entity.Operation `json:"op" validate:"required,oneof=create read remove"`
}

// RequestCode sends a fresh code for op to a verified phone bound to the key.
func (s *Usecase) RequestCode(ctx context.Context, in RequestCodeInput) error {
	ctx, span := s.startSpan(ctx, "RequestCode")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	code, err := s.engine.Renew(ctx, in.Phone, in.KeyID, in.Op)
	if err != nil {
		if isClientError(err) {
			return err
		}
		slog.ErrorContext(ctx, "failed to renew code", "key_id", in.KeyID, "op", in.Op.String(), "error", err)
		return goerror.NewServer(err)
	}
	if code == "" {
		slog.WarnContext(ctx, "no verified record for code request", "key_id", in.KeyID, "op", in.Op.String())
		return verification.ErrNoMatchingRecord
	}

	if err := s.notifier.SendCode(ctx, in.Phone, in.KeyID, in.Op, code); err != nil {
		slog.ErrorContext(ctx, "failed to send operation code", "key_id", in.KeyID, "op", in.Op.String(), "error", err)
		return goerror.NewServer(err)
	}

	return nil
}
