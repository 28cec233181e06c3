package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/phonekey/internal/keyaccess/entity"
	"github.com/shandysiswandi/phonekey/internal/keyaccess/verification"
	"github.com/shandysiswandi/phonekey/internal/pkg/goerror"
)

type CompleteInput struct {
	Phone string           `json:"phone" validate:"required,phone"`
	KeyID string           `json:"key_id" validate:"required"`
	Op    entity.Operation `json:"op" validate:"required,oneof=create read remove"`
	Code  string           `json:"code" validate:"required,otpcode"`
}

type CompleteOutput struct {
	ID string
	// Secret is set for the read operation only.
	Secret []byte
}

// Complete checks the code and carries out op on the key.
func (s *Usecase) Complete(ctx context.Context, in CompleteInput) (*CompleteOutput, error) {
	ctx, span := s.startSpan(ctx, "Complete")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	res, err := s.engine.Verify(ctx, verification.VerifyInput{
		Phone: in.Phone,
		KeyID: in.KeyID,
		Op:    in.Op,
		Code:  in.Code,
	})
	if err != nil {
		if isClientError(err) {
			return nil, err
		}
		slog.ErrorContext(ctx, "failed to verify code", "key_id", in.KeyID, "op", in.Op.String(), "error", err)
		return nil, goerror.NewServer(err)
	}

	if res.RetryAt != nil {
		return nil, goerror.NewRateLimited("Rate limit exceeded", *res.RetryAt)
	}
	if !res.Verified() {
		slog.WarnContext(ctx, "code verification failed", "key_id", in.KeyID, "op", in.Op.String(), "outcome", res.Outcome.String())
		return nil, verification.ErrNoMatchingRecord
	}

	switch in.Op {
	case entity.OperationRemove:
		return s.removeKey(ctx, in)
	case entity.OperationRead:
		return s.readKey(ctx, in)
	default:
		return &CompleteOutput{ID: in.KeyID}, nil
	}
}

func (s *Usecase) removeKey(ctx context.Context, in CompleteInput) (*CompleteOutput, error) {
	if err := s.engine.Remove(ctx, in.Phone, in.KeyID); err != nil {
		if isClientError(err) {
			return nil, err
		}
		slog.ErrorContext(ctx, "failed to remove verification record", "key_id", in.KeyID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.repoKey.DeleteKey(ctx, in.KeyID); err != nil {
		slog.ErrorContext(ctx, "failed to repo delete key", "key_id", in.KeyID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &CompleteOutput{ID: in.KeyID}, nil
}

func (s *Usecase) readKey(ctx context.Context, in CompleteInput) (*CompleteOutput, error) {
	key, err := s.repoKey.GetKey(ctx, in.KeyID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "verified key has no stored secret", "key_id", in.KeyID)
		return nil, goerror.NewBusiness("key not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get key", "key_id", in.KeyID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &CompleteOutput{ID: key.ID, Secret: key.Secret}, nil
}
