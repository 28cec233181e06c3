package usecase

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"

	"github.com/shandysiswandi/phonekey/internal/keyaccess/entity"
	"github.com/shandysiswandi/phonekey/internal/pkg/goerror"
)

type RegisterInput struct {
	Phone string `json:"phone" validate:"required,phone"`
}

type RegisterOutput struct {
	ID string
}

// Register creates a key for phone and sends a create code. A phone that is
// already verified gets an id that was never stored, so the response does not
// reveal whether the number is known.
func (s *Usecase) Register(ctx context.Context, in RegisterInput) (*RegisterOutput, error) {
	ctx, span := s.startSpan(ctx, "Register")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	existing, err := s.engine.GetVerified(ctx, in.Phone)
	if err != nil {
		if isClientError(err) {
			return nil, err
		}
		slog.ErrorContext(ctx, "failed to get verified record", "phone", in.Phone, "error", err)
		return nil, goerror.NewServer(err)
	}
	if existing != nil {
		slog.InfoContext(ctx, "phone already verified, returning dummy key id", "phone", in.Phone)
		return &RegisterOutput{ID: s.repoKey.CreateDummyKey(ctx)}, nil
	}

	secret, err := s.newSecret()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate key secret", "error", err)
		return nil, goerror.NewServer(err)
	}

	key, err := s.repoKey.CreateKey(ctx, secret, s.clock.Now())
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo create key", "error", err)
		return nil, goerror.NewServer(err)
	}

	code, err := s.engine.Register(ctx, in.Phone, key.ID)
	if err != nil {
		if isClientError(err) {
			return nil, err
		}
		slog.ErrorContext(ctx, "failed to register verification", "key_id", key.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.notifier.SendCode(ctx, in.Phone, key.ID, entity.OperationCreate, code); err != nil {
		slog.ErrorContext(ctx, "failed to send create code", "key_id", key.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &RegisterOutput{ID: key.ID}, nil
}

func (s *Usecase) newSecret() ([]byte, error) {
	r := s.random
	if r == nil {
		r = rand.Reader
	}

	secret := make([]byte, s.secretBytes)
	if _, err := io.ReadFull(r, secret); err != nil {
		return nil, err
	}
	return secret, nil
}
