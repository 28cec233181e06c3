package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/phonekey/internal/pkg/idempotency"
	"github.com/shandysiswandi/phonekey/internal/pkg/sms"
)

type (
	ConsumeKeyCodeIssuedInput struct {
		EventID string `validate:"required"`
		Phone   string `validate:"required,phone"`
		KeyID   string `validate:"required"`
		Op      string `validate:"required,oneof=create read remove"`
		Code    string `validate:"required,otpcode"`
	}
)

// ConsumeKeyCodeIssued delivers the code by SMS once per event. A malformed
// event is dropped. A send that still fails after the retries returns an
// error so the broker redelivers it.
func (s *Usecase) ConsumeKeyCodeIssued(ctx context.Context, in ConsumeKeyCodeIssuedInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeKeyCodeIssued")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "event_id", in.EventID, "error", err)
		return nil
	}

	msg := sms.Message{To: in.Phone, Body: sms.RenderCode(s.cfg.Template, in.Code, in.Op)}

	err := s.idempotency.Exec(ctx, "notification:key_code:"+in.EventID, func(ctx context.Context) error {
		return s.sendWithRetry(ctx, msg)
	}, idempotency.WithStateTTL(s.cfg.IdempotencyTTL))

	switch {
	case errors.Is(err, idempotency.ErrAlreadyCompleted):
		slog.InfoContext(ctx, "key code already delivered", "event_id", in.EventID, "key_id", in.KeyID)
		return nil
	case errors.Is(err, idempotency.ErrAlreadyInProgress):
		slog.WarnContext(ctx, "key code delivery in progress elsewhere", "event_id", in.EventID, "key_id", in.KeyID)
		return nil
	case sms.IsPermanent(err):
		slog.ErrorContext(ctx, "sms provider rejected key code", "event_id", in.EventID, "key_id", in.KeyID, "error", err)
		return nil
	case err != nil:
		slog.ErrorContext(ctx, "failed to deliver key code", "event_id", in.EventID, "key_id", in.KeyID, "error", err)
		return err
	}

	slog.InfoContext(ctx, "key code delivered", "event_id", in.EventID, "key_id", in.KeyID, "op", in.Op)
	return nil
}

func (s *Usecase) sendWithRetry(ctx context.Context, msg sms.Message) error {
	b := retry.NewExponential(s.cfg.RetryBase)
	b = retry.WithMaxRetries(uint64(s.cfg.RetryMax), b)

	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := s.repoSMS.Send(ctx, msg)
		if err == nil || sms.IsPermanent(err) {
			return err
		}
		slog.WarnContext(ctx, "sms send failed, retrying", "error", err)
		return retry.RetryableError(err)
	})
}
