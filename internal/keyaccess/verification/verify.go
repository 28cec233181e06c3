package verification

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/phonekey/internal/keyaccess/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome is the result class of a verification attempt.
type Outcome int

const (
	// OutcomeNoMatch means no record is bound to the phone, key and operation.
	OutcomeNoMatch Outcome = iota
	// OutcomeWindowReset means an expired failure streak was cleared. The
	// attempt itself is not scored.
	OutcomeWindowReset
	// OutcomeLockedOut means the failure threshold is reached; RetryAt is set.
	OutcomeLockedOut
	// OutcomeInvalidCode means the code was wrong and counted.
	OutcomeInvalidCode
	// OutcomeVerified means the code was accepted and rotated.
	OutcomeVerified
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWindowReset:
		return "window_reset"
	case OutcomeLockedOut:
		return "locked_out"
	case OutcomeInvalidCode:
		return "invalid_code"
	case OutcomeVerified:
		return "verified"
	default:
		return "no_match"
	}
}

type VerifyInput struct {
	Phone string
	KeyID string
	Op    entity.Operation
	Code  string
}

type VerifyResult struct {
	Outcome Outcome
	// Record is the updated record when Outcome is OutcomeVerified.
	Record *entity.Verification
	// RetryAt is set only when Outcome is OutcomeLockedOut and is always
	// after the attempt time.
	RetryAt *time.Time
}

// Verified reports whether the attempt succeeded.
func (r *VerifyResult) Verified() bool {
	return r != nil && r.Outcome == OutcomeVerified && r.Record != nil
}

// Verify scores a code attempt. The checks run in a fixed order: binding,
// failure window expiry, lockout, code comparison.
func (e *Engine) Verify(ctx context.Context, in VerifyInput) (*VerifyResult, error) {
	ctx, span := e.startSpan(ctx, "Verify")
	defer span.End()

	if err := required("phone", in.Phone, "key_id", in.KeyID, "op", in.Op.String(), "code", in.Code); err != nil {
		return nil, err
	}

	v, err := e.get(ctx, in.Phone)
	if err != nil {
		return nil, err
	}

	res, err := e.score(ctx, v, in)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("verification.outcome", res.Outcome.String()))
	if e.outcomes != nil {
		e.outcomes.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", res.Outcome.String()),
			attribute.String("op", in.Op.String()),
		))
	}

	return res, nil
}

func (e *Engine) score(ctx context.Context, v *entity.Verification, in VerifyInput) (*VerifyResult, error) {
	if v == nil || !v.Matches(in.KeyID, in.Op) {
		return &VerifyResult{Outcome: OutcomeNoMatch}, nil
	}

	now := e.clock.Now()
	next := v.Clone()
	next.Phone = in.Phone

	if next.FirstInvalid != nil && now.After(next.FirstInvalid.Add(e.window)) {
		next.ResetFailures()
		if err := e.store.Put(ctx, next); err != nil {
			return nil, err
		}
		return &VerifyResult{Outcome: OutcomeWindowReset}, nil
	}

	if next.InvalidCount >= e.threshold {
		next.RecordFailure(now)
		if err := e.store.Put(ctx, next); err != nil {
			return nil, err
		}

		retryAt := next.FirstInvalid.Add(e.window)
		if !retryAt.After(now) {
			retryAt = now.Add(e.window)
		}

		slog.WarnContext(ctx, "verification locked out",
			"key_id", in.KeyID,
			"invalid_count", next.InvalidCount,
			"retry_at", retryAt,
		)
		return &VerifyResult{Outcome: OutcomeLockedOut, RetryAt: &retryAt}, nil
	}

	if !codeEqual(next.Code, in.Code) {
		next.RecordFailure(now)
		if err := e.store.Put(ctx, next); err != nil {
			return nil, err
		}
		return &VerifyResult{Outcome: OutcomeInvalidCode}, nil
	}

	code, err := e.newCode(next.Code)
	if err != nil {
		return nil, err
	}

	next.ResetFailures()
	if err := e.store.Put(ctx, next); err != nil {
		return nil, err
	}

	verified := next.Clone()
	verified.Verified = true
	verified.Code = code
	if err := e.store.Put(ctx, verified); err != nil {
		return nil, err
	}

	return &VerifyResult{Outcome: OutcomeVerified, Record: verified}, nil
}
