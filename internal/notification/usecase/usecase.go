package usecase

import (
	"context"
	"time"

	"github.com/shandysiswandi/phonekey/internal/pkg/idempotency"
	"github.com/shandysiswandi/phonekey/internal/pkg/instrument"
	"github.com/shandysiswandi/phonekey/internal/pkg/sms"
	"github.com/shandysiswandi/phonekey/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultRetryMax       = 3
	defaultRetryBase      = 200 * time.Millisecond
	defaultIdempotencyTTL = 24 * time.Hour
)

type repoSMS interface {
	Send(ctx context.Context, msg sms.Message) error
}

type Config struct {
	// Template is the SMS text; {code} and {op} are replaced.
	Template string
	// RetryMax is the number of extra attempts after a failed send.
	RetryMax int
	// RetryBase is the first backoff delay, doubled on every attempt.
	RetryBase time.Duration
	// IdempotencyTTL is how long a delivered event suppresses redelivery.
	IdempotencyTTL time.Duration
}

type Usecase struct {
	repoSMS     repoSMS
	idempotency idempotency.Idempotency
	validator   validator.Validator
	ins         instrument.Instrumentation
	cfg         Config
}

type Dependency struct {
	RepoSMS     repoSMS
	Idempotency idempotency.Idempotency
	Validator   validator.Validator
	Instrument  instrument.Instrumentation
	Config      Config
}

func NewNotification(dep Dependency) *Usecase {
	cfg := dep.Config
	if cfg.Template == "" {
		cfg.Template = sms.DefaultCodeTemplate
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = defaultRetryMax
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = defaultRetryBase
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = defaultIdempotencyTTL
	}

	return &Usecase{
		repoSMS:     dep.RepoSMS,
		idempotency: dep.Idempotency,
		validator:   dep.Validator,
		ins:         dep.Instrument,
		cfg:         cfg,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.usecase").Start(ctx, name)
}
