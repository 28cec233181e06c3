package usecase

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/shandysiswandi/phonekey/internal/keyaccess/entity"
	"github.com/shandysiswandi/phonekey/internal/keyaccess/verification"
	"github.com/shandysiswandi/phonekey/internal/pkg/clock"
	"github.com/shandysiswandi/phonekey/internal/pkg/goerror"
	"github.com/shandysiswandi/phonekey/internal/pkg/instrument"
	"github.com/shandysiswandi/phonekey/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

const defaultSecretBytes = 32

type engine interface {
	Register(ctx context.Context, phone, keyID string) (string, error)
	Renew(ctx context.Context, phone, keyID string, op entity.Operation) (string, error)
	Verify(ctx context.Context, in verification.VerifyInput) (*verification.VerifyResult, error)
	GetVerified(ctx context.Context, phone string) (*entity.Verification, error)
	Remove(ctx context.Context, phone, keyID string) error
}

type repoKey interface {
	CreateKey(ctx context.Context, secret []byte, createdAt time.Time) (*entity.Key, error)
	CreateDummyKey(ctx context.Context) string
	GetKey(ctx context.Context, id string) (*entity.Key, error)
	DeleteKey(ctx context.Context, id string) error
}

type notifier interface {
	SendCode(ctx context.Context, phone, keyID string, op entity.Operation, code string) error
}

type Usecase struct {
	engine      engine
	repoKey     repoKey
	notifier    notifier
	validator   validator.Validator
	clock       clock.Clocker
	ins         instrument.Instrumentation
	random      io.Reader
	secretBytes int
}

type Dependency struct {
	Engine      engine
	RepoKey     repoKey
	Notifier    notifier
	Validator   validator.Validator
	Clock       clock.Clocker
	Instrument  instrument.Instrumentation
	SecretBytes int
	// Random is the entropy source for key secrets; crypto/rand when nil.
	Random io.Reader
}

func New(dep Dependency) *Usecase {
	secretBytes := dep.SecretBytes
	if secretBytes <= 0 {
		secretBytes = defaultSecretBytes
	}

	return &Usecase{
		engine:      dep.Engine,
		repoKey:     dep.RepoKey,
		notifier:    dep.Notifier,
		validator:   dep.Validator,
		clock:       dep.Clock,
		ins:         dep.Instrument,
		random:      dep.Random,
		secretBytes: secretBytes,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("keyaccess.usecase").Start(ctx, name)
}

// isClientError reports whether err already carries a caller facing
// classification and must be returned as is.
func isClientError(err error) bool {
	var gerr *goerror.Error
	return errors.As(err, &gerr) && gerr.Type() != goerror.TypeServer
}
