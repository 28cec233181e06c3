// Package verification owns the one-time code state machine: issuing codes
// bound to a phone, key and operation, scoring attempts and locking out
// brute force.
package verification

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shandysiswandi/phonekey/internal/keyaccess/entity"
	"github.com/shandysiswandi/phonekey/internal/pkg/clock"
	"github.com/shandysiswandi/phonekey/internal/pkg/goerror"
	"github.com/shandysiswandi/phonekey/internal/pkg/instrument"
	"github.com/shandysiswandi/phonekey/internal/pkg/otp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultLockoutWindow    = time.Hour
	DefaultLockoutThreshold = 10

	maxRotateAttempts = 8
)

// ErrNoMatchingRecord is returned by Remove when the phone has no record bound
// to the key.
var ErrNoMatchingRecord = goerror.NewBusiness("no matching record", goerror.CodeNotFound)

// Store persists one Verification per phone. Get returns goerror.ErrNotFound
// when the phone has no record. Errors are returned to callers unmodified.
type Store interface {
	Get(ctx context.Context, phone string) (*entity.Verification, error)
	Put(ctx context.Context, v *entity.Verification) error
	Delete(ctx context.Context, phone string) error
}

type Config struct {
	LockoutWindow    time.Duration
	LockoutThreshold int
}

type Dependency struct {
	Store      Store
	Clock      clock.Clocker
	Code       otp.Generator
	Instrument instrument.Instrumentation
	Config     Config
}

type Engine struct {
	store     Store
	clock     clock.Clocker
	code      otp.Generator
	ins       instrument.Instrumentation
	window    time.Duration
	threshold int
	outcomes  metric.Int64Counter
}

func New(dep Dependency) *Engine {
	ins := dep.Instrument
	if ins == nil {
		ins = instrument.NewNoop()
	}

	e := &Engine{
		store:     dep.Store,
		clock:     dep.Clock,
		code:      dep.Code,
		ins:       ins,
		window:    dep.Config.LockoutWindow,
		threshold: dep.Config.LockoutThreshold,
	}
	if e.window <= 0 {
		e.window = DefaultLockoutWindow
	}
	if e.threshold <= 0 {
		e.threshold = DefaultLockoutThreshold
	}

	// the noop meter never fails; a real one failing leaves outcomes nil
	e.outcomes, _ = ins.Meter("keyaccess.verification").Int64Counter(
		"keyaccess.verification.outcomes",
		metric.WithDescription("Verification attempts by outcome"),
	)

	return e
}

func (e *Engine) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return e.ins.Tracer("keyaccess.verification").Start(ctx, name)
}

// required fails with an invalid input error naming every empty argument.
func required(kv ...string) error {
	var fields []string
	for i := 0; i+1 < len(kv); i += 2 {
		if strings.TrimSpace(kv[i+1]) == "" {
			fields = append(fields, kv[i], kv[i]+" is required")
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return goerror.NewInvalidInput(nil, fields...)
}

// get returns nil, nil when the phone has no record.
func (e *Engine) get(ctx context.Context, phone string) (*entity.Verification, error) {
	v, err := e.store.Get(ctx, phone)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// newCode returns a code that differs from prev.
func (e *Engine) newCode(prev string) (string, error) {
	for range maxRotateAttempts {
		code, err := e.code.Generate()
		if err != nil {
			return "", err
		}
		if code != prev {
			return code, nil
		}
	}
	return "", fmt.Errorf("verification: generator kept returning the previous code")
}

func codeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
