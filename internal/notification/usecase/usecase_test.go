package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/phonekey/internal/pkg/idempotency"
	"github.com/shandysiswandi/phonekey/internal/pkg/instrument"
	"github.com/shandysiswandi/phonekey/internal/pkg/sms"
	"github.com/shandysiswandi/phonekey/internal/pkg/validator"
)

type fakeSMS struct {
	mu    sync.Mutex
	errs  []error
	calls int
	sent  []sms.Message
}

func (f *fakeSMS) Send(_ context.Context, msg sms.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return err
		}
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newUsecase(t *testing.T, repo *fakeSMS) *Usecase {
	t.Helper()

	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewNotification(Dependency{
		RepoSMS:     repo,
		Idempotency: idempotency.New(rdb),
		Validator:   v,
		Instrument:  instrument.NewNoop(),
		Config: Config{
			Template:  "{op} code {code}",
			RetryMax:  2,
			RetryBase: time.Millisecond,
		},
	})
}

func validInput() ConsumeKeyCodeIssuedInput {
	return ConsumeKeyCodeIssuedInput{
		EventID: "0198a6f1-7c1e-7b51-a0a4-1f4f3b1d2e10",
		Phone:   "+4917512345678",
		KeyID:   "0198a6f1-7c1e-7b51-a0a4-1f4f3b1d2e11",
		Op:      "read",
		Code:    "123456",
	}
}

func TestConsumeKeyCodeIssued(t *testing.T) {
	// Arrange
	repo := &fakeSMS{}
	uc := newUsecase(t, repo)

	// Act
	err := uc.ConsumeKeyCodeIssued(context.Background(), validInput())

	// Assert
	if err != nil {
		t.Fatalf("ConsumeKeyCodeIssued() error = %v", err)
	}
	if len(repo.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(repo.sent))
	}
	if repo.sent[0].To != "+4917512345678" || repo.sent[0].Body != "read code 123456" {
		t.Fatalf("sent = %+v", repo.sent[0])
	}
}

func TestConsumeKeyCodeIssuedRedelivery(t *testing.T) {
	repo := &fakeSMS{}
	uc := newUsecase(t, repo)

	for range 3 {
		if err := uc.ConsumeKeyCodeIssued(context.Background(), validInput()); err != nil {
			t.Fatalf("ConsumeKeyCodeIssued() error = %v", err)
		}
	}

	if repo.calls != 1 {
		t.Fatalf("calls = %d, want 1", repo.calls)
	}
}

func TestConsumeKeyCodeIssuedInvalidEvent(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ConsumeKeyCodeIssuedInput)
	}{
		{name: "missing event id", mutate: func(in *ConsumeKeyCodeIssuedInput) { in.EventID = "" }},
		{name: "phone not e164", mutate: func(in *ConsumeKeyCodeIssuedInput) { in.Phone = "0175 123" }},
		{name: "phone without plus", mutate: func(in *ConsumeKeyCodeIssuedInput) { in.Phone = "4917512345678" }},
		{name: "unknown op", mutate: func(in *ConsumeKeyCodeIssuedInput) { in.Op = "update" }},
		{name: "short code", mutate: func(in *ConsumeKeyCodeIssuedInput) { in.Code = "123" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeSMS{}
			uc := newUsecase(t, repo)
			in := validInput()
			tt.mutate(&in)

			if err := uc.ConsumeKeyCodeIssued(context.Background(), in); err != nil {
				t.Fatalf("invalid events are dropped, got %v", err)
			}
			if repo.calls != 0 {
				t.Fatalf("calls = %d, want 0", repo.calls)
			}
		})
	}
}

func TestConsumeKeyCodeIssuedRetries(t *testing.T) {
	// Arrange
	repo := &fakeSMS{errs: []error{errors.New("timeout"), errors.New("timeout")}}
	uc := newUsecase(t, repo)

	// Act
	err := uc.ConsumeKeyCodeIssued(context.Background(), validInput())

	// Assert
	if err != nil {
		t.Fatalf("ConsumeKeyCodeIssued() error = %v", err)
	}
	if repo.calls != 3 || len(repo.sent) != 1 {
		t.Fatalf("calls = %d sent = %d", repo.calls, len(repo.sent))
	}
}

func TestConsumeKeyCodeIssuedGivesUp(t *testing.T) {
	// Arrange
	cause := errors.New("provider down")
	repo := &fakeSMS{errs: []error{cause, cause, cause}}
	uc := newUsecase(t, repo)

	// Act
	err := uc.ConsumeKeyCodeIssued(context.Background(), validInput())

	// Assert
	if !errors.Is(err, cause) {
		t.Fatalf("error = %v, want %v", err, cause)
	}
	if repo.calls != 3 {
		t.Fatalf("calls = %d, want 3", repo.calls)
	}

	// the key was released, so the redelivered event is sent
	if err := uc.ConsumeKeyCodeIssued(context.Background(), validInput()); err != nil {
		t.Fatalf("redelivery error = %v", err)
	}
	if len(repo.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(repo.sent))
	}
}

func TestConsumeKeyCodeIssuedPermanentFailure(t *testing.T) {
	repo := &fakeSMS{errs: []error{&sms.PermanentError{StatusCode: 400, Message: "invalid To number"}}}
	uc := newUsecase(t, repo)

	if err := uc.ConsumeKeyCodeIssued(context.Background(), validInput()); err != nil {
		t.Fatalf("permanent failures are dropped, got %v", err)
	}
	if repo.calls != 1 {
		t.Fatalf("calls = %d, want 1", repo.calls)
	}
}
