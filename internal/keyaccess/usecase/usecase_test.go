package usecase

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shandysiswandi/phonekey/internal/keyaccess/entity"
	"github.com/shandysiswandi/phonekey/internal/keyaccess/verification"
	"github.com/shandysiswandi/phonekey/internal/pkg/clock"
	"github.com/shandysiswandi/phonekey/internal/pkg/goerror"
	"github.com/shandysiswandi/phonekey/internal/pkg/instrument"
	"github.com/shandysiswandi/phonekey/internal/pkg/validator"
)

const (
	phone = "+4917512345678"
	keyID = "8abe1a93-6a9c-490c-bbd5-d7f11a4a9c8f"
	code  = "123456"
)

var (
	errBoom = errors.New("boom")
	now     = time.Date(2026, 6, 9, 3, 33, 47, 0, time.UTC)
)

type fakeEngine struct {
	verified    *entity.Verification
	verifiedErr error
	registerErr error
	renewCode   string
	renewErr    error
	verifyRes   *verification.VerifyResult
	verifyErr   error
	removeErr   error

	registered []string
	renewed    []entity.Operation
	removes    int
}

func (f *fakeEngine) Register(_ context.Context, _, keyID string) (string, error) {
	f.registered = append(f.registered, keyID)
	return code, f.registerErr
}

func (f *fakeEngine) Renew(_ context.Context, _, _ string, op entity.Operation) (string, error) {
	f.renewed = append(f.renewed, op)
	return f.renewCode, f.renewErr
}

func (f *fakeEngine) Verify(_ context.Context, _ verification.VerifyInput) (*verification.VerifyResult, error) {
	return f.verifyRes, f.verifyErr
}

func (f *fakeEngine) GetVerified(_ context.Context, _ string) (*entity.Verification, error) {
	return f.verified, f.verifiedErr
}

func (f *fakeEngine) Remove(_ context.Context, _, _ string) error {
	f.removes++
	return f.removeErr
}

type fakeKeys struct {
	saved   []entity.Key
	saveErr error
	dummies int
	key     *entity.Key
	getErr  error
	deleted []string
}

func (f *fakeKeys) CreateKey(_ context.Context, secret []byte, createdAt time.Time) (*entity.Key, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	key := entity.Key{ID: "new-key-id", Secret: secret, CreatedAt: createdAt}
	f.saved = append(f.saved, key)
	return &key, nil
}

func (f *fakeKeys) CreateDummyKey(context.Context) string {
	f.dummies++
	return "dummy-key-id"
}

func (f *fakeKeys) GetKey(_ context.Context, _ string) (*entity.Key, error) {
	return f.key, f.getErr
}

func (f *fakeKeys) DeleteKey(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type sentCode struct {
	keyID string
	op    entity.Operation
	code  string
}

type fakeNotifier struct {
	sent []sentCode
	err  error
}

func (f *fakeNotifier) SendCode(_ context.Context, _, keyID string, op entity.Operation, code string) error {
	f.sent = append(f.sent, sentCode{keyID: keyID, op: op, code: code})
	return f.err
}

type fixture struct {
	engine   *fakeEngine
	keys     *fakeKeys
	notifier *fakeNotifier
	uc       *Usecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("NewV10Validator() error = %v", err)
	}

	f := &fixture{engine: &fakeEngine{}, keys: &fakeKeys{}, notifier: &fakeNotifier{}}
	f.uc = New(Dependency{
		Engine:      f.engine,
		RepoKey:     f.keys,
		Notifier:    f.notifier,
		Validator:   v,
		Clock:       clock.Fixed(now),
		Instrument:  instrument.NewNoop(),
		SecretBytes: 16,
		Random:      bytes.NewReader(bytes.Repeat([]byte{0xAB}, 64)),
	})
	return f
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *goerror.Error, got %T (%v)", err, err)
	}
	return gerr.StatusCode()
}

func TestRegister(t *testing.T) {
	t.Run("new phone gets a stored key and a create code", func(t *testing.T) {
		// Arrange
		f := newFixture(t)

		// Act
		out, err := f.uc.Register(context.Background(), RegisterInput{Phone: phone})

		// Assert
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if out.ID != "new-key-id" {
			t.Fatalf("ID = %q", out.ID)
		}
		if len(f.keys.saved) != 1 || f.keys.dummies != 0 {
			t.Fatalf("saved = %d, dummies = %d, want 1 and 0", len(f.keys.saved), f.keys.dummies)
		}
		saved := f.keys.saved[0]
		if saved.ID != "new-key-id" || len(saved.Secret) != 16 || !saved.CreatedAt.Equal(now) {
			t.Fatalf("saved key = %+v", saved)
		}
		if len(f.engine.registered) != 1 || f.engine.registered[0] != "new-key-id" {
			t.Fatalf("registered = %v", f.engine.registered)
		}
		if len(f.notifier.sent) != 1 || f.notifier.sent[0] != (sentCode{keyID: "new-key-id", op: entity.OperationCreate, code: code}) {
			t.Fatalf("sent = %+v", f.notifier.sent)
		}
	})

	t.Run("verified phone gets a dummy id from the key store without side effects", func(t *testing.T) {
		f := newFixture(t)
		f.engine.verified = &entity.Verification{Verified: true}

		out, err := f.uc.Register(context.Background(), RegisterInput{Phone: phone})

		if err != nil || out.ID != "dummy-key-id" {
			t.Fatalf("Register() = %+v, %v", out, err)
		}
		if f.keys.dummies != 1 {
			t.Fatalf("dummies = %d, want 1", f.keys.dummies)
		}
		if len(f.keys.saved) != 0 || len(f.engine.registered) != 0 || len(f.notifier.sent) != 0 {
			t.Fatal("dummy path must not persist or notify")
		}
	})

	tests := []struct {
		name   string
		in     RegisterInput
		setup  func(f *fixture)
		status int
	}{
		{name: "empty phone", in: RegisterInput{}, status: http.StatusBadRequest},
		{name: "malformed phone", in: RegisterInput{Phone: "0175-123"}, status: http.StatusBadRequest},
		{name: "phone without plus", in: RegisterInput{Phone: "4917512345678"}, status: http.StatusBadRequest},
		{name: "lookup failure", in: RegisterInput{Phone: phone}, setup: func(f *fixture) { f.engine.verifiedErr = errBoom }, status: http.StatusInternalServerError},
		{name: "key store failure", in: RegisterInput{Phone: phone}, setup: func(f *fixture) { f.keys.saveErr = errBoom }, status: http.StatusInternalServerError},
		{name: "engine failure", in: RegisterInput{Phone: phone}, setup: func(f *fixture) { f.engine.registerErr = errBoom }, status: http.StatusInternalServerError},
		{name: "notifier failure", in: RegisterInput{Phone: phone}, setup: func(f *fixture) { f.notifier.err = errBoom }, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}

			_, err := f.uc.Register(context.Background(), tt.in)

			if got := statusOf(t, err); got != tt.status {
				t.Fatalf("status = %d, want %d (err=%v)", got, tt.status, err)
			}
		})
	}
}

func TestRequestCode(t *testing.T) {
	in := RequestCodeInput{Phone: phone, KeyID: keyID, Op: entity.OperationRead}

	t.Run("sends the renewed code", func(t *testing.T) {
		f := newFixture(t)
		f.engine.renewCode = "654321"

		err := f.uc.RequestCode(context.Background(), in)

		if err != nil {
			t.Fatalf("RequestCode() error = %v", err)
		}
		if len(f.notifier.sent) != 1 || f.notifier.sent[0] != (sentCode{keyID: keyID, op: entity.OperationRead, code: "654321"}) {
			t.Fatalf("sent = %+v", f.notifier.sent)
		}
	})

	tests := []struct {
		name   string
		in     RequestCodeInput
		setup  func(f *fixture)
		status int
	}{
		{name: "missing key id", in: RequestCodeInput{Phone: phone, Op: entity.OperationRead}, status: http.StatusBadRequest},
		{name: "phone without plus", in: RequestCodeInput{Phone: "4917512345678", KeyID: keyID, Op: entity.OperationRead}, status: http.StatusBadRequest},
		{name: "unknown op", in: RequestCodeInput{Phone: phone, KeyID: keyID, Op: "update"}, status: http.StatusBadRequest},
		{name: "no verified record", in: in, status: http.StatusNotFound},
		{name: "engine failure", in: in, setup: func(f *fixture) { f.engine.renewErr = errBoom }, status: http.StatusInternalServerError},
		{name: "notifier failure", in: in, setup: func(f *fixture) { f.engine.renewCode = code; f.notifier.err = errBoom }, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}

			err := f.uc.RequestCode(context.Background(), tt.in)

			if got := statusOf(t, err); got != tt.status {
				t.Fatalf("status = %d, want %d (err=%v)", got, tt.status, err)
			}
		})
	}
}

func TestComplete(t *testing.T) {
	verified := &verification.VerifyResult{
		Outcome: verification.OutcomeVerified,
		Record:  &entity.Verification{KeyID: keyID, Verified: true},
	}
	input := func(op entity.Operation) CompleteInput {
		return CompleteInput{Phone: phone, KeyID: keyID, Op: op, Code: code}
	}

	t.Run("create confirms the key", func(t *testing.T) {
		f := newFixture(t)
		f.engine.verifyRes = verified

		out, err := f.uc.Complete(context.Background(), input(entity.OperationCreate))

		if err != nil || out.ID != keyID || out.Secret != nil {
			t.Fatalf("Complete() = %+v, %v", out, err)
		}
	})

	t.Run("read returns the secret", func(t *testing.T) {
		f := newFixture(t)
		f.engine.verifyRes = verified
		f.keys.key = &entity.Key{ID: keyID, Secret: []byte("s3cr3t")}

		out, err := f.uc.Complete(context.Background(), input(entity.OperationRead))

		if err != nil || out.ID != keyID || string(out.Secret) != "s3cr3t" {
			t.Fatalf("Complete() = %+v, %v", out, err)
		}
	})

	t.Run("remove deletes record then key", func(t *testing.T) {
		f := newFixture(t)
		f.engine.verifyRes = verified

		out, err := f.uc.Complete(context.Background(), input(entity.OperationRemove))

		if err != nil || out.ID != keyID {
			t.Fatalf("Complete() = %+v, %v", out, err)
		}
		if f.engine.removes != 1 || len(f.keys.deleted) != 1 || f.keys.deleted[0] != keyID {
			t.Fatalf("removes = %d deleted = %v", f.engine.removes, f.keys.deleted)
		}
	})

	t.Run("remove stops when the record removal fails", func(t *testing.T) {
		f := newFixture(t)
		f.engine.verifyRes = verified
		f.engine.removeErr = errBoom

		_, err := f.uc.Complete(context.Background(), input(entity.OperationRemove))

		if got := statusOf(t, err); got != http.StatusInternalServerError {
			t.Fatalf("status = %d", got)
		}
		if f.engine.removes != 1 || len(f.keys.deleted) != 0 {
			t.Fatalf("removes = %d deleted = %v, key removal must not be attempted", f.engine.removes, f.keys.deleted)
		}
	})

	t.Run("lockout is rate limited with the retry time", func(t *testing.T) {
		f := newFixture(t)
		retryAt := now.Add(time.Hour)
		f.engine.verifyRes = &verification.VerifyResult{Outcome: verification.OutcomeLockedOut, RetryAt: &retryAt}

		_, err := f.uc.Complete(context.Background(), input(entity.OperationRead))

		var gerr *goerror.Error
		if !errors.As(err, &gerr) || gerr.StatusCode() != http.StatusTooManyRequests {
			t.Fatalf("Complete() error = %v", err)
		}
		if gerr.Msg() != "Rate limit exceeded" || gerr.RetryAt() == nil || !gerr.RetryAt().Equal(retryAt) {
			t.Fatalf("rate limit error = %s", gerr.String())
		}
	})

	tests := []struct {
		name   string
		in     CompleteInput
		setup  func(f *fixture)
		status int
	}{
		{name: "empty input", in: CompleteInput{}, status: http.StatusBadRequest},
		{name: "malformed code", in: CompleteInput{Phone: phone, KeyID: keyID, Op: entity.OperationRead, Code: "12ab56"}, status: http.StatusBadRequest},
		{name: "phone without plus", in: CompleteInput{Phone: "4917512345678", KeyID: keyID, Op: entity.OperationRead, Code: "123456"}, status: http.StatusBadRequest},
		{name: "no match", in: input(entity.OperationRead), setup: func(f *fixture) {
			f.engine.verifyRes = &verification.VerifyResult{Outcome: verification.OutcomeNoMatch}
		}, status: http.StatusNotFound},
		{name: "wrong code", in: input(entity.OperationRead), setup: func(f *fixture) {
			f.engine.verifyRes = &verification.VerifyResult{Outcome: verification.OutcomeInvalidCode}
		}, status: http.StatusNotFound},
		{name: "window reset", in: input(entity.OperationRead), setup: func(f *fixture) {
			f.engine.verifyRes = &verification.VerifyResult{Outcome: verification.OutcomeWindowReset}
		}, status: http.StatusNotFound},
		{name: "engine failure", in: input(entity.OperationRead), setup: func(f *fixture) { f.engine.verifyErr = errBoom }, status: http.StatusInternalServerError},
		{name: "read with missing key", in: input(entity.OperationRead), setup: func(f *fixture) {
			f.engine.verifyRes = verified
			f.keys.getErr = goerror.ErrNotFound
		}, status: http.StatusNotFound},
		{name: "read failure", in: input(entity.OperationRead), setup: func(f *fixture) {
			f.engine.verifyRes = verified
			f.keys.getErr = errBoom
		}, status: http.StatusInternalServerError},
		{name: "remove raced by another removal", in: input(entity.OperationRemove), setup: func(f *fixture) {
			f.engine.verifyRes = verified
			f.engine.removeErr = verification.ErrNoMatchingRecord
		}, status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}

			_, err := f.uc.Complete(context.Background(), tt.in)

			if got := statusOf(t, err); got != tt.status {
				t.Fatalf("status = %d, want %d (err=%v)", got, tt.status, err)
			}
		})
	}
}
