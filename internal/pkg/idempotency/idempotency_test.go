package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTracker(t *testing.T) (*StateTracker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client), mr
}

func TestExecRunsOnce(t *testing.T) {
	// Arrange
	tracker, _ := newTracker(t)
	ctx := context.Background()
	calls := 0
	fn := func(context.Context) error {
		calls++
		return nil
	}

	// Act
	first := tracker.Exec(ctx, "evt-1", fn)
	second := tracker.Exec(ctx, "evt-1", fn)

	// Assert
	if first != nil {
		t.Fatalf("first Exec() error = %v", first)
	}
	if !errors.Is(second, ErrAlreadyCompleted) {
		t.Fatalf("second Exec() error = %v, want ErrAlreadyCompleted", second)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestExecReleasesOnFailure(t *testing.T) {
	tracker, mr := newTracker(t)
	ctx := context.Background()
	errSend := errors.New("provider down")

	err := tracker.Exec(ctx, "evt-2", func(context.Context) error { return errSend })
	if !errors.Is(err, errSend) {
		t.Fatalf("Exec() error = %v, want %v", err, errSend)
	}
	if mr.Exists("idempotency:evt-2") {
		t.Fatal("failed operation must release its key")
	}

	if err := tracker.Exec(ctx, "evt-2", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("retry Exec() error = %v", err)
	}
}

func TestExecInProgress(t *testing.T) {
	tracker, _ := newTracker(t)
	ctx := context.Background()

	if _, err := tracker.Acquire(ctx, "evt-3", time.Minute); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	err := tracker.Exec(ctx, "evt-3", func(context.Context) error { return nil })
	if !errors.Is(err, ErrAlreadyInProgress) {
		t.Fatalf("Exec() error = %v, want ErrAlreadyInProgress", err)
	}
}

func TestCompletedStateExpires(t *testing.T) {
	tracker, mr := newTracker(t)
	ctx := context.Background()

	if err := tracker.Exec(ctx, "evt-4", func(context.Context) error { return nil }, WithStateTTL(time.Minute)); err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if err := tracker.Exec(ctx, "evt-4", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Exec() after expiry error = %v", err)
	}
}

func TestAcquireInvalidState(t *testing.T) {
	tracker, mr := newTracker(t)
	if err := mr.Set("idempotency:evt-5", "garbage"); err != nil {
		t.Fatal(err)
	}

	if _, err := tracker.Acquire(context.Background(), "evt-5", time.Minute); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("Acquire() error = %v, want ErrInvalidState", err)
	}
}
