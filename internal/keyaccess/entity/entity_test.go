package entity

import (
	"testing"
	"time"
)

func TestOperationValid(t *testing.T) {
	for _, op := range []Operation{OperationCreate, OperationRead, OperationRemove} {
		if !op.Valid() {
			t.Fatalf("%q should be valid", op)
		}
	}
	for _, op := range []Operation{"", "update", "READ"} {
		if op.Valid() {
			t.Fatalf("%q should be invalid", op)
		}
	}
}

func TestVerificationFailureStreak(t *testing.T) {
	// Arrange
	start := time.Date(2026, 6, 9, 2, 0, 0, 0, time.UTC)
	v := &Verification{Code: "123456"}

	// Act
	v.RecordFailure(start)
	v.RecordFailure(start.Add(time.Minute))

	// Assert
	if v.InvalidCount != 2 {
		t.Fatalf("InvalidCount = %d, want 2", v.InvalidCount)
	}
	if v.FirstInvalid == nil || !v.FirstInvalid.Equal(start) {
		t.Fatalf("FirstInvalid = %v, want %v", v.FirstInvalid, start)
	}

	v.ResetFailures()
	if v.InvalidCount != 0 || v.FirstInvalid != nil {
		t.Fatalf("after reset = %d/%v", v.InvalidCount, v.FirstInvalid)
	}
}

func TestVerificationClone(t *testing.T) {
	at := time.Date(2026, 6, 9, 2, 0, 0, 0, time.UTC)
	v := &Verification{Phone: "+4917512345678", InvalidCount: 1, FirstInvalid: &at}

	c := v.Clone()
	*c.FirstInvalid = at.Add(time.Hour)
	c.InvalidCount = 5

	if !v.FirstInvalid.Equal(at) || v.InvalidCount != 1 {
		t.Fatal("Clone() must not share state with the original")
	}
	if (*Verification)(nil).Clone() != nil {
		t.Fatal("Clone() of nil should be nil")
	}
}
