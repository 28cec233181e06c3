package entity

import "time"

// Verification is the per phone one-time code state. There is at most one per
// phone number.
type Verification struct {
	Phone        string     `json:"phone"`
	KeyID        string     `json:"key_id"`
	Op           Operation  `json:"op"`
	Code         string     `json:"code"`
	Verified     bool       `json:"verified"`
	InvalidCount int        `json:"invalid_count"`
	FirstInvalid *time.Time `json:"first_invalid,omitempty"`
}

// Matches reports whether the record is bound to keyID and op.
func (v *Verification) Matches(keyID string, op Operation) bool {
	return v.KeyID == keyID && v.Op == op
}

// ResetFailures clears the failure streak.
func (v *Verification) ResetFailures() {
	v.InvalidCount = 0
	v.FirstInvalid = nil
}

// RecordFailure counts a failed attempt, starting the streak at now when
// none is running.
func (v *Verification) RecordFailure(now time.Time) {
	v.InvalidCount++
	if v.FirstInvalid == nil {
		t := now
		v.FirstInvalid = &t
	}
}

// Clone returns a deep copy.
func (v *Verification) Clone() *Verification {
	if v == nil {
		return nil
	}
	c := *v
	if v.FirstInvalid != nil {
		t := *v.FirstInvalid
		c.FirstInvalid = &t
	}
	return &c
}
