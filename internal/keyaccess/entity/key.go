package entity

import "time"

// Key is a protected secret resource. Secret is plaintext only in memory;
// stores persist it sealed.
type Key struct {
	ID        string
	Secret    []byte
	CreatedAt time.Time
}
