// Package config reads application settings from a file, with environment
// variables taking precedence.
package config

import (
	"io"
	"time"
)

// Config exposes typed, read-only access to application settings.
//
// Missing keys return the zero value of the requested type. Durations are
// stored as integers and scaled by the unit in the method name.
type Config interface {
	io.Closer

	GetBool(key string) bool
	GetString(key string) string
	GetInt(key string) int
	GetInt64(key string) int64
	GetFloat64(key string) float64

	GetMillisecond(key string) time.Duration
	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration

	// GetBinary decodes a base64 value. Invalid input yields nil.
	GetBinary(key string) []byte

	// GetArray accepts either "a,b,c" or a YAML sequence.
	GetArray(key string) []string
}
