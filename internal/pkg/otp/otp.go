package otp

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

// Generator produces one-time codes.
type Generator interface {
	Generate() (string, error)
}

// HOTP implements Generator with pquerna/otp HOTP. Codes are always six
// digits, the length every verifier of this service accepts.
type HOTP struct {
	secretSize int
	rand       io.Reader
}

// Option customizes an HOTP generator.
type Option func(*HOTP)

// WithRandom replaces the entropy source.
func WithRandom(r io.Reader) Option {
	return func(h *HOTP) { h.rand = r }
}

// NewHOTP returns a six digit generator backed by crypto/rand.
func NewHOTP(opts ...Option) *HOTP {
	h := &HOTP{
		secretSize: 20, // RFC 4226 recommendation
		rand:       rand.Reader,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Generate returns a fresh six digit code.
func (h *HOTP) Generate() (string, error) {
	secret := make([]byte, h.secretSize)
	if _, err := io.ReadFull(h.rand, secret); err != nil {
		return "", fmt.Errorf("otp: read secret: %w", err)
	}

	var counter [8]byte
	if _, err := io.ReadFull(h.rand, counter[:]); err != nil {
		return "", fmt.Errorf("otp: read counter: %w", err)
	}

	return hotp.GenerateCodeCustom(
		base32.StdEncoding.EncodeToString(secret),
		binary.BigEndian.Uint64(counter[:]),
		hotp.ValidateOpts{Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1},
	)
}
