// Package secretbox seals small secrets at rest with AES-256-GCM.
//
// Every sealed value is bound to a Scope through the GCM additional data, so a
// ciphertext copied onto another record fails to open.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Purpose separates keys derived for different kinds of secrets.
type Purpose string

// PurposeKeySecret scopes sealing to key resource payloads.
const PurposeKeySecret Purpose = "key_secret"

// Scope binds a sealed value to the record that owns it.
type Scope struct {
	Purpose Purpose
	Subject string
}

// Box seals and opens secrets.
type Box interface {
	Seal(plaintext []byte, scope Scope) ([]byte, error)
	Open(ciphertext []byte, scope Scope) ([]byte, error)
}

// KeyProvider returns the raw 32 byte AES key for a scope.
type KeyProvider interface {
	Key(scope Scope) ([]byte, error)
}

// Sealed layout: uint16 version | 12 byte nonce | ciphertext+tag.
const (
	version   uint16 = 1
	nonceSize        = 12
	keySize          = 32
)

var (
	ErrNotConfigured      = errors.New("secretbox: key provider not configured")
	ErrEmptyPlaintext     = errors.New("secretbox: plaintext is empty")
	ErrInvalidKeyLength   = errors.New("secretbox: invalid key length")
	ErrCiphertextTooShort = errors.New("secretbox: ciphertext too short")
	ErrUnsupportedVersion = errors.New("secretbox: unsupported ciphertext version")
	ErrOpenFailed         = errors.New("secretbox: open failed")
)

// AESGCM implements Box.
type AESGCM struct {
	keys KeyProvider
}

// NewAESGCM returns an AES-256-GCM box.
func NewAESGCM(keys KeyProvider) *AESGCM {
	return &AESGCM{keys: keys}
}

// Seal encrypts plaintext for scope.
func (b *AESGCM) Seal(plaintext []byte, scope Scope) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, ErrEmptyPlaintext
	}

	gcm, err := b.aead(scope)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("secretbox: nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, scopeAAD(scope))

	out := make([]byte, 2+nonceSize+len(sealed))
	binary.BigEndian.PutUint16(out[:2], version)
	copy(out[2:2+nonceSize], nonce)
	copy(out[2+nonceSize:], sealed)

	return out, nil
}

// Open decrypts ciphertext sealed for the same scope.
func (b *AESGCM) Open(ciphertext []byte, scope Scope) ([]byte, error) {
	if len(ciphertext) < 2+nonceSize+1 {
		return nil, ErrCiphertextTooShort
	}
	if v := binary.BigEndian.Uint16(ciphertext[:2]); v != version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	gcm, err := b.aead(scope)
	if err != nil {
		return nil, err
	}

	plain, err := gcm.Open(nil, ciphertext[2:2+nonceSize], ciphertext[2+nonceSize:], scopeAAD(scope))
	if err != nil {
		return nil, ErrOpenFailed
	}

	return plain, nil
}

func (b *AESGCM) aead(scope Scope) (cipher.AEAD, error) {
	if b == nil || b.keys == nil {
		return nil, ErrNotConfigured
	}

	key, err := b.keys.Key(scope)
	if err != nil {
		return nil, fmt.Errorf("secretbox: key provider: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKeyLength, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secretbox: aes: %w", err)
	}

	return cipher.NewGCMWithNonceSize(block, nonceSize)
}

func scopeAAD(s Scope) []byte {
	sum := sha256.Sum256([]byte("purpose=" + string(s.Purpose) + "\nsubject=" + s.Subject + "\n"))
	return sum[:]
}

// HKDFKeyProvider derives one key per purpose from a master secret.
type HKDFKeyProvider struct {
	master []byte
}

// NewHKDFKeyProvider validates and wraps a 32 byte master key.
func NewHKDFKeyProvider(master []byte) (*HKDFKeyProvider, error) {
	if len(master) != keySize {
		return nil, fmt.Errorf("%w: master key is %d bytes, want %d", ErrInvalidKeyLength, len(master), keySize)
	}
	m := make([]byte, len(master))
	copy(m, master)
	return &HKDFKeyProvider{master: m}, nil
}

// Key derives the AES key for the scope purpose.
func (p *HKDFKeyProvider) Key(scope Scope) ([]byte, error) {
	key := make([]byte, keySize)
	r := hkdf.New(sha256.New, p.master, nil, []byte("phonekey/secretbox/"+string(scope.Purpose)))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}
