// Package otp generates numeric one-time codes for out-of-band delivery.
//
// Codes are HOTP values (RFC 4226) computed over a throwaway random secret and
// counter, so every call yields an independent, uniformly distributed code.
package otp
