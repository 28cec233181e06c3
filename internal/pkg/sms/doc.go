// Package sms defines the contract for sending short text messages to a phone
// number.
//
// Use cases work with the SMS interface and Message payload; the provider
// specific delivery (Twilio REST API, local log sink) lives in this package.
package sms
