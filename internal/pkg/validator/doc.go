// Package validator checks request and domain structs against their
// `validate` tags.
//
// Callers depend on the Validator interface. V10Validator is backed by
// go-playground/validator v10 with English messages and reports fields by
// their JSON names.
package validator
