package validator

// Validator validates a struct. A failed validation returns an error that
// also implements Values() map[string]string.
type Validator interface {
	Validate(data any) error
}
