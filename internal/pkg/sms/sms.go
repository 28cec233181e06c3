package sms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	DriverTwilio = "twilio"
	DriverLog    = "log"
)

var (
	// ErrNoRecipient is returned when Message.To is empty.
	ErrNoRecipient = errors.New("sms: recipient is required")
	// ErrEmptyBody is returned when Message.Body is empty.
	ErrEmptyBody = errors.New("sms: body is required")
	// ErrUnknownDriver is returned by NewFromDriver for unsupported drivers.
	ErrUnknownDriver = errors.New("sms: unknown driver")
)

// Message is a single text message.
type Message struct {
	// To is the recipient in E.164 form.
	To string
	// Body is the message text.
	Body string
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	if m.Body == "" {
		return ErrEmptyBody
	}
	return nil
}

// SMS abstracts a text message provider.
type SMS interface {
	io.Closer
	// Send dispatches msg. A non-nil error means the provider did not accept it.
	Send(ctx context.Context, msg Message) error
}

// PermanentError marks a provider rejection that will not succeed on retry,
// such as an invalid recipient or bad credentials.
type PermanentError struct {
	StatusCode int
	Message    string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("sms: provider rejected message (status %d): %s", e.StatusCode, e.Message)
}

// IsPermanent reports whether err is a PermanentError.
func IsPermanent(err error) bool {
	var perr *PermanentError
	return errors.As(err, &perr)
}

// NewFromDriver constructs an SMS sender by driver name.
func NewFromDriver(driver string, twilio TwilioConfig) (SMS, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverTwilio:
		return NewTwilio(twilio)
	case DriverLog, "":
		return NewLog(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}

// DefaultCodeTemplate is the message used when no template is configured.
const DefaultCodeTemplate = "Your verification code is {code}"

// RenderCode fills the {code} and {op} placeholders of template, falling
// back to DefaultCodeTemplate when template is blank.
func RenderCode(template, code, op string) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultCodeTemplate
	}
	return strings.NewReplacer("{code}", code, "{op}", op).Replace(template)
}
