package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync/atomic"

	"github.com/shandysiswandi/phonekey/internal/pkg/stacktrace"
)

var (
	ErrTopicRequired   = errors.New("messaging: topic is required")
	ErrHandlerRequired = errors.New("messaging: handler is required")
	ErrClosed          = errors.New("messaging: client is closed")
)

// Messaging is a broker-agnostic client.
type Messaging interface {
	io.Closer
	Publisher
	Consumer
}

type Publisher interface {
	Publish(ctx context.Context, topic string, msg OutgoingMessage) error
}

// Consumer blocks in Consume until ctx is done or the broker fails.
type Consumer interface {
	Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes one delivery. With auto ack enabled a nil error acks the
// message and a non-nil error nacks it.
type Handler func(ctx context.Context, msg Message) error

// OutgoingMessage is what callers publish.
type OutgoingMessage struct {
	Body []byte
	// Key is the Kafka partition key and the Pub/Sub ordering key.
	Key     []byte
	Headers map[string]string
}

// Message is a received delivery.
type Message interface {
	Body() []byte
	Header(key string) string
	ID() string
	Ack(ctx context.Context) error
	Nack(ctx context.Context) error
}

// delivery adapts every driver's native message to Message. Ack and Nack run
// at most once between them.
type delivery struct {
	id      string
	body    []byte
	headers map[string]string
	ack     func(context.Context) error
	nack    func(context.Context) error

	responded atomic.Bool
}

func (d *delivery) Body() []byte { return d.body }

func (d *delivery) Header(key string) string { return d.headers[key] }

func (d *delivery) ID() string { return d.id }

func (d *delivery) Ack(ctx context.Context) error {
	if d.responded.Swap(true) || d.ack == nil {
		return nil
	}
	return d.ack(ctx)
}

func (d *delivery) Nack(ctx context.Context) error {
	if d.responded.Swap(true) || d.nack == nil {
		return nil
	}
	return d.nack(ctx)
}

// dispatch runs handler with panic recovery and settles the delivery when
// autoAck is set and the handler did not settle it itself.
func dispatch(ctx context.Context, kind string, d *delivery, handler Handler, autoAck bool) error {
	herr := callHandlerWithRecover(ctx, kind, func() error { return handler(ctx, d) })

	if !autoAck || d.responded.Load() {
		return herr
	}
	if herr != nil {
		return errors.Join(herr, d.Nack(ctx))
	}
	return d.Ack(ctx)
}

func callHandlerWithRecover(ctx context.Context, kind string, fn func() error) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			slog.ErrorContext(ctx, "panic in messaging handler", "kind", kind, "panic", rvr, "stack", stacktrace.Value(debug.Stack()))
			err = fmt.Errorf("messaging: panic in %s handler: %v", kind, rvr)
		}
	}()

	return fn()
}

func validateConsume(ctx context.Context, source string, handler Handler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if source == "" {
		return ErrTopicRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	return nil
}
