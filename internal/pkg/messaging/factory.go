package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// DriverNSQ publishes to nsqd and consumes through channels.
	DriverNSQ = "nsq"
	// DriverNATS uses core NATS subjects with queue groups.
	DriverNATS = "nats"
	// DriverKafka uses Kafka topics with consumer groups.
	DriverKafka = "kafka"
	// DriverGooglePubSub uses Google Cloud Pub/Sub topics and subscriptions.
	DriverGooglePubSub = "google-pubsub"
	// DriverMemory keeps messages in process. Only for tests and local runs.
	DriverMemory = "memory"
)

// ErrUnknownDriver is returned by NewFromDriver for a name it does not know.
var ErrUnknownDriver = errors.New("messaging: unknown driver")

// FactoryOptions carries the config of every driver; only the selected one
// is read.
type FactoryOptions struct {
	// NSQ is used by DriverNSQ.
	NSQ NSQConfig
	// Kafka is used by DriverKafka.
	Kafka KafkaConfig
	// NATS is used by DriverNATS.
	NATS NATSConfig
	// PubSub is used by DriverGooglePubSub.
	PubSub PubSubConfig
}

// NewFromDriver constructs a Messaging implementation by driver name.
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Messaging, error) {
	switch strings.TrimSpace(driver) {
	case DriverNSQ:
		return NewNSQ(opts.NSQ)
	case DriverKafka:
		return NewKafka(opts.Kafka)
	case DriverNATS:
		return NewNATS(opts.NATS)
	case DriverGooglePubSub:
		return NewPubSub(ctx, opts.PubSub)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}
