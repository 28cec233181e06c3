// Package messaging publishes and consumes messages through one interface
// regardless of the broker: NATS, NSQ, Kafka, Google Pub/Sub, or an in-process
// memory broker for local runs and tests.
//
// Headers are best effort. NSQ has no header support, so anything a consumer
// must rely on belongs in the message body.
package messaging
