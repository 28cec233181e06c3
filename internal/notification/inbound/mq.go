package inbound

import (
	"context"
	"log/slog"
	"slices"

	"github.com/shandysiswandi/phonekey/internal/pkg/config"
	"github.com/shandysiswandi/phonekey/internal/pkg/goroutine"
	"github.com/shandysiswandi/phonekey/internal/pkg/instrument"
	"github.com/shandysiswandi/phonekey/internal/pkg/messaging"
	"github.com/shandysiswandi/phonekey/internal/pkg/uid"
	"github.com/shandysiswandi/phonekey/internal/shared/event"
)

const (
	consumerConcurrency = 10
	consumerMaxInFlight = 10
)

// subscription binds a topic to a handler. group is the durable name every
// broker uses to share work between replicas: an NSQ channel, a NATS queue
// group, a Kafka consumer group or a Pub/Sub subscription.
type subscription struct {
	group   string
	topic   string
	handler messaging.Handler
}

// RegisterMQConsumer starts one background consumer per subscription listed
// in modules.notification.consumer_names. An empty list starts none.
func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	messenger messaging.Consumer,
	uuid uid.StringID,
	uc uc,
	ins instrument.Instrumentation,
) {
	h := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	subscriptions := []subscription{
		{
			group:   event.KeyCodeIssuedConsumerNotification,
			topic:   event.KeyCodeIssuedDestination,
			handler: h.KeyCodeIssuedNotification,
		},
	}

	enabled := cfg.GetArray("modules.notification.consumer_names")

	for _, sub := range subscriptions {
		if !slices.Contains(enabled, sub.group) {
			slog.InfoContext(ctx, "consumer disabled by config", "consumer", sub.group)
			continue
		}

		routine.Go(ctx, func(cctx context.Context) error {
			slog.InfoContext(cctx, "consumer started", "consumer", sub.group, "topic", sub.topic)

			return messenger.Consume(cctx, sub.topic, sub.handler,
				messaging.WithChannel(sub.group),
				messaging.WithQueueGroup(sub.group),
				messaging.WithGroup(sub.group),
				messaging.WithSubscription(sub.group),
				messaging.WithAutoAck(true),
				messaging.WithConcurrency(consumerConcurrency),
				messaging.WithMaxInFlight(consumerMaxInFlight),
			)
		})
	}
}
