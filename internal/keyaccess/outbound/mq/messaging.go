package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/phonekey/internal/keyaccess/entity"
	"github.com/shandysiswandi/phonekey/internal/pkg/clock"
	"github.com/shandysiswandi/phonekey/internal/pkg/instrument"
	"github.com/shandysiswandi/phonekey/internal/pkg/messaging"
	"github.com/shandysiswandi/phonekey/internal/pkg/uid"
	"github.com/shandysiswandi/phonekey/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

// Messaging hands codes to the notification module through the broker.
type Messaging struct {
	client messaging.Publisher
	uuid   uid.StringID
	clock  clock.Clocker
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, uuid uid.StringID, clk clock.Clocker, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, uuid: uuid, clock: clk, ins: ins}
}

func (m *Messaging) SendCode(ctx context.Context, phone, keyID string, op entity.Operation, code string) error {
	ctx, span := m.ins.Tracer("keyaccess.outbound.mq").Start(ctx, "SendCode")
	defer span.End()

	cID := instrument.GetCorrelationID(ctx)
	body, err := json.Marshal(event.KeyCodeIssuedMessage{
		EventID:       m.uuid.Generate(),
		CorrelationID: cID,
		Phone:         phone,
		KeyID:         keyID,
		Op:            op.String(),
		Code:          code,
		IssuedAt:      m.clock.Now(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := m.client.Publish(ctx, event.KeyCodeIssuedDestination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(keyID),
		Headers: map[string]string{keyOfCorrelationID: cID},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
