package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/phonekey/internal/notification/usecase"
	"github.com/shandysiswandi/phonekey/internal/pkg/instrument"
	"github.com/shandysiswandi/phonekey/internal/pkg/messaging"
	"github.com/shandysiswandi/phonekey/internal/pkg/uid"
	"github.com/shandysiswandi/phonekey/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

// ensureCorrelationID prefers the header, then the id carried in the body
// for brokers without headers, and finally a fresh one.
func (h *MQHandler) ensureCorrelationID(ctx context.Context, msg messaging.Message, fromBody string) context.Context {
	if cID := msg.Header(keyOfCorrelationID); cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	if fromBody != "" {
		return instrument.SetCorrelationID(ctx, fromBody)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

func (h *MQHandler) KeyCodeIssuedNotification(ctx context.Context, msg messaging.Message) error {
	body := msg.Body()

	var payload event.KeyCodeIssuedMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		ctx = h.ensureCorrelationID(ctx, msg, "")
		slog.ErrorContext(ctx, "failed to parse message body of key code issued notification", "msg_id", msg.ID(), "error", err)
		return nil
	}

	ctx = h.ensureCorrelationID(ctx, msg, payload.CorrelationID)

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "KeyCodeIssuedNotification")
	defer span.End()

	slog.InfoContext(ctx, "consume: key code issued notification", "event_id", payload.EventID, "key_id", payload.KeyID, "op", payload.Op)

	if err := h.uc.ConsumeKeyCodeIssued(ctx, usecase.ConsumeKeyCodeIssuedInput{
		EventID: payload.EventID,
		Phone:   payload.Phone,
		KeyID:   payload.KeyID,
		Op:      payload.Op,
		Code:    payload.Code,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume key code issued", "event_id", payload.EventID, "error", err)
		return err
	}

	return nil
}
