// Package sms sends codes straight to the SMS provider from the request path.
package sms

import (
	"context"

	"github.com/shandysiswandi/phonekey/internal/keyaccess/entity"
	"github.com/shandysiswandi/phonekey/internal/pkg/instrument"
	"github.com/shandysiswandi/phonekey/internal/pkg/sms"
	"go.opentelemetry.io/otel/codes"
)

type SMS struct {
	client   sms.SMS
	template string
	ins      instrument.Instrumentation
}

func NewSMS(client sms.SMS, template string, ins instrument.Instrumentation) *SMS {
	return &SMS{client: client, template: template, ins: ins}
}

func (s *SMS) SendCode(ctx context.Context, phone, _ string, op entity.Operation, code string) error {
	ctx, span := s.ins.Tracer("keyaccess.outbound.sms").Start(ctx, "SendCode")
	defer span.End()

	if err := s.client.Send(ctx, sms.Message{To: phone, Body: sms.RenderCode(s.template, code, op.String())}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
