package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/phonekey/internal/keyaccess/entity"
	"github.com/shandysiswandi/phonekey/internal/pkg/clock"
	"github.com/shandysiswandi/phonekey/internal/pkg/instrument"
	"github.com/shandysiswandi/phonekey/internal/pkg/messaging"
	"github.com/shandysiswandi/phonekey/internal/shared/event"
)

type fixedID string

func (f fixedID) Generate() string { return string(f) }

type recordingPublisher struct {
	topic string
	msg   messaging.OutgoingMessage
	err   error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, msg messaging.OutgoingMessage) error {
	p.topic = topic
	p.msg = msg
	return p.err
}

func TestSendCode(t *testing.T) {
	// Arrange
	pub := &recordingPublisher{}
	at := time.Date(2026, 6, 9, 3, 0, 0, 0, time.UTC)
	m := NewMessaging(pub, fixedID("evt-1"), clock.Fixed(at), instrument.NewNoop())
	ctx := instrument.SetCorrelationID(context.Background(), "cid-42")

	// Act
	err := m.SendCode(ctx, "+4917512345678", "key-1", entity.OperationRead, "123456")

	// Assert
	if err != nil {
		t.Fatalf("SendCode() error = %v", err)
	}
	if pub.topic != event.KeyCodeIssuedDestination {
		t.Fatalf("topic = %q", pub.topic)
	}
	if pub.msg.Headers[keyOfCorrelationID] != "cid-42" || string(pub.msg.Key) != "key-1" {
		t.Fatalf("headers = %v key = %q", pub.msg.Headers, pub.msg.Key)
	}

	var got event.KeyCodeIssuedMessage
	if err := json.Unmarshal(pub.msg.Body, &got); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	want := event.KeyCodeIssuedMessage{
		EventID:       "evt-1",
		CorrelationID: "cid-42",
		Phone:         "+4917512345678",
		KeyID:         "key-1",
		Op:            "read",
		Code:          "123456",
		IssuedAt:      at,
	}
	if got != want {
		t.Fatalf("event = %+v, want %+v", got, want)
	}
}

func TestSendCodePublishError(t *testing.T) {
	pub := &recordingPublisher{err: messaging.ErrClosed}
	m := NewMessaging(pub, fixedID("evt-1"), clock.New(), instrument.NewNoop())

	err := m.SendCode(context.Background(), "+1", "k", entity.OperationCreate, "000000")

	if !errors.Is(err, messaging.ErrClosed) {
		t.Fatalf("SendCode() error = %v", err)
	}
}
