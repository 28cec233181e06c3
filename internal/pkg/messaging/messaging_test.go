package messaging

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatchAutoAck(t *testing.T) {
	tests := []struct {
		name     string
		handler  Handler
		autoAck  bool
		wantAck  int32
		wantNack int32
		wantErr  bool
	}{
		{name: "ack on success", handler: func(context.Context, Message) error { return nil }, autoAck: true, wantAck: 1},
		{name: "nack on error", handler: func(context.Context, Message) error { return errors.New("x") }, autoAck: true, wantNack: 1, wantErr: true},
		{name: "nack on panic", handler: func(context.Context, Message) error { panic("x") }, autoAck: true, wantNack: 1, wantErr: true},
		{name: "manual mode leaves message", handler: func(context.Context, Message) error { return nil }},
		{
			name: "handler settles itself",
			handler: func(ctx context.Context, m Message) error {
				return m.Nack(ctx)
			},
			autoAck:  true,
			wantNack: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			var acks, nacks atomic.Int32
			d := &delivery{
				ack:  func(context.Context) error { acks.Add(1); return nil },
				nack: func(context.Context) error { nacks.Add(1); return nil },
			}

			// Act
			err := dispatch(context.Background(), "test", d, tt.handler, tt.autoAck)

			// Assert
			if (err != nil) != tt.wantErr {
				t.Fatalf("dispatch() error = %v, wantErr %v", err, tt.wantErr)
			}
			if acks.Load() != tt.wantAck || nacks.Load() != tt.wantNack {
				t.Fatalf("acks=%d nacks=%d, want %d/%d", acks.Load(), nacks.Load(), tt.wantAck, tt.wantNack)
			}
		})
	}
}

func TestMemoryPublishConsume(t *testing.T) {
	mem := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- mem.Consume(ctx, "key.code.issued", func(_ context.Context, m Message) error {
			got <- m
			return nil
		}, WithAutoAck(true))
	}()

	// wait for the subscription to register
	deadline := time.Now().Add(time.Second)
	for {
		mem.mu.RLock()
		n := len(mem.subs["key.code.issued"])
		mem.mu.RUnlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("consumer did not subscribe")
		}
		time.Sleep(5 * time.Millisecond)
	}

	err := mem.Publish(ctx, "key.code.issued", OutgoingMessage{Body: []byte(`{"a":1}`), Headers: map[string]string{"cID": "c-1"}})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case m := <-got:
		if string(m.Body()) != `{"a":1}` || m.Header("cID") != "c-1" || m.ID() == "" {
			t.Fatalf("unexpected message body=%s cID=%s id=%s", m.Body(), m.Header("cID"), m.ID())
		}
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Consume() error = %v, want context.Canceled", err)
	}
}

func TestValidateConsume(t *testing.T) {
	mem := NewMemory()
	h := func(context.Context, Message) error { return nil }

	if err := mem.Consume(context.Background(), "", h); !errors.Is(err, ErrTopicRequired) {
		t.Fatalf("Consume() error = %v, want ErrTopicRequired", err)
	}
	if err := mem.Consume(context.Background(), "t", nil); !errors.Is(err, ErrHandlerRequired) {
		t.Fatalf("Consume() error = %v, want ErrHandlerRequired", err)
	}
}

func TestNewFromDriverUnknown(t *testing.T) {
	if _, err := NewFromDriver(context.Background(), "rabbit", FactoryOptions{}); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("NewFromDriver() error = %v, want ErrUnknownDriver", err)
	}
}

func TestNewFromDriverMemory(t *testing.T) {
	m, err := NewFromDriver(context.Background(), " "+DriverMemory+" ", FactoryOptions{})
	if err != nil {
		t.Fatalf("NewFromDriver() error = %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })

	if _, ok := m.(*Memory); !ok {
		t.Fatalf("NewFromDriver() = %T, want *Memory", m)
	}
}
