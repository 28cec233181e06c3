package messaging

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
)

// Memory is an in-process broker. Every consumer of a topic receives every
// message published after it subscribed. There is no redelivery: Ack and
// Nack only settle the delivery.
type Memory struct {
	mu     sync.RWMutex
	subs   map[string][]chan *delivery
	seq    atomic.Uint64
	closed bool
}

func NewMemory() *Memory {
	return &Memory{subs: map[string][]chan *delivery{}}
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Memory) Publish(ctx context.Context, topic string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}

	id := strconv.FormatUint(m.seq.Add(1), 10)
	for _, ch := range m.subs[topic] {
		select {
		case ch <- &delivery{id: id, body: msg.Body, headers: msg.Headers}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *Memory) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := validateConsume(ctx, source, handler); err != nil {
		return err
	}

	co := newConsumeOptions(opts...)
	ch := make(chan *delivery, max(co.maxInFlight, co.concurrency))

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.subs[source] = append(m.subs[source], ch)
	m.mu.Unlock()

	defer m.unsubscribe(source, ch)

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case d := <-ch:
					_ = dispatch(ctx, "memory", d, handler, co.autoAck)
				case <-ctx.Done():
					return
				}
			}
		})
	}

	wg.Wait()
	return ctx.Err()
}

func (m *Memory) unsubscribe(topic string, ch chan *delivery) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs := m.subs[topic]
	for i := range subs {
		if subs[i] == ch {
			m.subs[topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}
