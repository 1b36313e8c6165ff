package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type fakeStore struct {
	mu     sync.Mutex
	batch  []Event
	sent   []int64
	failed map[int64]string
	err    error
}

func (s *fakeStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := s.batch
	s.batch = nil
	return out, nil
}

func (s *fakeStore) MarkSent(ctx context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, ids...)
	return nil
}

func (s *fakeStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed == nil {
		s.failed = map[int64]string{}
	}
	s.failed[id] = errMsg
	return nil
}

type fakeProducer struct {
	msgs   []kafka.Message
	failOn string
}

func (p *fakeProducer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		if string(m.Key) == p.failOn {
			return errors.New("broker unavailable")
		}
	}
	p.msgs = append(p.msgs, msgs...)
	return nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRelayTickDispatchesAndMarks(t *testing.T) {
	store := &fakeStore{batch: []Event{
		{ID: 1, AggregateID: "order-1", Type: "OrderCreated", Payload: []byte(`{}`), Traceparent: "00-abc-def-01"},
		{ID: 2, AggregateID: "order-2", Type: "OrderSettled", Payload: []byte(`{}`)},
		{ID: 3, AggregateID: "order-3", Type: "OrderSettled", Payload: []byte(`{}`)},
	}}
	producer := &fakeProducer{failOn: "order-2"}
	relay := NewRelay(discard(), store, NewDispatcher(discard(), producer, "order.events"), "test-relay")

	sent := relay.Tick(context.Background())

	assert.Equal(t, 2, sent)
	assert.Equal(t, []int64{1, 3}, store.sent)
	assert.Contains(t, store.failed, int64(2))
	require.Len(t, producer.msgs, 2)

	first := producer.msgs[0]
	assert.Equal(t, "order.events", first.Topic)
	assert.Equal(t, "order-1", string(first.Key))
	headers := map[string]string{}
	for _, h := range first.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "OrderCreated", headers[EventTypeHeader])
	assert.Equal(t, "00-abc-def-01", headers["traceparent"])
}

func TestDispatchContinuesStoredTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	const tp = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	producer := &fakeProducer{}
	d := NewDispatcher(discard(), producer, "order.events")

	require.NoError(t, d.Dispatch(context.Background(), Event{ID: 9, AggregateID: "order-9", Type: "OrderSettled", Traceparent: tp}))
	require.Len(t, producer.msgs, 1)

	var got string
	for _, h := range producer.msgs[0].Headers {
		if h.Key == "traceparent" {
			got = string(h.Value)
		}
	}
	assert.Contains(t, got, "4bf92f3577b34da6a3ce929d0e0e4736")
}

func TestRelayTickLockError(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	relay := NewRelay(discard(), store, NewDispatcher(discard(), &fakeProducer{}, "t"), "r")

	assert.Equal(t, 0, relay.Tick(context.Background()))
	assert.Empty(t, store.sent)
}

func TestRelayRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	relay := NewRelay(discard(), &fakeStore{}, NewDispatcher(discard(), &fakeProducer{}, "t"), "r")

	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}
