package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/bookwish-storefront/internal/notification/application"
	"github.com/dmehra2102/bookwish-storefront/pkg/idempotency"
	"github.com/dmehra2102/bookwish-storefront/pkg/outbox"
	"github.com/dmehra2102/bookwish-storefront/pkg/tracing"
)

const handleAttempts = 3

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	log     *slog.Logger
	reader  Reader
	svc     *application.Service
	idem    *idempotency.Store
	tracer  trace.Tracer
	backoff time.Duration
}

func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
}

func NewConsumer(log *slog.Logger, reader Reader, svc *application.Service, idem *idempotency.Store) *Consumer {
	return &Consumer{
		log:     log,
		reader:  reader,
		svc:     svc,
		idem:    idem,
		tracer:  otel.Tracer("notification-consumer"),
		backoff: 500 * time.Millisecond,
	}
}

// Run consumes until ctx is cancelled. Each offset is handled at most once;
// a failed delivery is retried a few times, then dropped and logged.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if !c.process(ctx, msg) {
			return nil
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit failed", "offset", msg.Offset, "err", err)
		}
	}
}

// process reports false when shutdown interrupted the message; it is then left
// uncommitted and unmarked so the next run picks it up.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
	seen, err := c.idem.Seen(ctx, key)
	if err != nil {
		c.log.Error("idempotency check failed", "err", err)
	}
	if seen {
		c.log.Info("duplicate message skipped", "key", key)
		return true
	}

	eventType := tracing.HeaderValue(msg.Headers, outbox.EventTypeHeader)
	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "Consume"+eventType,
		trace.WithAttributes(attribute.String("aggregate_id", string(msg.Key))))
	defer span.End()

	for attempt := 1; ; attempt++ {
		err = c.svc.Handle(msgCtx, eventType, msg.Value)
		if err == nil {
			return true
		}
		if errors.Is(err, application.ErrMalformed) || attempt == handleAttempts || ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(c.backoff * time.Duration(attempt)):
		}
	}
	span.RecordError(err)
	if ctx.Err() != nil {
		if ferr := c.idem.Forget(context.WithoutCancel(ctx), key); ferr != nil {
			c.log.Error("idempotency forget failed", "key", key, "err", ferr)
		}
		return false
	}
	c.log.Error("notification dropped", "event_type", eventType, "key", key, "err", err)
	return true
}
