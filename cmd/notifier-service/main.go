package main

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/bookwish-storefront/internal/notification/application"
	notifykafka "github.com/dmehra2102/bookwish-storefront/internal/notification/infrastructure/kafka"
	"github.com/dmehra2102/bookwish-storefront/internal/notification/infrastructure/sendgrid"
	"github.com/dmehra2102/bookwish-storefront/pkg/config"
	"github.com/dmehra2102/bookwish-storefront/pkg/grpcserver"
	"github.com/dmehra2102/bookwish-storefront/pkg/idempotency"
	"github.com/dmehra2102/bookwish-storefront/pkg/logging"
	"github.com/dmehra2102/bookwish-storefront/pkg/shutdown"
	"github.com/dmehra2102/bookwish-storefront/pkg/tracing"
)

const serviceName = "notifier-service"

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, serviceName, cfg.OTelEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}

	mailer, err := sendgrid.NewMailer(log, cfg.SendGridAPIKey, sendgrid.DefaultHost, cfg.MailFrom)
	if err != nil {
		log.Error("mailer init failed", "err", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	// Offsets are remembered for a day so a rebalance never re-sends mail.
	idem := idempotency.NewStore(rdb, 24*time.Hour)

	svc := application.NewService(log, mailer)
	reader := notifykafka.NewReader(cfg.KafkaBrokers, cfg.OrderEventsTopic, serviceName)
	consumer := notifykafka.NewConsumer(log, reader, svc, idem)

	health, err := grpcserver.Run(cfg.GRPCAddr, serviceName)
	if err != nil {
		log.Error("grpc health listen failed", "err", err)
		os.Exit(1)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Run(ctx); err != nil {
			log.Error("consumer stopped", "err", err)
			cancel()
		}
	}()
	health.SetServing(serviceName)
	log.Info("notifier consuming", "topic", cfg.OrderEventsTopic)

	<-ctx.Done()

	err = shutdown.Drain(10*time.Second,
		func(ctx context.Context) error {
			health.Stop()
			return nil
		},
		func(ctx context.Context) error {
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
		tp.Shutdown,
	)
	if err != nil {
		log.Error("shutdown incomplete", "err", err)
	}
	log.Info("notifier-service shutdown complete")
}
