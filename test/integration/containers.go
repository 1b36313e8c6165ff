// Package integration runs the storefront against real Postgres and Kafka containers.
package integration

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dmehra2102/bookwish-storefront/db"
)

type Env struct {
	PG    *postgres.PostgresContainer
	Kafka *kafka.KafkaContainer
	Pool  *pgxpool.Pool
	PGURL string
	KAddr []string
}

func Setup(ctx context.Context) (*Env, error) {
	startCtx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	pgC, err := postgres.Run(startCtx,
		"postgres:16-alpine",
		postgres.WithDatabase("bookwish"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		return nil, err
	}
	env := &Env{PG: pgC}

	env.PGURL, err = pgC.ConnectionString(startCtx, "sslmode=disable")
	if err != nil {
		env.Teardown(ctx)
		return nil, err
	}
	env.Pool, err = pgxpool.New(ctx, env.PGURL)
	if err != nil {
		env.Teardown(ctx)
		return nil, err
	}
	if err := db.Migrate(startCtx, env.Pool); err != nil {
		env.Teardown(ctx)
		return nil, err
	}

	env.Kafka, err = kafka.Run(startCtx,
		"confluentinc/confluent-local:7.5.0",
		kafka.WithClusterID("bookwish-test"),
	)
	if err != nil {
		env.Teardown(ctx)
		return nil, err
	}
	env.KAddr, err = env.Kafka.Brokers(startCtx)
	if err != nil {
		env.Teardown(ctx)
		return nil, err
	}
	return env, nil
}

func (e *Env) Teardown(ctx context.Context) {
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.Kafka != nil {
		_ = e.Kafka.Terminate(ctx)
	}
	if e.PG != nil {
		_ = e.PG.Terminate(ctx)
	}
}
