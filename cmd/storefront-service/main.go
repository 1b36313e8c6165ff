package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/bookwish-storefront/db"
	adminapp "github.com/dmehra2102/bookwish-storefront/internal/admin/application"
	adminhttp "github.com/dmehra2102/bookwish-storefront/internal/admin/infrastructure/http"
	adminpg "github.com/dmehra2102/bookwish-storefront/internal/admin/infrastructure/postgres"
	gcapp "github.com/dmehra2102/bookwish-storefront/internal/giftcard/application"
	gchttp "github.com/dmehra2102/bookwish-storefront/internal/giftcard/infrastructure/http"
	gcpg "github.com/dmehra2102/bookwish-storefront/internal/giftcard/infrastructure/postgres"
	orderapp "github.com/dmehra2102/bookwish-storefront/internal/order/application"
	ordercatalog "github.com/dmehra2102/bookwish-storefront/internal/order/infrastructure/catalog"
	orderhttp "github.com/dmehra2102/bookwish-storefront/internal/order/infrastructure/http"
	orderkafka "github.com/dmehra2102/bookwish-storefront/internal/order/infrastructure/kafka"
	orderpg "github.com/dmehra2102/bookwish-storefront/internal/order/infrastructure/postgres"
	payapp "github.com/dmehra2102/bookwish-storefront/internal/payment/application"
	paystripe "github.com/dmehra2102/bookwish-storefront/internal/payment/infrastructure/stripe"
	wlapp "github.com/dmehra2102/bookwish-storefront/internal/wishlist/application"
	wlhttp "github.com/dmehra2102/bookwish-storefront/internal/wishlist/infrastructure/http"
	wlpg "github.com/dmehra2102/bookwish-storefront/internal/wishlist/infrastructure/postgres"
	"github.com/dmehra2102/bookwish-storefront/pkg/auth"
	"github.com/dmehra2102/bookwish-storefront/pkg/config"
	"github.com/dmehra2102/bookwish-storefront/pkg/grpcserver"
	"github.com/dmehra2102/bookwish-storefront/pkg/idempotency"
	"github.com/dmehra2102/bookwish-storefront/pkg/logging"
	"github.com/dmehra2102/bookwish-storefront/pkg/outbox"
	"github.com/dmehra2102/bookwish-storefront/pkg/ratelimit"
	"github.com/dmehra2102/bookwish-storefront/pkg/shutdown"
	"github.com/dmehra2102/bookwish-storefront/pkg/tracing"
)

const serviceName = "storefront-service"

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

	// Postgres Setup
	pool, err := pgxpool.New(ctx, cfg.PGURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		log.Error("migration failed", "err", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	idem := idempotency.NewStore(rdb, cfg.IdempotencyTTL)

	principals, err := auth.ParsePrincipals(cfg.AdminCredentials)
	if err != nil {
		log.Error("admin credentials invalid", "err", err)
		os.Exit(1)
	}
	authn, err := auth.NewAuthenticator(principals, cfg.AdminTokenSecret, cfg.AdminTokenTTL)
	if err != nil {
		log.Error("admin auth init failed", "err", err)
		os.Exit(1)
	}

	// Outbox relay
	writer := orderkafka.NewWriter(cfg.KafkaBrokers)
	dispatch := outbox.NewDispatcher(log, writer, cfg.OrderEventsTopic)
	relay := outbox.NewRelay(log, outbox.NewPGStore(log, pool), dispatch, serviceName+"-relay")

	// Payments stay off without a Stripe key; gift-card-only orders still work.
	var processor payapp.Processor
	if cfg.StripeSecretKey != "" {
		processor = paystripe.NewProcessor(log, cfg.StripeSecretKey, nil)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, card payments disabled")
	}
	payments := payapp.NewService(log, processor)

	wishlists := wlapp.NewService(log, wlpg.NewRepository(log, pool))
	giftCards := gcapp.NewService(gcpg.NewRepository(log, pool))
	orders := orderapp.NewService(log, orderpg.NewRepository(log, pool), ordercatalog.NewWishlist(wishlists), giftCards, payments)
	admin := adminapp.NewService(log, authn, adminpg.NewStatsRepository(log, pool), orders)

	wlHandler := wlhttp.NewHandler(log, wishlists)
	checkLimiter := ratelimit.New(cfg.GiftCardCheckRPS, cfg.GiftCardCheckBurst)
	go checkLimiter.Run(ctx)
	gcHandler := gchttp.NewHandler(log, giftCards, checkLimiter)
	orderHandler := orderhttp.NewHandler(log, orders, idem)
	adminHandler := adminhttp.NewHandler(log, admin)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(tracing.Middleware(serviceName))

	r.Mount("/lists", wlHandler.Routes())
	r.Mount("/gift-cards", gcHandler.Routes())
	r.Mount("/cart", orderHandler.CartRoutes())
	r.Mount("/orders", orderHandler.Routes())
	r.Route("/admin", func(r chi.Router) {
		r.Mount("/login", adminHandler.LoginRoutes())
		r.Group(func(r chi.Router) {
			r.Use(authn.RequireAdmin(log))
			r.Mount("/orders", orderHandler.AdminRoutes())
			r.Mount("/gift-cards", gcHandler.AdminRoutes())
			r.Mount("/stats", adminHandler.StatsRoutes())
		})
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	health, err := grpcserver.Run(cfg.GRPCAddr, serviceName)
	if err != nil {
		log.Error("grpc health listen failed", "err", err)
		os.Exit(1)
	}

	// Run relay
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped with error", "err", err)
		}
	}()

	// Run HTTP
	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()
	health.SetServing(serviceName)

	<-ctx.Done()

	err = shutdown.Drain(15*time.Second,
		func(ctx context.Context) error {
			health.Stop()
			return nil
		},
		srv.Shutdown,
		func(ctx context.Context) error {
			select {
			case <-relayDone:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
		func(ctx context.Context) error { return writer.Close() },
		tp.Shutdown,
	)
	if err != nil {
		log.Error("shutdown incomplete", "err", err)
	}
	log.Info("storefront-service shutdown complete")
}
