package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/CameronXie/order-management/internal/api/rest"
	"github.com/CameronXie/order-management/internal/api/rest/handlers"
	"github.com/CameronXie/order-management/internal/api/rest/middlewares"
	"github.com/CameronXie/order-management/internal/clock"
	"github.com/CameronXie/order-management/internal/config"
	"github.com/CameronXie/order-management/internal/decisionmaker/engine"
	"github.com/CameronXie/order-management/internal/enforcer"
	"github.com/CameronXie/order-management/internal/events"
	"github.com/CameronXie/order-management/internal/identityclient"
	"github.com/CameronXie/order-management/internal/keyfetcher"
	"github.com/CameronXie/order-management/internal/logging"
	"github.com/CameronXie/order-management/internal/orders"
	"github.com/CameronXie/order-management/internal/repository/sqlstore"
	"github.com/CameronXie/order-management/internal/server"
	"github.com/CameronXie/order-management/internal/token"
	"github.com/CameronXie/order-management/internal/validation"
)

const serviceName = "orders"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.LoadOrders()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	publicKey := keyfetcher.MemoizePublicKey(keyfetcher.FromBase64Env(config.PublicKeyEnv))
	if _, err := publicKey.FetchPublicKey(); err != nil {
		return fmt.Errorf("load public key: %w", err)
	}

	db, err := sqlstore.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	logger.Info("initializing enforcer", "engine", cfg.Policy.Engine)
	decisionMaker, err := engine.New(ctx, cfg.Policy)
	if err != nil {
		return err
	}

	var publisher orders.Publisher = events.NewLogPublisher(logger)
	if cfg.EventsRedisAddr != "" {
		redisPublisher := events.NewRedisPublisher(cfg.EventsRedisAddr, cfg.EventsStream, logger)
		defer redisPublisher.Close()
		publisher = redisPublisher
	}

	c := clock.NewSystem()
	service := orders.NewService(
		sqlstore.NewOrderRepository(db),
		identityclient.New(cfg.IdentityServiceURL, cfg.InternalAPIKey, cfg.IdentityTimeout, logger),
		publisher,
		enforcer.NewEnforcer(decisionMaker, logger),
		c,
		logger,
	)

	router := rest.NewOrdersRouter(&rest.OrdersRouterConfig{
		Orders: handlers.NewOrderHandlers(service, validation.New(), logger),
		AuthenticationMiddleware: middlewares.NewJWTAuthenticationMiddleware(
			token.NewVerifier(publicKey, c, token.VerifierConfig{Issuer: cfg.Issuer, Audience: cfg.Audience}),
			logger,
		),
		Metrics: middlewares.NewMetricsMiddleware(serviceName),
		Logger:  logger,
	})

	return server.Run(ctx, server.New(cfg.Port, router), nil, logger)
}
