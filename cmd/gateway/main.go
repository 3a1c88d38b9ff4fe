package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/CameronXie/order-management/internal/api/rest/middlewares"
	"github.com/CameronXie/order-management/internal/clock"
	"github.com/CameronXie/order-management/internal/config"
	"github.com/CameronXie/order-management/internal/gateway"
	"github.com/CameronXie/order-management/internal/keyfetcher"
	"github.com/CameronXie/order-management/internal/logging"
	"github.com/CameronXie/order-management/internal/server"
	"github.com/CameronXie/order-management/internal/token"
)

const serviceName = "gateway"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.LoadGateway()
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

	c := clock.NewSystem()
	handler, err := gateway.New(&gateway.Config{
		UsersServiceURL:  cfg.UsersServiceURL,
		OrdersServiceURL: cfg.OrdersServiceURL,
		AuthenticationMiddleware: middlewares.NewJWTAuthenticationMiddleware(
			token.NewVerifier(publicKey, c, token.VerifierConfig{Issuer: cfg.Issuer, Audience: cfg.Audience}),
			logger,
		),
		RateLimitMiddleware: middlewares.NewRateLimitMiddleware(cfg.RateLimitWindow, cfg.RateLimitMax, c, logger),
		Metrics:             middlewares.NewMetricsMiddleware(serviceName),
		Logger:              logger,
	})
	if err != nil {
		return err
	}

	return server.Run(ctx, server.New(cfg.Port, handler), nil, logger)
}
