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
	"github.com/CameronXie/order-management/internal/authn"
	"github.com/CameronXie/order-management/internal/clock"
	"github.com/CameronXie/order-management/internal/config"
	"github.com/CameronXie/order-management/internal/decisionmaker/engine"
	"github.com/CameronXie/order-management/internal/enforcer"
	"github.com/CameronXie/order-management/internal/identity"
	"github.com/CameronXie/order-management/internal/keyfetcher"
	"github.com/CameronXie/order-management/internal/logging"
	"github.com/CameronXie/order-management/internal/repository/sqlstore"
	"github.com/CameronXie/order-management/internal/server"
	"github.com/CameronXie/order-management/internal/token"
	"github.com/CameronXie/order-management/internal/validation"
)

const serviceName = "identity"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.LoadIdentity()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	privateKey := keyfetcher.MemoizePrivateKey(keyfetcher.FromBase64Env(config.PrivateKeyEnv))
	publicKey := keyfetcher.MemoizePublicKey(keyfetcher.FromBase64Env(config.PublicKeyEnv))
	if _, err := privateKey.FetchPrivateKey(); err != nil {
		return fmt.Errorf("load private key: %w", err)
	}
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

	c := clock.NewSystem()
	users := sqlstore.NewUserRepository(db)
	hasher := authn.NewBcryptHasher(cfg.BcryptCost)
	authenticator, err := authn.NewAuthenticator(users, hasher)
	if err != nil {
		return err
	}

	service := identity.NewService(
		users,
		hasher,
		authenticator,
		token.NewIssuer(privateKey, c, token.IssuerConfig{
			TTL:      cfg.TokenTTL,
			Issuer:   cfg.Issuer,
			Audience: cfg.Audience,
		}),
		enforcer.NewEnforcer(decisionMaker, logger),
		c,
		logger,
	)

	if cfg.AdminEmail != "" {
		if err := service.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
			return err
		}
	}

	router := rest.NewIdentityRouter(&rest.IdentityRouterConfig{
		Users: handlers.NewUserHandlers(service, validation.New(), logger),
		AuthenticationMiddleware: middlewares.NewJWTAuthenticationMiddleware(
			token.NewVerifier(publicKey, c, token.VerifierConfig{Issuer: cfg.Issuer, Audience: cfg.Audience}),
			logger,
		),
		InternalAPIKeyMiddleware: middlewares.NewInternalAPIKeyMiddleware(cfg.InternalAPIKey, logger),
		Metrics:                  middlewares.NewMetricsMiddleware(serviceName),
		Logger:                   logger,
	})

	return server.Run(ctx, server.New(cfg.Port, router), nil, logger)
}
