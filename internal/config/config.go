// Package config loads service configuration from the environment.
// A .env file in the working directory is loaded first; variables already set win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/CameronXie/order-management/internal/decisionmaker/engine"
)

const (
	PrivateKeyEnv = "JWT_PRIVATE_KEY_BASE64"
	PublicKeyEnv  = "JWT_PUBLIC_KEY_BASE64"
)

// Server holds the listener settings shared by every service.
type Server struct {
	Port     int
	LogLevel slog.Level
}

// Database locates the service's SQL store.
type Database struct {
	Driver string
	DSN    string
}

// Token holds the optional issuer and audience bound into identity tokens.
type Token struct {
	Issuer   string
	Audience string
}

type Identity struct {
	Server
	Database
	Token
	Policy         engine.Config
	TokenTTL       time.Duration
	InternalAPIKey string
	AdminEmail     string
	AdminPassword  string
	AdminName      string
	BcryptCost     int
}

type Orders struct {
	Server
	Database
	Token
	Policy             engine.Config
	InternalAPIKey     string
	IdentityServiceURL string
	IdentityTimeout    time.Duration
	EventsRedisAddr    string
	EventsStream       string
}

type Gateway struct {
	Server
	Token
	UsersServiceURL  string
	OrdersServiceURL string
	RateLimitWindow  time.Duration
	RateLimitMax     int
}

// LoadIdentity reads the identity service configuration.
func LoadIdentity() (*Identity, error) {
	l, err := newLoader()
	if err != nil {
		return nil, err
	}

	cfg := &Identity{
		Server:         l.server(4001),
		Database:       l.database(),
		Token:          l.token(),
		Policy:         l.policy(),
		TokenTTL:       l.duration("JWT_EXPIRES_IN", time.Hour),
		InternalAPIKey: l.required("INTERNAL_API_KEY"),
		AdminEmail:     os.Getenv("ADMIN_EMAIL"),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
		AdminName:      getEnvOrDefault("ADMIN_NAME", "Administrator"),
		BcryptCost:     l.int("BCRYPT_COST", 10),
	}

	l.required(PrivateKeyEnv)
	l.required(PublicKeyEnv)

	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		l.errs = append(l.errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}

	if err := l.err(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrders reads the order service configuration.
func LoadOrders() (*Orders, error) {
	l, err := newLoader()
	if err != nil {
		return nil, err
	}

	cfg := &Orders{
		Server:             l.server(4002),
		Database:           l.database(),
		Token:              l.token(),
		Policy:             l.policy(),
		InternalAPIKey:     l.required("INTERNAL_API_KEY"),
		IdentityServiceURL: l.required("IDENTITY_SERVICE_URL"),
		IdentityTimeout:    l.duration("IDENTITY_CLIENT_TIMEOUT", 0),
		EventsRedisAddr:    os.Getenv("EVENTS_REDIS_ADDR"),
		EventsStream:       getEnvOrDefault("EVENTS_STREAM", "orders.events"),
	}

	l.required(PublicKeyEnv)

	if err := l.err(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadGateway reads the gateway configuration.
func LoadGateway() (*Gateway, error) {
	l, err := newLoader()
	if err != nil {
		return nil, err
	}

	cfg := &Gateway{
		Server:           l.server(8080),
		Token:            l.token(),
		UsersServiceURL:  l.required("USERS_SERVICE_URL"),
		OrdersServiceURL: l.required("ORDERS_SERVICE_URL"),
		RateLimitWindow:  l.duration("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitMax:     l.int("RATE_LIMIT_MAX", 100),
	}

	l.required(PublicKeyEnv)

	if cfg.RateLimitWindow <= 0 || cfg.RateLimitMax <= 0 {
		l.errs = append(l.errs, errors.New("RATE_LIMIT_WINDOW and RATE_LIMIT_MAX must be positive"))
	}

	if err := l.err(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loader collects every problem so that start-up reports them together.
type loader struct {
	errs []error
}

func newLoader() (*loader, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	return &loader{}, nil
}

func (l *loader) err() error {
	if len(l.errs) == 0 {
		return nil
	}

	return fmt.Errorf("invalid configuration: %w", errors.Join(l.errs...))
}

func (l *loader) required(key string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		l.errs = append(l.errs, fmt.Errorf("%s is required", key))
	}

	return value
}

func (l *loader) int(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}

	return value
}

func (l *loader) duration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}

	return value
}

func (l *loader) server(defaultPort int) Server {
	port := l.int("PORT", defaultPort)
	if port < 1 || port > 65535 {
		l.errs = append(l.errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", port))
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnvOrDefault("LOG_LEVEL", "info"))); err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid LOG_LEVEL: %w", err))
	}

	return Server{Port: port, LogLevel: level}
}

func (l *loader) database() Database {
	return Database{
		Driver: getEnvOrDefault("DB_DRIVER", "sqlite3"),
		DSN:    l.required("DATABASE_URL"),
	}
}

func (l *loader) token() Token {
	return Token{
		Issuer:   os.Getenv("JWT_ISSUER"),
		Audience: os.Getenv("JWT_AUDIENCE"),
	}
}

func (l *loader) policy() engine.Config {
	cfg := engine.Config{
		Engine:       getEnvOrDefault("POLICY_ENGINE", engine.Static),
		RegoFile:     os.Getenv("POLICY_REGO_FILE"),
		CasbinDriver: getEnvOrDefault("CASBIN_DB_DRIVER", "sqlite3"),
		CasbinDSN:    os.Getenv("CASBIN_DSN"),
	}

	switch cfg.Engine {
	case engine.Static, engine.OPA:
	case engine.Casbin:
		if cfg.CasbinDSN == "" {
			l.errs = append(l.errs, errors.New("CASBIN_DSN is required when POLICY_ENGINE is casbin"))
		}
	default:
		l.errs = append(l.errs, fmt.Errorf("POLICY_ENGINE must be one of static, opa, casbin, got %q", cfg.Engine))
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
