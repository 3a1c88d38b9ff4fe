package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/CameronXie/order-management/internal/api/rest/handlers"
	"github.com/CameronXie/order-management/internal/api/rest/middlewares"
	"github.com/CameronXie/order-management/internal/authn"
	"github.com/CameronXie/order-management/internal/clock"
	"github.com/CameronXie/order-management/internal/decisionmaker"
	"github.com/CameronXie/order-management/internal/enforcer"
	"github.com/CameronXie/order-management/internal/events"
	"github.com/CameronXie/order-management/internal/identity"
	"github.com/CameronXie/order-management/internal/identityclient"
	"github.com/CameronXie/order-management/internal/orders"
	"github.com/CameronXie/order-management/internal/repository/sqlstore"
	"github.com/CameronXie/order-management/internal/requestid"
	"github.com/CameronXie/order-management/internal/testutil"
	"github.com/CameronXie/order-management/internal/token"
	"github.com/CameronXie/order-management/internal/validation"
)

const internalAPIKey = "internal-secret"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type platform struct {
	identityURL string
	ordersURL   string
}

func openStore(t *testing.T, name string) *sqlstore.DB {
	t.Helper()

	db, err := sqlstore.Open(context.TODO(), sqlstore.DriverSQLite, filepath.Join(t.TempDir(), name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.TODO()))

	return db
}

func newPlatform(t *testing.T) *platform {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	keys := testutil.NewKeyPair(t)
	c := clock.NewSystem()
	verifier := token.NewVerifier(keys.PublicKey(), c, token.VerifierConfig{})
	e := enforcer.NewEnforcer(decisionmaker.NewStaticDecisionMaker(), logger)

	users := sqlstore.NewUserRepository(openStore(t, "identity.db"))
	hasher := authn.NewBcryptHasher(bcrypt.MinCost)
	authenticator, err := authn.NewAuthenticator(users, hasher)
	require.NoError(t, err)

	identityService := identity.NewService(
		users,
		hasher,
		authenticator,
		token.NewIssuer(keys.PrivateKey(), c, token.IssuerConfig{}),
		e,
		c,
		logger,
	)
	require.NoError(t, identityService.EnsureAdmin(context.TODO(), "admin@example.com", "admin-password", "Admin"))

	identityServer := httptest.NewServer(NewIdentityRouter(&IdentityRouterConfig{
		Users:                    handlers.NewUserHandlers(identityService, validation.New(), logger),
		AuthenticationMiddleware: middlewares.NewJWTAuthenticationMiddleware(verifier, logger),
		InternalAPIKeyMiddleware: middlewares.NewInternalAPIKeyMiddleware(internalAPIKey, logger),
		Metrics:                  middlewares.NewMetricsMiddleware("identity"),
		Logger:                   logger,
	}))
	t.Cleanup(identityServer.Close)

	ordersService := orders.NewService(
		sqlstore.NewOrderRepository(openStore(t, "orders.db")),
		identityclient.New(identityServer.URL, internalAPIKey, 5*time.Second, logger),
		events.NewLogPublisher(logger),
		e,
		c,
		logger,
	)

	ordersServer := httptest.NewServer(NewOrdersRouter(&OrdersRouterConfig{
		Orders:                   handlers.NewOrderHandlers(ordersService, validation.New(), logger),
		AuthenticationMiddleware: middlewares.NewJWTAuthenticationMiddleware(verifier, logger),
		Metrics:                  middlewares.NewMetricsMiddleware("orders"),
		Logger:                   logger,
	}))
	t.Cleanup(ordersServer.Close)

	return &platform{identityURL: identityServer.URL, ordersURL: ordersServer.URL}
}

func call(t *testing.T, method, url, bearer string, body any) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(context.TODO(), method, url, reader)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}

	return resp, env
}

func register(t *testing.T, p *platform, email string) string {
	t.Helper()

	resp, env := call(t, http.MethodPost, p.identityURL+"/v1/users/register", "", map[string]string{
		"email":    email,
		"password": "password123",
		"name":     "Someone",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var user struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &user))

	return user.ID
}

func login(t *testing.T, p *platform, email, password string) string {
	t.Helper()

	resp, env := call(t, http.MethodPost, p.identityURL+"/v1/users/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))

	return result.Token
}

func TestIdentityRouter_Scenarios(t *testing.T) {
	p := newPlatform(t)

	register(t, p, "alice@example.com")

	t.Run("duplicate register", func(t *testing.T) {
		resp, env := call(t, http.MethodPost, p.identityURL+"/v1/users/register", "", map[string]string{
			"email":    "alice@example.com",
			"password": "password456",
			"name":     "Alice",
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.False(t, env.Success)
		assert.Equal(t, "USER_EXISTS", env.Error.Code)
	})

	cases := map[string]struct {
		email    string
		password string
	}{
		"wrong password": {"alice@example.com", "wrong-password"},
		"unknown email":  {"nobody@example.com", "password123"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			resp, env := call(t, http.MethodPost, p.identityURL+"/v1/users/login", "", map[string]string{
				"email":    tc.email,
				"password": tc.password,
			})
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
		})
	}

	t.Run("profile and admin listing", func(t *testing.T) {
		aliceToken := login(t, p, "alice@example.com", "password123")

		resp, env := call(t, http.MethodGet, p.identityURL+"/v1/users/me", aliceToken, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(env.Data), `"email":"alice@example.com"`)
		assert.NotContains(t, string(env.Data), "password")

		resp, env = call(t, http.MethodGet, p.identityURL+"/v1/users", aliceToken, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "FORBIDDEN", env.Error.Code)

		adminToken := login(t, p, "admin@example.com", "admin-password")
		resp, env = call(t, http.MethodGet, p.identityURL+"/v1/users?role=user", adminToken, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(env.Data), `"total":1`)

		resp, env = call(t, http.MethodGet, p.identityURL+"/v1/users/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "AUTH_REQUIRED", env.Error.Code)
	})

	t.Run("internal lookup requires the service key", func(t *testing.T) {
		resp, env := call(t, http.MethodGet, p.identityURL+"/v1/internal/users/anything", "", nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "FORBIDDEN", env.Error.Code)
	})

	t.Run("unknown route and wrong method keep the envelope", func(t *testing.T) {
		resp, env := call(t, http.MethodGet, p.identityURL+"/v1/nothing-here", "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", env.Error.Code)

		resp, env = call(t, http.MethodPut, p.identityURL+"/v1/health", "", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", env.Error.Code)
	})

	t.Run("health and metrics", func(t *testing.T) {
		resp, env := call(t, http.MethodGet, p.identityURL+"/v1/health", "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))
		assert.NotEmpty(t, resp.Header.Get(requestid.Header))

		resp, _ = call(t, http.MethodGet, p.identityURL+"/metrics", "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestOrdersRouter_Scenarios(t *testing.T) {
	p := newPlatform(t)

	aliceID := register(t, p, "alice@example.com")
	register(t, p, "bob@example.com")

	aliceToken := login(t, p, "alice@example.com", "password123")
	bobToken := login(t, p, "bob@example.com", "password123")
	adminToken := login(t, p, "admin@example.com", "admin-password")

	resp, env := call(t, http.MethodPost, p.ordersURL+"/v1/orders", aliceToken, map[string]any{
		"userId":      aliceID,
		"totalAmount": 42.5,
		"metadata":    map[string]any{"note": "gift"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var order struct {
		ID     string `json:"id"`
		UserID string `json:"user_id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, "created", order.Status)
	assert.Equal(t, aliceID, order.UserID)

	orderURL := p.ordersURL + "/v1/orders/" + order.ID

	t.Run("only owner and admin can read", func(t *testing.T) {
		resp, env := call(t, http.MethodGet, orderURL, bobToken, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "FORBIDDEN", env.Error.Code)

		resp, _ = call(t, http.MethodGet, orderURL, adminToken, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = call(t, http.MethodGet, orderURL, aliceToken, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("create for unknown owner", func(t *testing.T) {
		resp, env := call(t, http.MethodPost, p.ordersURL+"/v1/orders", adminToken, map[string]any{
			"userId":      "44444444-4444-4444-4444-444444444444",
			"totalAmount": 10,
		})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "USER_NOT_FOUND", env.Error.Code)
	})

	t.Run("create for someone else", func(t *testing.T) {
		resp, env := call(t, http.MethodPost, p.ordersURL+"/v1/orders", bobToken, map[string]any{
			"userId":      aliceID,
			"totalAmount": 10,
		})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "FORBIDDEN", env.Error.Code)
	})

	t.Run("listing is scoped to the caller", func(t *testing.T) {
		resp, env := call(t, http.MethodGet, p.ordersURL+"/v1/orders?userId="+aliceID, bobToken, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(env.Data), `"total":0`)

		resp, env = call(t, http.MethodGet, p.ordersURL+"/v1/orders?userId="+aliceID, adminToken, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(env.Data), `"total":1`)

		resp, env = call(t, http.MethodGet, p.ordersURL+"/v1/orders?userId=not-a-uuid", bobToken, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(env.Data), `"total":0`)
	})

	t.Run("lifecycle", func(t *testing.T) {
		resp, env := call(t, http.MethodPatch, orderURL+"/status", aliceToken, map[string]string{"status": "completed"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "BAD_REQUEST", env.Error.Code)

		resp, env = call(t, http.MethodPatch, orderURL+"/status", aliceToken, map[string]string{"status": "processing"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(env.Data), `"status":"processing"`)

		resp, _ = call(t, http.MethodDelete, orderURL, bobToken, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp, env = call(t, http.MethodDelete, orderURL, aliceToken, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(env.Data), `"status":"cancelled"`)

		resp, env = call(t, http.MethodDelete, orderURL, aliceToken, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "BAD_REQUEST", env.Error.Code)
	})

	t.Run("missing order", func(t *testing.T) {
		resp, env := call(t, http.MethodGet, p.ordersURL+"/v1/orders/55555555-5555-5555-5555-555555555555", bobToken, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", env.Error.Code)
	})

	t.Run("orders require a token", func(t *testing.T) {
		resp, env := call(t, http.MethodGet, p.ordersURL+"/v1/orders", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "AUTH_REQUIRED", env.Error.Code)

		resp, env = call(t, http.MethodGet, p.ordersURL+"/v1/orders", "not-a-jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "TOKEN_INVALID", env.Error.Code)
	})
}
