// Package identityclient calls the identity service's internal API.
package identityclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/CameronXie/order-management/internal/apperror"
	"github.com/CameronXie/order-management/internal/requestid"
)

// APIKeyHeader carries the shared secret between services.
const APIKeyHeader = "X-Internal-API-Key"

const (
	userNotFoundMessage        = "user not found"
	upstreamUnavailableMessage = "identity service unavailable"
)

// Client looks identities up through GET /v1/internal/users/{id}.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// EnsureUserExists returns nil when the identity service answers 2xx for userID.
// Any other status is USER_NOT_FOUND; a transport failure is UPSTREAM_UNAVAILABLE. Calls are not retried.
func (c *Client) EnsureUserExists(ctx context.Context, userID string) error {
	endpoint := c.baseURL + "/v1/internal/users/" + url.PathEscape(userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("build identity request: %w", err)
	}

	req.Header.Set(APIKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.Header, id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "identity service request failed", "error", err, "user_id", userID)
		return apperror.Wrap(apperror.CodeUpstreamUnavailable, upstreamUnavailableMessage, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.InfoContext(ctx, "identity service rejected user lookup", "status", resp.StatusCode, "user_id", userID)
		return apperror.New(apperror.CodeUserNotFound, userNotFoundMessage)
	}

	return nil
}

// New returns a Client. A zero timeout leaves the transport defaults in place.
func New(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}
