package identityclient

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/CameronXie/order-management/internal/apperror"
	"github.com/CameronXie/order-management/internal/requestid"
)

func TestClient_EnsureUserExists(t *testing.T) {
	cases := map[string]struct {
		status       int
		expectedCode apperror.Code
	}{
		"exists":       {status: http.StatusOK},
		"not found":    {status: http.StatusNotFound, expectedCode: apperror.CodeUserNotFound},
		"forbidden":    {status: http.StatusForbidden, expectedCode: apperror.CodeUserNotFound},
		"server error": {status: http.StatusInternalServerError, expectedCode: apperror.CodeUserNotFound},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var got *http.Request
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r
				w.WriteHeader(tc.status)
			}))
			defer server.Close()

			client := New(server.URL+"/", "secret", time.Second, slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)))
			err := client.EnsureUserExists(requestid.NewContext(context.TODO(), "req-1"), "u-1")

			if tc.expectedCode == "" {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tc.expectedCode, apperror.CodeOf(err))
			}

			assert.Equal(t, "/v1/internal/users/u-1", got.URL.Path)
			assert.Equal(t, "secret", got.Header.Get(APIKeyHeader))
			assert.Equal(t, "req-1", got.Header.Get(requestid.Header))
		})
	}
}

func TestClient_EnsureUserExists_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client := New(server.URL, "secret", time.Second, slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)))
	err := client.EnsureUserExists(context.TODO(), "u-1")

	assert.Equal(t, apperror.CodeUpstreamUnavailable, apperror.CodeOf(err))
	assert.Equal(t, http.StatusBadGateway, apperror.CodeOf(err).Status())
}

func TestClient_EnsureUserExists_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := New(server.URL, "secret", 50*time.Millisecond, slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)))
	err := client.EnsureUserExists(context.TODO(), "u-1")

	assert.Equal(t, apperror.CodeUpstreamUnavailable, apperror.CodeOf(err))
}
