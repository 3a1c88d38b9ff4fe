// Package handlers translates HTTP requests into service calls and renders the results.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/CameronXie/order-management/internal/api/rest/response"
	"github.com/CameronXie/order-management/internal/apperror"
	"github.com/CameronXie/order-management/internal/token"
)

const (
	maxBodyBytes = 1 << 20

	invalidRequestBodyMessage = "invalid request body"
	authRequiredMessage       = "authentication required"
)

// Validator checks decoded request payloads.
type Validator interface {
	Validate(i any) error
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return apperror.Wrap(apperror.CodeBadRequest, invalidRequestBodyMessage, err)
	}

	return nil
}

func claimsFrom(r *http.Request) (*token.Claims, error) {
	claims, ok := token.ClaimsFromContext(r.Context())
	if !ok {
		return nil, apperror.AuthRequired(authRequiredMessage)
	}

	return claims, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(q url.Values, name string) (*int, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeBadRequest, fmt.Sprintf("%s must be an integer", name), err)
	}

	return &v, nil
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// Health reports that the service is serving.
func Health(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, http.StatusOK, map[string]string{"status": "ok"})
}
