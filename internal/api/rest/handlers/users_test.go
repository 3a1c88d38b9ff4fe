package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/CameronXie/order-management/internal/apperror"
	"github.com/CameronXie/order-management/internal/domain"
	"github.com/CameronXie/order-management/internal/identity"
	"github.com/CameronXie/order-management/internal/token"
	"github.com/CameronXie/order-management/internal/validation"
)

var createdAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type mockIdentityService struct {
	mock.Mock
}

func (m *mockIdentityService) Register(_ context.Context, in identity.RegisterInput) (*domain.PublicUser, error) {
	args := m.Called(in)
	user, _ := args.Get(0).(*domain.PublicUser)
	return user, args.Error(1)
}

func (m *mockIdentityService) Login(_ context.Context, email, password string) (*identity.LoginResult, error) {
	args := m.Called(email, password)
	result, _ := args.Get(0).(*identity.LoginResult)
	return result, args.Error(1)
}

func (m *mockIdentityService) GetProfile(_ context.Context, id string) (*domain.PublicUser, error) {
	args := m.Called(id)
	user, _ := args.Get(0).(*domain.PublicUser)
	return user, args.Error(1)
}

func (m *mockIdentityService) GetUser(_ context.Context, id string) (*domain.PublicUser, error) {
	args := m.Called(id)
	user, _ := args.Get(0).(*domain.PublicUser)
	return user, args.Error(1)
}

func (m *mockIdentityService) UpdateProfile(
	_ context.Context,
	id string,
	in identity.UpdateProfileInput,
) (*domain.PublicUser, error) {
	args := m.Called(id, in)
	user, _ := args.Get(0).(*domain.PublicUser)
	return user, args.Error(1)
}

func (m *mockIdentityService) ListUsers(
	_ context.Context,
	claims *token.Claims,
	filter domain.UserFilter,
) (*domain.UserPage, error) {
	args := m.Called(claims, filter)
	page, _ := args.Get(0).(*domain.UserPage)
	return page, args.Error(1)
}

func withClaims(r *http.Request, id string, role domain.Role) *http.Request {
	claims := &token.Claims{Role: role, RegisteredClaims: jwt.RegisteredClaims{Subject: id}}
	return r.WithContext(token.NewContext(r.Context(), claims))
}

func alice() *domain.PublicUser {
	return &domain.PublicUser{
		ID:        "11111111-1111-1111-1111-111111111111",
		Email:     "alice@example.com",
		Name:      "Alice",
		Role:      domain.RoleUser,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestUserHandlers_Register(t *testing.T) {
	cases := map[string]struct {
		requestBody     string
		mockResult      *domain.PublicUser
		mockError       error
		expectCall      bool
		expectedStatus  int
		expectedMessage string
	}{
		"Should Return 201 and Profile on Success": {
			requestBody:    `{"email":"alice@example.com","password":"password123","name":"Alice"}`,
			mockResult:     alice(),
			expectCall:     true,
			expectedStatus: http.StatusCreated,
		},
		"Should Return 400 on Invalid Request Body": {
			requestBody:     "invalid",
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: invalidRequestBodyMessage,
		},
		"Should Return 400 on Validation Failure": {
			requestBody:     `{"email":"not-an-email","password":"short","name":"A"}`,
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "email must be a valid email address; name must be at least 2 characters long; password must be at least 8 characters long",
		},
		"Should Return 409 on Duplicate Email": {
			requestBody:     `{"email":"alice@example.com","password":"password123","name":"Alice"}`,
			mockError:       apperror.New(apperror.CodeUserExists, "a user with this email already exists"),
			expectCall:      true,
			expectedStatus:  http.StatusConflict,
			expectedMessage: "a user with this email already exists",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			service := new(mockIdentityService)
			if tc.expectCall {
				service.On("Register", identity.RegisterInput{
					Email:    "alice@example.com",
					Password: "password123",
					Name:     "Alice",
				}).Return(tc.mockResult, tc.mockError)
			}

			h := NewUserHandlers(service, validation.New(), slog.New(slog.NewJSONHandler(io.Discard, nil)))
			w := httptest.NewRecorder()
			h.Register(w, httptest.NewRequest(http.MethodPost, "/v1/users/register", bytes.NewBufferString(tc.requestBody)))

			assert.Equal(t, tc.expectedStatus, w.Code)
			if tc.expectedMessage != "" {
				assert.Contains(t, w.Body.String(), fmt.Sprintf(`"message":%q`, tc.expectedMessage))
			} else {
				assert.Contains(t, w.Body.String(), `"success":true`)
				assert.NotContains(t, w.Body.String(), "password")
			}
			service.AssertExpectations(t)
		})
	}
}

func TestUserHandlers_Login(t *testing.T) {
	cases := map[string]struct {
		requestBody    string
		mockResult     *identity.LoginResult
		mockError      error
		expectCall     bool
		expectedStatus int
		expectedBody   string
		expectedLog    map[string]string
	}{
		"Should Return 200 and Token on Successful Authentication": {
			requestBody:    `{"email":"alice@example.com","password":"password123"}`,
			mockResult:     &identity.LoginResult{Token: "signed", User: *alice()},
			expectCall:     true,
			expectedStatus: http.StatusOK,
			expectedBody:   `"token":"signed"`,
		},
		"Should Return 401 on Authentication Failure": {
			requestBody:    `{"email":"alice@example.com","password":"password123"}`,
			mockError:      apperror.New(apperror.CodeInvalidCredentials, "invalid email or password"),
			expectCall:     true,
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"success":false,"error":{"code":"INVALID_CREDENTIALS","message":"invalid email or password"}}`,
			expectedLog: map[string]string{
				"level": "INFO",
				"msg":   "failed to authenticate user",
			},
		},
		"Should Return 400 on Short Password": {
			requestBody:    `{"email":"alice@example.com","password":"short"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"code":"BAD_REQUEST"`,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			service := new(mockIdentityService)
			if tc.expectCall {
				service.On("Login", "alice@example.com", "password123").Return(tc.mockResult, tc.mockError)
			}

			h := NewUserHandlers(service, validation.New(), slog.New(slog.NewJSONHandler(&buf, nil)))
			w := httptest.NewRecorder()
			h.Login(w, httptest.NewRequest(http.MethodPost, "/v1/users/login", bytes.NewBufferString(tc.requestBody)))

			assert.Equal(t, tc.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tc.expectedBody)

			log := buf.String()
			for k, v := range tc.expectedLog {
				assert.Contains(t, log, fmt.Sprintf("%q:%q", k, v))
			}
			service.AssertExpectations(t)
		})
	}
}

func TestUserHandlers_Profile(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	t.Run("requires claims", func(t *testing.T) {
		h := NewUserHandlers(new(mockIdentityService), validation.New(), logger)
		w := httptest.NewRecorder()
		h.GetProfile(w, httptest.NewRequest(http.MethodGet, "/v1/users/me", http.NoBody))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), `"code":"AUTH_REQUIRED"`)
	})

	t.Run("returns own profile", func(t *testing.T) {
		service := new(mockIdentityService)
		service.On("GetProfile", alice().ID).Return(alice(), nil)

		h := NewUserHandlers(service, validation.New(), logger)
		w := httptest.NewRecorder()
		h.GetProfile(w, withClaims(httptest.NewRequest(http.MethodGet, "/v1/users/me", http.NoBody), alice().ID, domain.RoleUser))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"email":"alice@example.com"`)
		service.AssertExpectations(t)
	})

	t.Run("updates only provided fields", func(t *testing.T) {
		name := "Alicia"
		service := new(mockIdentityService)
		service.On("UpdateProfile", alice().ID, identity.UpdateProfileInput{Name: &name}).Return(alice(), nil)

		h := NewUserHandlers(service, validation.New(), logger)
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPatch, "/v1/users/me", bytes.NewBufferString(`{"name":"Alicia"}`))
		h.UpdateProfile(w, withClaims(r, alice().ID, domain.RoleUser))

		assert.Equal(t, http.StatusOK, w.Code)
		service.AssertExpectations(t)
	})

	t.Run("rejects short password", func(t *testing.T) {
		h := NewUserHandlers(new(mockIdentityService), validation.New(), logger)
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPatch, "/v1/users/me", bytes.NewBufferString(`{"password":"short"}`))
		h.UpdateProfile(w, withClaims(r, alice().ID, domain.RoleUser))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "password must be at least 8 characters long")
	})
}

func TestUserHandlers_ListUsers(t *testing.T) {
	ten, five := 10, 5

	cases := map[string]struct {
		query           string
		expectedFilter  *domain.UserFilter
		expectedStatus  int
		expectedMessage string
	}{
		"Defaults": {
			expectedFilter: &domain.UserFilter{},
			expectedStatus: http.StatusOK,
		},
		"AllFilters": {
			query:          "?limit=10&offset=5&role=admin&search=ali",
			expectedFilter: &domain.UserFilter{Role: domain.RoleAdmin, Search: "ali", Limit: ten, Offset: five},
			expectedStatus: http.StatusOK,
		},
		"NonNumericLimit": {
			query:           "?limit=ten",
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "limit must be an integer",
		},
		"ZeroLimit": {
			query:           "?limit=0",
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "limit must be at least 1",
		},
		"LimitTooLarge": {
			query:           "?limit=101",
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "limit must be at most 100",
		},
		"UnknownRole": {
			query:           "?role=root",
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "role must be one of [user admin]",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			service := new(mockIdentityService)
			if tc.expectedFilter != nil {
				service.On("ListUsers", mock.Anything, *tc.expectedFilter).
					Return(&domain.UserPage{Total: 1, Items: []domain.PublicUser{*alice()}}, nil)
			}

			h := NewUserHandlers(service, validation.New(), slog.New(slog.NewJSONHandler(io.Discard, nil)))
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/v1/users"+tc.query, http.NoBody)
			h.ListUsers(w, withClaims(r, "admin-id", domain.RoleAdmin))

			assert.Equal(t, tc.expectedStatus, w.Code)
			if tc.expectedMessage != "" {
				assert.Contains(t, w.Body.String(), fmt.Sprintf(`"message":%q`, tc.expectedMessage))
			} else {
				assert.Contains(t, w.Body.String(), `"total":1`)
			}
			service.AssertExpectations(t)
		})
	}
}

func TestUserHandlers_GetInternalUser(t *testing.T) {
	service := new(mockIdentityService)
	service.On("GetUser", alice().ID).Return(alice(), nil)
	service.On("GetUser", "missing").Return(nil, apperror.New(apperror.CodeNotFound, "user not found"))

	h := NewUserHandlers(service, validation.New(), slog.New(slog.NewJSONHandler(io.Discard, nil)))
	router := chi.NewRouter()
	router.Get("/v1/internal/users/{id}", h.GetInternalUser)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/internal/users/"+alice().ID, http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), alice().ID)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/internal/users/missing", http.NoBody))
	assert.Equal(t, http.StatusNotFound, w.Code)
	service.AssertExpectations(t)
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	Health(w, httptest.NewRequest(http.MethodGet, "/v1/health", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"success":true,"data":{"status":"ok"}}`+"\n", w.Body.String())
}
