package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/CameronXie/order-management/internal/api/rest/response"
	"github.com/CameronXie/order-management/internal/domain"
	"github.com/CameronXie/order-management/internal/identity"
	"github.com/CameronXie/order-management/internal/token"
)

// IdentityService is the identity behaviour the user handlers depend on.
type IdentityService interface {
	Register(ctx context.Context, in identity.RegisterInput) (*domain.PublicUser, error)
	Login(ctx context.Context, email, password string) (*identity.LoginResult, error)
	GetProfile(ctx context.Context, id string) (*domain.PublicUser, error)
	GetUser(ctx context.Context, id string) (*domain.PublicUser, error)
	UpdateProfile(ctx context.Context, id string, in identity.UpdateProfileInput) (*domain.PublicUser, error)
	ListUsers(ctx context.Context, claims *token.Claims, filter domain.UserFilter) (*domain.UserPage, error)
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,min=2"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type UpdateProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2"`
	Password *string `json:"password" validate:"omitempty,min=8"`
}

type ListUsersQuery struct {
	Limit  *int   `query:"limit" validate:"omitnil,min=1,max=100"`
	Offset *int   `query:"offset" validate:"omitnil,min=0"`
	Role   string `query:"role" validate:"omitempty,oneof=user admin"`
	Search string `query:"search" validate:"omitempty,max=100"`
}

// UserHandlers serves the identity routes.
type UserHandlers struct {
	service   IdentityService
	validator Validator
	logger    *slog.Logger
}

// Register creates an identity with the user role.
func (h *UserHandlers) Register(w http.ResponseWriter, r *http.Request) {
	req := new(RegisterRequest)
	if err := h.decode(w, r, req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	user, err := h.service.Register(r.Context(), identity.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.Success(w, http.StatusCreated, user)
}

// Login authenticates the credentials and returns a signed token with the public profile.
func (h *UserHandlers) Login(w http.ResponseWriter, r *http.Request) {
	req := new(LoginRequest)
	if err := h.decode(w, r, req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.InfoContext(r.Context(), "failed to authenticate user", "error", err)
		response.Error(w, r, h.logger, err)
		return
	}

	response.Success(w, http.StatusOK, result)
}

func (h *UserHandlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFrom(r)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	user, err := h.service.GetProfile(r.Context(), claims.Subject)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.Success(w, http.StatusOK, user)
}

func (h *UserHandlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFrom(r)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	req := new(UpdateProfileRequest)
	if err := h.decode(w, r, req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), claims.Subject, identity.UpdateProfileInput{
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.Success(w, http.StatusOK, user)
}

// ListUsers serves the admin listing.
func (h *UserHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFrom(r)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	q := r.URL.Query()
	query := ListUsersQuery{Role: q.Get("role"), Search: q.Get("search")}
	if query.Limit, err = queryInt(q, "limit"); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	if query.Offset, err = queryInt(q, "offset"); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	if err := h.validator.Validate(query); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	page, err := h.service.ListUsers(r.Context(), claims, domain.UserFilter{
		Role:   domain.Role(query.Role),
		Search: query.Search,
		Limit:  deref(query.Limit),
		Offset: deref(query.Offset),
	})
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.Success(w, http.StatusOK, page)
}

// GetInternalUser backs the service-to-service existence check.
func (h *UserHandlers) GetInternalUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.Success(w, http.StatusOK, user)
}

func (h *UserHandlers) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := decodeJSON(w, r, dst); err != nil {
		return err
	}

	return h.validator.Validate(dst)
}

func NewUserHandlers(service IdentityService, validator Validator, logger *slog.Logger) *UserHandlers {
	return &UserHandlers{
		service:   service,
		validator: validator,
		logger:    logger,
	}
}
