package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/CameronXie/order-management/internal/api/rest/response"
	"github.com/CameronXie/order-management/internal/domain"
	"github.com/CameronXie/order-management/internal/orders"
	"github.com/CameronXie/order-management/internal/token"
)

// OrderService is the order behaviour the order handlers depend on.
type OrderService interface {
	Create(ctx context.Context, claims *token.Claims, in orders.CreateInput) (*domain.Order, error)
	Get(ctx context.Context, claims *token.Claims, id string) (*domain.Order, error)
	List(ctx context.Context, claims *token.Claims, in orders.ListInput) (*domain.OrderPage, error)
	UpdateStatus(ctx context.Context, claims *token.Claims, id string, status domain.OrderStatus) (*domain.Order, error)
	Cancel(ctx context.Context, claims *token.Claims, id string) (*domain.Order, error)
}

type CreateOrderRequest struct {
	UserID      string         `json:"userId" validate:"required,uuid"`
	TotalAmount float64        `json:"totalAmount" validate:"gt=0"`
	Metadata    map[string]any `json:"metadata"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=processing completed cancelled"`
}

type ListOrdersQuery struct {
	Limit  *int   `query:"limit" validate:"omitnil,min=1,max=100"`
	Offset *int   `query:"offset" validate:"omitnil,min=0"`
	Sort   string `query:"sort" validate:"omitempty,oneof=asc desc"`
	Status string `query:"status" validate:"omitempty,oneof=created processing completed cancelled"`
	UserID string `query:"userId" validate:"omitempty,uuid"`
}

// OrderHandlers serves the order routes. Every route expects claims in the request context.
type OrderHandlers struct {
	service   OrderService
	validator Validator
	logger    *slog.Logger
}

func (h *OrderHandlers) Create(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFrom(r)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	req := new(CreateOrderRequest)
	if err := h.decode(w, r, req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	order, err := h.service.Create(r.Context(), claims, orders.CreateInput{
		UserID:      req.UserID,
		TotalAmount: req.TotalAmount,
		Metadata:    req.Metadata,
	})
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.Success(w, http.StatusCreated, order)
}

func (h *OrderHandlers) Get(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFrom(r)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	order, err := h.service.Get(r.Context(), claims, chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.Success(w, http.StatusOK, order)
}

func (h *OrderHandlers) List(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFrom(r)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	q := r.URL.Query()
	query := ListOrdersQuery{Sort: q.Get("sort"), Status: q.Get("status")}
	// Only admins may filter by owner; everyone else is scoped to their own orders.
	if claims.IsAdmin() {
		query.UserID = q.Get("userId")
	}
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

	page, err := h.service.List(r.Context(), claims, orders.ListInput{
		UserID: query.UserID,
		Status: domain.OrderStatus(query.Status),
		Limit:  deref(query.Limit),
		Offset: deref(query.Offset),
		Sort:   domain.SortDirection(query.Sort),
	})
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.Success(w, http.StatusOK, page)
}

func (h *OrderHandlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFrom(r)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	req := new(UpdateOrderStatusRequest)
	if err := h.decode(w, r, req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), claims, chi.URLParam(r, "id"), domain.OrderStatus(req.Status))
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.Success(w, http.StatusOK, order)
}

func (h *OrderHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFrom(r)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	order, err := h.service.Cancel(r.Context(), claims, chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.Success(w, http.StatusOK, order)
}

func (h *OrderHandlers) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := decodeJSON(w, r, dst); err != nil {
		return err
	}

	return h.validator.Validate(dst)
}

func NewOrderHandlers(service OrderService, validator Validator, logger *slog.Logger) *OrderHandlers {
	return &OrderHandlers{
		service:   service,
		validator: validator,
		logger:    logger,
	}
}
