// Package orders implements the order lifecycle.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CameronXie/order-management/internal/apperror"
	"github.com/CameronXie/order-management/internal/clock"
	"github.com/CameronXie/order-management/internal/decisionmaker"
	"github.com/CameronXie/order-management/internal/domain"
	"github.com/CameronXie/order-management/internal/enforcer"
	"github.com/CameronXie/order-management/internal/repository"
	"github.com/CameronXie/order-management/internal/token"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	orderNotFoundMessage = "order not found"
)

// Store persists orders.
type Store interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus, updatedAt time.Time) error
	ListOrders(ctx context.Context, filter domain.OrderFilter) (*domain.OrderPage, error)
}

// UserDirectory confirms that an identity exists.
// It returns USER_NOT_FOUND when it does not and UPSTREAM_UNAVAILABLE when the answer is unknown.
type UserDirectory interface {
	EnsureUserExists(ctx context.Context, userID string) error
}

// Publisher emits lifecycle events. Delivery failures are the publisher's concern.
type Publisher interface {
	Publish(ctx context.Context, event domain.OrderEvent)
}

type CreateInput struct {
	UserID      string
	TotalAmount float64
	Metadata    map[string]any
}

// ListInput selects orders. Zero values select the defaults.
type ListInput struct {
	UserID string
	Status domain.OrderStatus
	Limit  int
	Offset int
	Sort   domain.SortDirection
}

// Service implements the order operations.
type Service struct {
	store     Store
	users     UserDirectory
	publisher Publisher
	enforcer  enforcer.Enforcer
	clock     clock.Clock
	logger    *slog.Logger
	newID     func() string
}

// Create places an order for in.UserID after checking access and that the owner exists.
func (s *Service) Create(ctx context.Context, claims *token.Claims, in CreateInput) (*domain.Order, error) {
	if in.TotalAmount <= 0 {
		return nil, apperror.BadRequest("totalAmount must be greater than 0")
	}

	if err := s.enforcer.Enforce(ctx, &enforcer.AccessRequest{
		Claims: claims,
		Owner:  in.UserID,
		Action: decisionmaker.ActionOrderCreate,
	}); err != nil {
		return nil, err
	}

	if err := s.users.EnsureUserExists(ctx, in.UserID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	order := &domain.Order{
		ID:          s.newID(),
		UserID:      in.UserID,
		Status:      domain.OrderStatusCreated,
		TotalAmount: in.TotalAmount,
		Metadata:    in.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "order created", "order_id", order.ID, "user_id", order.UserID)
	s.publisher.Publish(ctx, domain.NewOrderEvent(domain.EventOrderCreated, order))

	return order, nil
}

// Get returns an order. A missing order is reported before ownership is checked.
func (s *Service) Get(ctx context.Context, claims *token.Claims, id string) (*domain.Order, error) {
	return s.authorizedOrder(ctx, claims, id, decisionmaker.ActionOrderRead)
}

// List returns the caller's orders. Admins may list another owner's orders through in.UserID.
func (s *Service) List(ctx context.Context, claims *token.Claims, in ListInput) (*domain.OrderPage, error) {
	if claims == nil {
		return nil, apperror.AuthRequired("authentication required")
	}

	filter := domain.OrderFilter{
		UserID: claims.Subject,
		Status: in.Status,
		Limit:  in.Limit,
		Offset: in.Offset,
		Sort:   in.Sort,
	}

	if claims.IsAdmin() && in.UserID != "" {
		filter.UserID = in.UserID
	}

	if filter.Limit == 0 {
		filter.Limit = DefaultLimit
	}

	if filter.Limit < 1 || filter.Limit > MaxLimit {
		return nil, apperror.BadRequest(fmt.Sprintf("limit must be between 1 and %d", MaxLimit))
	}

	if filter.Offset < 0 {
		return nil, apperror.BadRequest("offset must not be negative")
	}

	switch filter.Sort {
	case "":
		filter.Sort = domain.SortDesc
	case domain.SortAsc, domain.SortDesc:
	default:
		return nil, apperror.BadRequest(fmt.Sprintf("unknown sort %q", filter.Sort))
	}

	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperror.BadRequest(fmt.Sprintf("unknown status %q", filter.Status))
	}

	return s.store.ListOrders(ctx, filter)
}

// UpdateStatus moves an order along the lifecycle.
// The write only applies if the order still has the status that was read.
func (s *Service) UpdateStatus(
	ctx context.Context,
	claims *token.Claims,
	id string,
	status domain.OrderStatus,
) (*domain.Order, error) {
	return s.transition(ctx, claims, id, status, decisionmaker.ActionOrderUpdateStatus)
}

// Cancel moves an order to cancelled.
func (s *Service) Cancel(ctx context.Context, claims *token.Claims, id string) (*domain.Order, error) {
	return s.transition(ctx, claims, id, domain.OrderStatusCancelled, decisionmaker.ActionOrderCancel)
}

func (s *Service) transition(
	ctx context.Context,
	claims *token.Claims,
	id string,
	status domain.OrderStatus,
	action decisionmaker.Action,
) (*domain.Order, error) {
	if !status.Valid() || status == domain.OrderStatusCreated {
		return nil, apperror.BadRequest(fmt.Sprintf("invalid status %q", status))
	}

	order, err := s.authorizedOrder(ctx, claims, id, action)
	if err != nil {
		return nil, err
	}

	if order.Status.Terminal() {
		return nil, apperror.BadRequest(fmt.Sprintf("order is already %s", order.Status))
	}

	if !order.Status.CanTransitionTo(status) {
		return nil, apperror.BadRequest(fmt.Sprintf("cannot transition order from %s to %s", order.Status, status))
	}

	now := s.clock.Now()
	if err := s.store.UpdateOrderStatus(ctx, order.ID, order.Status, status, now); err != nil {
		var stale *repository.PreconditionError
		if errors.As(err, &stale) {
			return nil, apperror.Wrap(apperror.CodeBadRequest, "order status changed concurrently, reload and retry", err)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "order status updated", "order_id", order.ID, "from", order.Status, "to", status)

	order.Status = status
	order.UpdatedAt = now
	s.publisher.Publish(ctx, domain.NewOrderEvent(domain.EventOrderStatusUpdated, order))

	return order, nil
}

func (s *Service) authorizedOrder(
	ctx context.Context,
	claims *token.Claims,
	id string,
	action decisionmaker.Action,
) (*domain.Order, error) {
	order, err := s.store.GetOrderByID(ctx, id)
	if err != nil {
		var notFound *repository.NotFoundError
		if errors.As(err, &notFound) {
			return nil, apperror.Wrap(apperror.CodeNotFound, orderNotFoundMessage, err)
		}
		return nil, err
	}

	if err := s.enforcer.Enforce(ctx, &enforcer.AccessRequest{
		Claims: claims,
		Owner:  order.UserID,
		Action: action,
	}); err != nil {
		return nil, err
	}

	return order, nil
}

// Option customises a Service.
type Option func(*Service)

// WithIDGenerator replaces uuid.NewString as the source of order ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

// NewService wires the order operations.
func NewService(
	store Store,
	users UserDirectory,
	publisher Publisher,
	e enforcer.Enforcer,
	c clock.Clock,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		store:     store,
		users:     users,
		publisher: publisher,
		enforcer:  e,
		clock:     c,
		logger:    logger,
		newID:     uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}
