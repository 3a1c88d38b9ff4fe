package domain

import (
	"slices"
	"time"
)

// OrderStatus is a state of the order lifecycle.
type OrderStatus string

const (
	OrderStatusCreated    OrderStatus = "created"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// transitions lists the statuses reachable from each non-terminal status.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusCreated:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusCompleted, OrderStatusCancelled},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusCreated, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no transition is defined out of s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return slices.Contains(transitions[s], next)
}

// Order is a purchase owned by a single identity. UserID never changes after creation.
type Order struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Status      OrderStatus    `json:"status"`
	TotalAmount float64        `json:"total_amount"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// SortDirection orders listings by creation time.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// OrderFilter selects one owner's orders, optionally by exact status.
type OrderFilter struct {
	UserID string
	Status OrderStatus
	Limit  int
	Offset int
	Sort   SortDirection
}

// OrderPage is one page of an order listing together with the total number of matches.
type OrderPage struct {
	Total int     `json:"total"`
	Items []Order `json:"items"`
}

// EventType identifies an order lifecycle event.
type EventType string

const (
	EventOrderCreated       EventType = "created"
	EventOrderStatusUpdated EventType = "status_updated"
)

// OrderEventPayload is the body of an order lifecycle event.
type OrderEventPayload struct {
	OrderID string      `json:"orderId"`
	UserID  string      `json:"userId"`
	Status  OrderStatus `json:"status"`
}

// OrderEvent is published after an order is created or changes status.
type OrderEvent struct {
	Type    EventType         `json:"type"`
	Payload OrderEventPayload `json:"payload"`
}

// NewOrderEvent builds an event describing the current state of o.
func NewOrderEvent(eventType EventType, o *Order) OrderEvent {
	return OrderEvent{
		Type: eventType,
		Payload: OrderEventPayload{
			OrderID: o.ID,
			UserID:  o.UserID,
			Status:  o.Status,
		},
	}
}
