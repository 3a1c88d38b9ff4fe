package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/CameronXie/order-management/internal/domain"
	"github.com/CameronXie/order-management/internal/repository"
)

const (
	OrderResource = "order"

	orderColumns = "id, user_id, status, total_amount, metadata, created_at, updated_at"
)

// OrderRepository provides database operations for orders
type OrderRepository struct {
	db *DB
}

// NewOrderRepository creates a new OrderRepository instance
func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateOrder creates a new order in the database
func (r *OrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	var metadata sql.NullString
	if order.Metadata != nil {
		encoded, err := json.Marshal(order.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for order %s: %w", order.ID, err)
		}
		metadata = sql.NullString{String: string(encoded), Valid: true}
	}

	query := r.db.rebind("INSERT INTO orders (" + orderColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?)")

	_, err := r.db.ExecContext(
		ctx,
		query,
		order.ID,
		order.UserID,
		string(order.Status),
		order.TotalAmount,
		metadata,
		formatTime(order.CreatedAt),
		formatTime(order.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &repository.ConflictError{Resource: OrderResource, Key: "id", Value: order.ID, Err: err}
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// GetOrderByID retrieves an order by its ID from the database
func (r *OrderRepository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind("SELECT "+orderColumns+" FROM orders WHERE id = ?"), id)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &repository.NotFoundError{Resource: OrderResource, Key: "id", Value: id}
		}
		return nil, fmt.Errorf("failed to retrieve order with id %s: %w", id, err)
	}

	return order, nil
}

// UpdateOrderStatus moves the order from status from to status to.
// It returns *repository.PreconditionError when the stored status is no longer from.
func (r *OrderRepository) UpdateOrderStatus(
	ctx context.Context,
	id string,
	from, to domain.OrderStatus,
	updatedAt time.Time,
) error {
	query := r.db.rebind("UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?")

	res, err := r.db.ExecContext(ctx, query, string(to), formatTime(updatedAt), id, string(from))
	if err != nil {
		return fmt.Errorf("failed to update status of order %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update status of order %s: %w", id, err)
	}

	if n == 0 {
		return &repository.PreconditionError{Resource: OrderResource, Key: "id", Value: id}
	}

	return nil
}

// ListOrders returns one page of an owner's orders with the total number of matches.
// Rows are ordered by creation time, ties broken by id.
func (r *OrderRepository) ListOrders(ctx context.Context, filter domain.OrderFilter) (*domain.OrderPage, error) {
	where := " WHERE user_id = ?"
	args := []any{filter.UserID}

	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, string(filter.Status))
	}

	direction := "DESC"
	if filter.Sort == domain.SortAsc {
		direction = "ASC"
	}

	page := &domain.OrderPage{Items: []domain.Order{}}
	err := r.db.readTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, r.db.rebind("SELECT COUNT(*) FROM orders"+where), args...).
			Scan(&page.Total); err != nil {
			return fmt.Errorf("failed to count orders: %w", err)
		}

		query := r.db.rebind(
			"SELECT " + orderColumns + " FROM orders" + where +
				" ORDER BY created_at " + direction + ", id " + direction + " LIMIT ? OFFSET ?",
		)

		rows, err := tx.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
		if err != nil {
			return fmt.Errorf("failed to list orders: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			order, err := scanOrder(rows)
			if err != nil {
				return fmt.Errorf("failed to scan order: %w", err)
			}
			page.Items = append(page.Items, *order)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return page, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order                domain.Order
		status               string
		metadata             sql.NullString
		createdAt, updatedAt string
	)

	if err := row.Scan(
		&order.ID,
		&order.UserID,
		&status,
		&order.TotalAmount,
		&metadata,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatus(status)

	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &order.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for order %s: %w", order.ID, err)
		}
	}

	var err error
	if order.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	if order.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &order, nil
}
