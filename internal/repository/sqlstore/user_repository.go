package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/CameronXie/order-management/internal/domain"
	"github.com/CameronXie/order-management/internal/repository"
)

const (
	UserResource = "user"

	userColumns = "id, email, password_hash, name, role, created_at, updated_at"
)

// UserRepository provides database operations for users
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new UserRepository instance
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts a user. A taken email is reported as *repository.ConflictError.
func (r *UserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	query := r.db.rebind("INSERT INTO users (" + userColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?)")

	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		string(user.Role),
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &repository.ConflictError{Resource: UserResource, Key: "email", Value: user.Email, Err: err}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// FindUserByEmail retrieves a user by exact email
func (r *UserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind("SELECT "+userColumns+" FROM users WHERE email = ?"), email)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &repository.NotFoundError{Resource: UserResource, Key: "email", Value: email}
		}
		return nil, fmt.Errorf("failed to retrieve user with email %s: %w", email, err)
	}

	return user, nil
}

// FindUserByID retrieves a user by id
func (r *UserRepository) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind("SELECT "+userColumns+" FROM users WHERE id = ?"), id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &repository.NotFoundError{Resource: UserResource, Key: "id", Value: id}
		}
		return nil, fmt.Errorf("failed to retrieve user with id %s: %w", id, err)
	}

	return user, nil
}

// UpdateUser writes the mutable profile fields of an existing user
func (r *UserRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	query := r.db.rebind("UPDATE users SET name = ?, password_hash = ?, updated_at = ? WHERE id = ?")

	if _, err := r.db.ExecContext(ctx, query, user.Name, user.PasswordHash, formatTime(user.UpdatedAt), user.ID); err != nil {
		return fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}

	return nil
}

// ListUsers returns one page of users, newest first, with the total number of matches
func (r *UserRepository) ListUsers(ctx context.Context, filter domain.UserFilter) (*domain.UserPage, error) {
	var (
		conditions []string
		args       []any
	)

	if filter.Role != "" {
		conditions = append(conditions, "role = ?")
		args = append(args, string(filter.Role))
	}

	if filter.Search != "" {
		conditions = append(conditions, "(email LIKE ? OR name LIKE ?)")
		args = append(args, likePattern(filter.Search), likePattern(filter.Search))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := &domain.UserPage{Items: []domain.PublicUser{}}
	err := r.db.readTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, r.db.rebind("SELECT COUNT(*) FROM users"+where), args...).
			Scan(&page.Total); err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}

		query := r.db.rebind(
			"SELECT " + userColumns + " FROM users" + where +
				" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		)

		rows, err := tx.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			user, err := scanUser(rows)
			if err != nil {
				return fmt.Errorf("failed to scan user: %w", err)
			}
			page.Items = append(page.Items, user.Public())
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return page, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		user                 domain.User
		role                 string
		createdAt, updatedAt string
	)

	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name, &role, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	user.Role = domain.Role(role)

	var err error
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &user, nil
}
