// Package identity implements registration, login, profiles and the admin user listing.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/CameronXie/order-management/internal/apperror"
	"github.com/CameronXie/order-management/internal/authn"
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

	userExistsMessage   = "a user with this email already exists"
	userNotFoundMessage = "user not found"
)

// UserStore persists identities.
type UserStore interface {
	authn.UserFinder
	CreateUser(ctx context.Context, user *domain.User) error
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	ListUsers(ctx context.Context, filter domain.UserFilter) (*domain.UserPage, error)
}

// TokenIssuer signs identity tokens.
type TokenIssuer interface {
	Issue(user *domain.User) (string, error)
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// UpdateProfileInput changes only the non-nil fields.
type UpdateProfileInput struct {
	Name     *string
	Password *string
}

type LoginResult struct {
	Token string            `json:"token"`
	User  domain.PublicUser `json:"user"`
}

// Service implements the identity operations.
type Service struct {
	users         UserStore
	hasher        authn.Hasher
	authenticator authn.Authenticator
	issuer        TokenIssuer
	enforcer      enforcer.Enforcer
	clock         clock.Clock
	logger        *slog.Logger
	newID         func() string
}

// Register creates an identity with the user role.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.PublicUser, error) {
	_, err := s.users.FindUserByEmail(ctx, in.Email)
	if err == nil {
		return nil, apperror.New(apperror.CodeUserExists, userExistsMessage)
	}

	var notFound *repository.NotFoundError
	if !errors.As(err, &notFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	user, err := s.newUser(in, domain.RoleUser)
	if err != nil {
		return nil, err
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		var conflict *repository.ConflictError
		if errors.As(err, &conflict) {
			return nil, apperror.Wrap(apperror.CodeUserExists, userExistsMessage, err)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)

	public := user.Public()
	return &public, nil
}

// Login verifies the credentials and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	signed, err := s.issuer.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &LoginResult{Token: signed, User: user.Public()}, nil
}

// GetProfile returns the public profile of the identity id.
func (s *Service) GetProfile(ctx context.Context, id string) (*domain.PublicUser, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	public := user.Public()
	return &public, nil
}

// GetUser backs the internal lookup used by other services.
func (s *Service) GetUser(ctx context.Context, id string) (*domain.PublicUser, error) {
	return s.GetProfile(ctx, id)
}

// UpdateProfile changes the name and/or password of the identity id.
func (s *Service) UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (*domain.PublicUser, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		user.Name = *in.Name
	}

	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	user.UpdatedAt = s.clock.Now()
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	public := user.Public()
	return &public, nil
}

// ListUsers returns a page of identities. Only admins may list.
func (s *Service) ListUsers(ctx context.Context, claims *token.Claims, filter domain.UserFilter) (*domain.UserPage, error) {
	if err := s.enforcer.Enforce(ctx, &enforcer.AccessRequest{
		Claims: claims,
		Action: decisionmaker.ActionUserList,
	}); err != nil {
		return nil, err
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

	if filter.Role != "" && !filter.Role.Valid() {
		return nil, apperror.BadRequest(fmt.Sprintf("unknown role %q", filter.Role))
	}

	return s.users.ListUsers(ctx, filter)
}

// EnsureAdmin creates the admin identity unless one with the email already exists.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, name string) error {
	existing, err := s.users.FindUserByEmail(ctx, email)
	if err == nil {
		s.logger.InfoContext(ctx, "admin user already present", "user_id", existing.ID)
		return nil
	}

	var notFound *repository.NotFoundError
	if !errors.As(err, &notFound) {
		return fmt.Errorf("check admin: %w", err)
	}

	admin, err := s.newUser(RegisterInput{Email: email, Password: password, Name: name}, domain.RoleAdmin)
	if err != nil {
		return err
	}

	if err := s.users.CreateUser(ctx, admin); err != nil {
		var conflict *repository.ConflictError
		if errors.As(err, &conflict) {
			return nil
		}
		return fmt.Errorf("create admin: %w", err)
	}

	s.logger.InfoContext(ctx, "admin user created", "user_id", admin.ID)
	return nil
}

func (s *Service) newUser(in RegisterInput, role domain.Role) (*domain.User, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now()
	return &domain.User{
		ID:           s.newID(),
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *Service) findUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		var notFound *repository.NotFoundError
		if errors.As(err, &notFound) {
			return nil, apperror.Wrap(apperror.CodeNotFound, userNotFoundMessage, err)
		}
		return nil, err
	}

	return user, nil
}

// Option customises a Service.
type Option func(*Service)

// WithIDGenerator replaces uuid.NewString as the source of identity ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

// NewService wires the identity operations.
func NewService(
	users UserStore,
	hasher authn.Hasher,
	authenticator authn.Authenticator,
	issuer TokenIssuer,
	e enforcer.Enforcer,
	c clock.Clock,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		users:         users,
		hasher:        hasher,
		authenticator: authenticator,
		issuer:        issuer,
		enforcer:      e,
		clock:         c,
		logger:        logger,
		newID:         uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}
