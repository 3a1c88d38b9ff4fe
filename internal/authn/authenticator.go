package authn

import (
	"context"
	"errors"
	"fmt"

	"github.com/CameronXie/order-management/internal/apperror"
	"github.com/CameronXie/order-management/internal/domain"
	"github.com/CameronXie/order-management/internal/repository"
)

const invalidCredentialsMessage = "invalid email or password"

// Authenticator verifies a credential pair and returns the matching identity.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
}

// UserFinder looks up stored identities by email.
type UserFinder interface {
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

type storeAuthenticator struct {
	users     UserFinder
	hasher    Hasher
	dummyHash string
}

// Authenticate returns INVALID_CREDENTIALS for both an unknown email and a wrong password.
// Unknown emails still go through one hash comparison.
func (a *storeAuthenticator) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := a.users.FindUserByEmail(ctx, email)
	if err != nil {
		var notFound *repository.NotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}

		_ = a.hasher.Compare(a.dummyHash, password)
		return nil, apperror.Wrap(apperror.CodeInvalidCredentials, invalidCredentialsMessage, err)
	}

	if err := a.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, apperror.Wrap(apperror.CodeInvalidCredentials, invalidCredentialsMessage, err)
	}

	return user, nil
}

// NewAuthenticator returns a store backed Authenticator.
func NewAuthenticator(users UserFinder, hasher Hasher) (Authenticator, error) {
	dummyHash, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	return &storeAuthenticator{
		users:     users,
		hasher:    hasher,
		dummyHash: dummyHash,
	}, nil
}
