package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/CameronXie/order-management/internal/clock"
	"github.com/CameronXie/order-management/internal/domain"
	"github.com/CameronXie/order-management/internal/keyfetcher"
)

// DefaultTTL is used when no positive TTL is configured.
const DefaultTTL = time.Hour

// IssuerConfig configures token issuance.
type IssuerConfig struct {
	TTL      time.Duration
	Issuer   string
	Audience string
}

// Issuer signs identity tokens with the identity service's private key.
type Issuer struct {
	privateKeyFetcher keyfetcher.PrivateKeyFetcher
	clock             clock.Clock
	cfg               IssuerConfig
}

// Issue builds claims from the given user and returns them signed with RS256.
func (i *Issuer) Issue(user *domain.User) (string, error) {
	now := i.clock.Now()
	claims := &Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.TTL)),
			Issuer:    i.cfg.Issuer,
		},
	}

	if i.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{i.cfg.Audience}
	}

	privateKey, err := i.privateKeyFetcher.FetchPrivateKey()
	if err != nil {
		return "", fmt.Errorf("fetch private key: %w", err)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(privateKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// NewIssuer returns an Issuer. A non-positive TTL falls back to DefaultTTL.
func NewIssuer(privateKeyFetcher keyfetcher.PrivateKeyFetcher, c clock.Clock, cfg IssuerConfig) *Issuer {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	return &Issuer{
		privateKeyFetcher: privateKeyFetcher,
		clock:             c,
		cfg:               cfg,
	}
}
