package token

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/CameronXie/order-management/internal/apperror"
	"github.com/CameronXie/order-management/internal/clock"
	"github.com/CameronXie/order-management/internal/keyfetcher"
)

const (
	authHeaderMissingMessage       = "authorization header missing"
	invalidAuthHeaderFormatMessage = "invalid authorization header format"
	invalidTokenMessage            = "invalid token"
)

// VerifierConfig configures token verification. Empty fields are not checked.
type VerifierConfig struct {
	Issuer   string
	Audience string
}

// Verifier validates identity tokens using only the public key.
type Verifier struct {
	publicKeyFetcher keyfetcher.PublicKeyFetcher
	parser           *jwt.Parser
}

// FromHeader validates the value of an Authorization header.
// It returns an AUTH_REQUIRED error for an empty header and TOKEN_INVALID for anything else that fails.
func (v *Verifier) FromHeader(authHeader string) (*Claims, error) {
	if strings.TrimSpace(authHeader) == "" {
		return nil, apperror.AuthRequired(authHeaderMissingMessage)
	}

	raw, err := extractToken(authHeader)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeTokenInvalid, invalidAuthHeaderFormatMessage, err)
	}

	return v.Verify(raw)
}

// Verify validates a raw token and returns its claims.
func (v *Verifier) Verify(raw string) (*Claims, error) {
	publicKey, err := v.publicKeyFetcher.FetchPublicKey()
	if err != nil {
		return nil, fmt.Errorf("fetch public key: %w", err)
	}

	claims := new(Claims)
	if _, err = v.parser.ParseWithClaims(raw, claims, func(_ *jwt.Token) (any, error) {
		return publicKey, nil
	}); err != nil {
		return nil, apperror.Wrap(apperror.CodeTokenInvalid, invalidTokenMessage, err)
	}

	if claims.Subject == "" {
		return nil, apperror.Wrap(apperror.CodeTokenInvalid, invalidTokenMessage, errors.New("subject claim missing"))
	}

	if !claims.Role.Valid() {
		return nil, apperror.Wrap(
			apperror.CodeTokenInvalid,
			invalidTokenMessage,
			fmt.Errorf("unknown role %q", claims.Role),
		)
	}

	return claims, nil
}

// extractToken extracts a Bearer token from the Authorization header.
func extractToken(authHeader string) (string, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.New("invalid authorization header format")
	}

	return parts[1], nil
}

// NewVerifier returns a Verifier accepting only RS256 tokens that carry an expiry.
func NewVerifier(publicKeyFetcher keyfetcher.PublicKeyFetcher, c clock.Clock, cfg VerifierConfig) *Verifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.Now),
	}

	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &Verifier{
		publicKeyFetcher: publicKeyFetcher,
		parser:           jwt.NewParser(opts...),
	}
}
