package keyfetcher

import (
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// PublicKeyFetcher is held by every service that verifies identity tokens.
type PublicKeyFetcher interface {
	FetchPublicKey() (*rsa.PublicKey, error)
}

// PrivateKeyFetcher is held only by the identity service, which signs identity tokens.
type PrivateKeyFetcher interface {
	FetchPrivateKey() (*rsa.PrivateKey, error)
}

// From is a type definition for a function that returns PEM encoded key material and an error.
type From func() ([]byte, error)

// FetchPublicKey parses the loaded key as an RSA public key.
func (f From) FetchPublicKey() (*rsa.PublicKey, error) {
	keyBytes, err := f()
	if err != nil {
		return nil, err
	}

	return jwt.ParseRSAPublicKeyFromPEM(keyBytes)
}

// FetchPrivateKey parses the loaded key as an RSA private key.
func (f From) FetchPrivateKey() (*rsa.PrivateKey, error) {
	keyBytes, err := f()
	if err != nil {
		return nil, err
	}

	return jwt.ParseRSAPrivateKeyFromPEM(keyBytes)
}

// FromBase64Env receives an environment variable key as input,
// reads the Base64 encoded value from the specified environment variable, decodes it,
// and returns a From function.
func FromBase64Env(key string) From {
	return func() ([]byte, error) {
		keyBase64 := strings.TrimSpace(os.Getenv(key))
		if keyBase64 == "" {
			return nil, errors.New("key is not found")
		}

		decoded, err := base64.StdEncoding.DecodeString(keyBase64)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}

		return decoded, nil
	}
}

// FromPEM returns a From function serving the given PEM block as is.
func FromPEM(pem []byte) From {
	return func() ([]byte, error) {
		if len(pem) == 0 {
			return nil, errors.New("key is not found")
		}

		return pem, nil
	}
}

type publicKeyFunc func() (*rsa.PublicKey, error)

func (f publicKeyFunc) FetchPublicKey() (*rsa.PublicKey, error) { return f() }

type privateKeyFunc func() (*rsa.PrivateKey, error)

func (f privateKeyFunc) FetchPrivateKey() (*rsa.PrivateKey, error) { return f() }

// MemoizePublicKey loads and parses the public key once and replays the result on every later call.
func MemoizePublicKey(f PublicKeyFetcher) PublicKeyFetcher {
	return publicKeyFunc(sync.OnceValues(f.FetchPublicKey))
}

// MemoizePrivateKey loads and parses the private key once and replays the result on every later call.
func MemoizePrivateKey(f PrivateKeyFetcher) PrivateKeyFetcher {
	return privateKeyFunc(sync.OnceValues(f.FetchPrivateKey))
}
