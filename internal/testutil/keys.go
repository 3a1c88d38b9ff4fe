// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CameronXie/order-management/internal/keyfetcher"
)

// KeyPair is an RSA key pair exposed through the key fetchers used by the services.
type KeyPair struct {
	Private    *rsa.PrivateKey
	PrivatePEM []byte
	PublicPEM  []byte
}

// PrivateKey returns a fetcher serving the private key.
func (k *KeyPair) PrivateKey() keyfetcher.From {
	return keyfetcher.FromPEM(k.PrivatePEM)
}

// PublicKey returns a fetcher serving the public key.
func (k *KeyPair) PublicKey() keyfetcher.From {
	return keyfetcher.FromPEM(k.PublicPEM)
}

// NewKeyPair generates a fresh 2048 bit RSA key pair.
func NewKeyPair(t testing.TB) *KeyPair {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privBytes, err := x509.MarshalPKCS8PrivateKey(privateKey)
	require.NoError(t, err)

	pubBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	require.NoError(t, err)

	return &KeyPair{
		Private:    privateKey,
		PrivatePEM: pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privBytes}),
		PublicPEM:  pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes}),
	}
}
