// Package securitytest builds token providers backed by throwaway keys for tests in other packages.
package securitytest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"attendance-ledger/backend/internal/security"
)

const (
	Issuer   = "test-issuer"
	Audience = "test-audience"
)

// KeyPair returns a fresh RSA key pair as PEM (PKCS#1 private, PKIX public).
func KeyPair(t testing.TB) (privatePEM, publicPEM string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	privatePEM = string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}))
	publicPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub}))
	return privatePEM, publicPEM
}

// NewTokenProvider returns a provider that issues and validates tokens for Issuer and Audience.
func NewTokenProvider(t testing.TB) *security.TokenProvider {
	t.Helper()
	privatePEM, publicPEM := KeyPair(t)
	signer, err := security.ParsePrivateKey(privatePEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	pub, err := security.ParsePublicKey(publicPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	return security.NewTokenProvider(signer, pub, Issuer, Audience, 15*time.Minute)
}
