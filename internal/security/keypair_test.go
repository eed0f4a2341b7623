package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"time"
)

// Generated once per test binary.
var testPrivateKeyPEM, testPublicKeyPEM = generatePEM()

func generatePEM() (string, string) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		panic(err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})),
		string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub}))
}

func newTestTokenProvider() (*TokenProvider, error) {
	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		return nil, err
	}
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		return nil, err
	}
	return NewTokenProvider(signer, pub, "test-issuer", "test-audience", 15*time.Minute), nil
}
