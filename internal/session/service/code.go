package service

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// codeAlphabet omits characters that are easy to confuse when read aloud or typed (0/O, 1/I/L).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	// DefaultCodeLength is used when the configured length is zero.
	DefaultCodeLength = 6
	// maxCodeAttempts bounds retries when a generated code collides with a live session.
	maxCodeAttempts = 8
)

// generateCode returns n characters drawn uniformly from codeAlphabet.
func generateCode(n int) (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[idx.Int64()])
	}
	return b.String(), nil
}

// NormalizeCode upper-cases and trims a user-typed access code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
