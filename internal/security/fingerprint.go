package security

import (
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// FingerprintHasher derives the stored form of a device fingerprint: a keyed BLAKE2b-256 digest,
// hex-encoded. Raw fingerprints are never persisted.
type FingerprintHasher struct {
	key []byte
}

// NewFingerprintHasher returns a hasher keyed with key. BLAKE2b accepts keys up to 64 bytes; longer
// keys are first reduced with an unkeyed BLAKE2b-512. An empty key yields plain BLAKE2b-256.
func NewFingerprintHasher(key string) *FingerprintHasher {
	k := []byte(key)
	if len(k) > blake2b.Size {
		sum := blake2b.Sum512(k)
		k = sum[:]
	}
	return &FingerprintHasher{key: k}
}

// Hash returns the hex digest of the trimmed fingerprint.
func (h *FingerprintHasher) Hash(fingerprint string) string {
	d, err := blake2b.New256(h.key)
	if err != nil {
		// Only reachable with keys over 64 bytes, which NewFingerprintHasher reduces.
		panic(err)
	}
	d.Write([]byte(strings.TrimSpace(fingerprint)))
	return hex.EncodeToString(d.Sum(nil))
}

// Equal reports whether two stored digests match, in constant time.
func (h *FingerprintHasher) Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
