package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

const (
	// DefaultEntropyBytes is 256 bits of entropy per run.
	DefaultEntropyBytes = 32

	// MinEntropyBytes is the smallest size accepted from configuration.
	MinEntropyBytes = 16
	// MaxEntropyBytes bounds the canonical message length.
	MaxEntropyBytes = 64

	fingerprintHexChars = 12
)

// Generator produces session entropy strings.
type Generator interface {
	NewEntropy() (string, error)
}

// RandGenerator draws entropy from a cryptographically secure reader.
type RandGenerator struct {
	n      int
	reader io.Reader
}

// NewRandGenerator returns a Generator backed by crypto/rand.
func NewRandGenerator(nBytes int) (*RandGenerator, error) {
	if nBytes == 0 {
		nBytes = DefaultEntropyBytes
	}
	if nBytes < MinEntropyBytes || nBytes > MaxEntropyBytes {
		return nil, fmt.Errorf("%w: %d", ErrEntropySize, nBytes)
	}
	return &RandGenerator{n: nBytes, reader: rand.Reader}, nil
}

// NewEntropy returns a fresh URL-safe entropy string.
func (g *RandGenerator) NewEntropy() (string, error) {
	b := make([]byte, g.n)
	if _, err := io.ReadFull(g.reader, b); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntropySource, err)
	}
	// URL-safe, no padding.
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Fingerprint returns a short, log-safe digest of an entropy value.
// Empty input yields an empty fingerprint.
func Fingerprint(entropy string) string {
	if entropy == "" {
		return ""
	}
	return HashSHA256Hex(entropy)[:fingerprintHexChars]
}
