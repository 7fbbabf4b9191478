package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// Ed25519Scheme verifies Ed25519 signatures for base58 public-key identities.
// The signed payload is the UTF-8 canonical message itself.
type Ed25519Scheme struct{}

func (Ed25519Scheme) Name() string { return "ed25519" }

func (Ed25519Scheme) Accepts(identity string) bool {
	_, ok := ed25519PublicKey(identity)
	return ok
}

func (Ed25519Scheme) Verify(identity string, message []byte, signature string) bool {
	pub, ok := ed25519PublicKey(identity)
	if !ok {
		return false
	}
	sig, ok := decodeSignature(signature, ed25519.SignatureSize)
	if !ok {
		return false
	}
	return ed25519.Verify(pub, message, sig)
}

func (Ed25519Scheme) Generate() (Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return Ed25519Signer{priv: priv}, nil
}

// ParseSigner accepts a hex seed (32 bytes) or a base58 keypair (64 bytes, Solana CLI layout).
func (Ed25519Scheme) ParseSigner(secret string) (Signer, error) {
	secret = strings.TrimSpace(secret)
	if b, err := hex.DecodeString(secret); err == nil && len(b) == ed25519.SeedSize {
		return Ed25519Signer{priv: ed25519.NewKeyFromSeed(b)}, nil
	}
	if b, err := base58.Decode(secret); err == nil && len(b) == ed25519.PrivateKeySize {
		return Ed25519Signer{priv: ed25519.PrivateKey(b)}, nil
	}
	return nil, fmt.Errorf("%w: expected 32-byte hex seed or 64-byte base58 keypair", ErrInvalidKey)
}

func ed25519PublicKey(identity string) (ed25519.PublicKey, bool) {
	identity = strings.TrimSpace(identity)
	if identity == "" || strings.HasPrefix(identity, "0x") {
		return nil, false
	}
	b, err := base58.Decode(identity)
	if err != nil || len(b) != ed25519.PublicKeySize {
		return nil, false
	}
	return ed25519.PublicKey(b), true
}

// Ed25519Signer signs with an Ed25519 private key and emits base58 signatures.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
}

func (s Ed25519Signer) Identity() string {
	return base58.Encode(s.priv.Public().(ed25519.PublicKey))
}

func (s Ed25519Signer) Sign(message string) (string, error) {
	return base58.Encode(ed25519.Sign(s.priv, []byte(message))), nil
}

func (s Ed25519Signer) ExportSecret() string {
	return hex.EncodeToString(s.priv.Seed())
}
