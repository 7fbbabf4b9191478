package wallet

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"
)

const (
	ethAddressHexChars = 40
	ethSignatureBytes  = 65
	ethPersonalPrefix  = "\x19Ethereum Signed Message:\n"
)

// EthereumScheme verifies EIP-191 personal_sign signatures for 0x addresses.
// The recovered signer address must equal the identity (case-insensitive).
type EthereumScheme struct{}

func (EthereumScheme) Name() string { return "secp256k1" }

func (EthereumScheme) Accepts(identity string) bool {
	_, ok := parseEthAddress(identity)
	return ok
}

func (EthereumScheme) Verify(identity string, message []byte, signature string) bool {
	want, ok := parseEthAddress(identity)
	if !ok {
		return false
	}
	sig, ok := decodeSignature(signature, ethSignatureBytes)
	if !ok {
		return false
	}

	// r||s||v -> compact form [27+recid]||r||s for an uncompressed key.
	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return false
	}
	compact := make([]byte, 0, ethSignatureBytes)
	compact = append(compact, 27+v)
	compact = append(compact, sig[:64]...)

	pub, _, err := ecdsa.RecoverCompact(compact, personalHash(message))
	if err != nil {
		return false
	}
	return ethAddress(pub) == want
}

func (EthereumScheme) Generate() (Signer, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return EthereumSigner{priv: priv}, nil
}

// ParseSigner accepts a 32-byte hex private key, with or without 0x.
func (EthereumScheme) ParseSigner(secret string) (Signer, error) {
	secret = strings.TrimPrefix(strings.TrimSpace(secret), "0x")
	b, err := hex.DecodeString(secret)
	if err != nil || len(b) != 32 {
		return nil, fmt.Errorf("%w: expected 32-byte hex private key", ErrInvalidKey)
	}
	return EthereumSigner{priv: secp256k1.PrivKeyFromBytes(b)}, nil
}

// EthereumSigner signs with personal_sign semantics and emits 0x r||s||v hex.
type EthereumSigner struct {
	priv *secp256k1.PrivateKey
}

func (s EthereumSigner) Identity() string {
	return "0x" + ethAddress(s.priv.PubKey())
}

func (s EthereumSigner) Sign(message string) (string, error) {
	compact := ecdsa.SignCompact(s.priv, personalHash([]byte(message)), false)
	// [27+recid]||r||s -> r||s||v
	out := make([]byte, 0, ethSignatureBytes)
	out = append(out, compact[1:]...)
	out = append(out, compact[0])
	return "0x" + hex.EncodeToString(out), nil
}

func (s EthereumSigner) ExportSecret() string {
	return "0x" + hex.EncodeToString(s.priv.Serialize())
}

func personalHash(message []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(ethPersonalPrefix + strconv.Itoa(len(message))))
	_, _ = h.Write(message)
	return h.Sum(nil)
}

// ethAddress returns the lowercase hex address (no 0x) of a public key.
func ethAddress(pub *secp256k1.PublicKey) string {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(pub.SerializeUncompressed()[1:])
	return hex.EncodeToString(h.Sum(nil)[12:])
}

func parseEthAddress(identity string) (string, bool) {
	identity = strings.TrimSpace(identity)
	if !strings.HasPrefix(identity, "0x") && !strings.HasPrefix(identity, "0X") {
		return "", false
	}
	a := strings.ToLower(identity[2:])
	if len(a) != ethAddressHexChars {
		return "", false
	}
	if _, err := hex.DecodeString(a); err != nil {
		return "", false
	}
	return a, true
}
