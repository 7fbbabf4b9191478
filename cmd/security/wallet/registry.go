package wallet

import (
	"fmt"
	"strings"
	"sync"
)

// Verifier checks a signature over a canonical message for an identity.
type Verifier interface {
	Verify(identity, message, signature string) bool
}

// Scheme is one wallet signature scheme.
type Scheme interface {
	// Name is the stable scheme name ("ed25519", "secp256k1").
	Name() string

	// Accepts reports whether identity is well-formed for this scheme.
	Accepts(identity string) bool

	// Verify reports whether signature is valid over message for identity.
	Verify(identity string, message []byte, signature string) bool

	// Generate returns a fresh signer for this scheme.
	Generate() (Signer, error)

	// ParseSigner loads a signer from its exported secret.
	ParseSigner(secret string) (Signer, error)
}

// Signer produces signatures for one identity.
// It exists for clients, tooling and tests; the server only verifies.
type Signer interface {
	Identity() string
	Sign(message string) (string, error)
	// ExportSecret returns the secret in the form accepted by Scheme.ParseSigner.
	ExportSecret() string
}

// Registry dispatches verification to the first scheme that accepts an identity.
// There is no global registry; callers build one and pass it where needed.
type Registry struct {
	mu      sync.RWMutex
	schemes []Scheme
}

// NewRegistry returns a Registry with the given schemes in priority order.
func NewRegistry(schemes ...Scheme) *Registry {
	r := &Registry{}
	for _, s := range schemes {
		r.Register(s)
	}
	return r
}

// DefaultRegistry returns a Registry with every built-in scheme.
func DefaultRegistry() *Registry {
	return NewRegistry(EthereumScheme{}, Ed25519Scheme{})
}

// Register appends a scheme. Nil schemes are ignored.
func (r *Registry) Register(s Scheme) {
	if s == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemes = append(r.schemes, s)
}

// SchemeFor returns the scheme that accepts identity.
func (r *Registry) SchemeFor(identity string) (Scheme, error) {
	identity = strings.TrimSpace(identity)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.schemes {
		if s.Accepts(identity) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownIdentity, identity)
}

// Scheme returns a registered scheme by name.
func (r *Registry) Scheme(name string) (Scheme, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.schemes {
		if strings.EqualFold(s.Name(), strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, name)
}

// Verify implements Verifier.
func (r *Registry) Verify(identity, message, signature string) bool {
	if identity == "" || signature == "" {
		return false
	}
	s, err := r.SchemeFor(identity)
	if err != nil {
		return false
	}
	return s.Verify(identity, []byte(message), signature)
}

// CanonicalIdentity maps equivalent spellings of one identity to a single key.
// Ethereum addresses are case-insensitive and become lowercase "0x..."; other
// identities are case-sensitive and only trimmed. Canonical messages are built
// over the canonical form.
func CanonicalIdentity(identity string) string {
	identity = strings.TrimSpace(identity)
	if a, ok := parseEthAddress(identity); ok {
		return "0x" + a
	}
	return identity
}
