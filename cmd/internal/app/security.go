package app

import (
	"errors"
	"fmt"
	"strings"

	"playgate/cmd/security/token"
)

// ValidateSecurityConfig enforces the server's security policy at startup.
// Fail-fast: a half-configured TLS pair or a weak entropy size must not silently degrade.
func ValidateSecurityConfig(cfg Config) error {
	cert := strings.TrimSpace(cfg.TLSCertFile)
	key := strings.TrimSpace(cfg.TLSKeyFile)
	if (cert == "") != (key == "") {
		return errors.New("security policy: PLAYGATE_TLS_CERT_FILE and PLAYGATE_TLS_KEY_FILE must be set together")
	}

	if _, err := token.NewRandGenerator(cfg.EntropyBytes); err != nil {
		return fmt.Errorf("security policy: PLAYGATE_ENTROPY_BYTES must be within [%d, %d]: %w",
			token.MinEntropyBytes, token.MaxEntropyBytes, err)
	}

	for _, o := range cfg.WSAllowedOrigins {
		if strings.TrimSpace(o) == "*" && !cfg.WSOriginRequired {
			return errors.New("security policy: wildcard websocket origin requires PLAYGATE_WS_ORIGIN_REQUIRED=true")
		}
	}

	if cfg.MaxBodyBytes <= 0 {
		return errors.New("security policy: PLAYGATE_MAX_BODY_BYTES must be > 0")
	}
	return nil
}

// TLSEnabled reports whether both TLS files are configured.
func (c Config) TLSEnabled() bool {
	return strings.TrimSpace(c.TLSCertFile) != "" && strings.TrimSpace(c.TLSKeyFile) != ""
}
