package wallet

import (
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/mr-tron/base58"
)

// decodeSignature accepts hex (optionally 0x-prefixed), base58 or base64 and
// returns the raw bytes only when they have exactly wantLen bytes.
func decodeSignature(sig string, wantLen int) ([]byte, bool) {
	sig = strings.TrimSpace(sig)
	if sig == "" {
		return nil, false
	}

	h := strings.TrimPrefix(strings.TrimPrefix(sig, "0x"), "0X")
	if len(h) == 2*wantLen {
		if b, err := hex.DecodeString(h); err == nil {
			return b, true
		}
	}

	if b, err := base58.Decode(sig); err == nil && len(b) == wantLen {
		return b, true
	}

	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(sig); err == nil && len(b) == wantLen {
			return b, true
		}
	}

	return nil, false
}
