// Package wallet verifies wallet-style signatures over canonical protocol messages.
//
// An identity is the public form of a wallet key. Its shape selects the scheme:
//   - base58 of a 32-byte Ed25519 public key (Solana-style wallets)
//   - "0x" followed by 40 hex digits (Ethereum address, EIP-191 personal_sign)
//
// Verification never returns an error to callers of Verify: malformed
// identities or signatures simply do not verify.
package wallet
