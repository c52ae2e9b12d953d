package cryptoengine

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDF info strings, fixed per spec.md section 4.A so vaults are portable
// across implementations of this codebase.
const (
	SessionKeyInfo = "authy.session.v1"
	AuditKeyInfo   = "authy.audit.v1"
)

// DeriveSubkey derives a 32-byte subkey from master key material using
// HKDF-SHA256 with the given info string.
func DeriveSubkey(masterKeyMaterial []byte, info string) ([]byte, error) {
	r := hkdf.New(sha256.New, masterKeyMaterial, nil, []byte(info))
	out := make([]byte, KeyLength)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("HKDF derivation failed: %w", err)
	}
	return out, nil
}

// DeriveSessionKey derives the session-token HMAC key.
func DeriveSessionKey(masterKeyMaterial []byte) ([]byte, error) {
	return DeriveSubkey(masterKeyMaterial, SessionKeyInfo)
}

// DeriveAuditKey derives the audit-chain HMAC key.
func DeriveAuditKey(masterKeyMaterial []byte) ([]byte, error) {
	return DeriveSubkey(masterKeyMaterial, AuditKeyInfo)
}
