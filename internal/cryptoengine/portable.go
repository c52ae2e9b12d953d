package cryptoengine

import (
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

const (
	portableAuditSaltLength = 16
	portableAuditIterations = 100000
)

var ErrInvalidSaltLength = errors.New("invalid audit salt length")

// DerivePortableAuditKey derives an audit HMAC key from a passphrase and
// salt using PBKDF2-SHA256, generalized from the teacher's
// security.DeriveAuditKey. Nothing in this repository calls it: `audit
// verify` has no key-file option and always verifies with the HKDF
// "authy.audit.v1" subkey derived from the vault's own
// master_key_material (DeriveAuditKey in subkeys.go).
func DerivePortableAuditKey(passphrase, salt []byte) ([]byte, error) {
	if len(salt) != portableAuditSaltLength {
		return nil, ErrInvalidSaltLength
	}
	return pbkdf2.Key(passphrase, salt, portableAuditIterations, KeyLength, sha256.New), nil
}
