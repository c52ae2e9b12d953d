// Package session implements short-lived, scope-bound bearer tokens
// (spec.md section 4.E), generalized from the teacher's one-shot
// AuditLogEntry HMAC pattern and built on the session subkey
// internal/cryptoengine derives via HKDF.
package session

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/authy/authy/internal/apperr"
	"github.com/authy/authy/internal/vaultstore"
)

const tokenPrefix = "authy_v1."

const (
	tokenRandomLength = 32
	saltLength        = 16
)

// Create mints a new session bound to scope, valid for ttl, and returns
// the one-time token string alongside the record to persist. The raw
// token is never stored; only its HMAC is.
func Create(scope string, ttl time.Duration, label string, runOnly bool, sessionKey []byte) (string, *vaultstore.SessionRecord, error) {
	r := make([]byte, tokenRandomLength)
	if _, err := rand.Read(r); err != nil {
		return "", nil, apperr.Wrap(apperr.Io, "generate session token bytes", err)
	}
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", nil, apperr.Wrap(apperr.Io, "generate session salt", err)
	}

	now := time.Now().UTC()
	rec := &vaultstore.SessionRecord{
		ID:        newSessionID(),
		Scope:     scope,
		TokenHMAC: computeHMAC(sessionKey, r, salt),
		Salt:      salt,
		Label:     label,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		RunOnly:   runOnly,
	}

	token := tokenPrefix + base64.RawURLEncoding.EncodeToString(r)
	return token, rec, nil
}

// newSessionID derives a 6+ character URL-safe session identifier from a
// fresh UUID, per spec.md section 4.E.
func newSessionID() string {
	id := uuid.New()
	encoded := base64.RawURLEncoding.EncodeToString(id[:])
	if len(encoded) > 8 {
		encoded = encoded[:8]
	}
	return encoded
}

func computeHMAC(sessionKey, r, salt []byte) []byte {
	mac := hmac.New(sha256.New, sessionKey)
	mac.Write(r)
	mac.Write(salt)
	return mac.Sum(nil)
}

// Matches reports whether token's HMAC matches rec, independent of
// revocation or expiry. Since each record's HMAC is salted independently,
// at most one record in a vault can ever match a given token.
func Matches(rec *vaultstore.SessionRecord, token string, sessionKey []byte) bool {
	r, err := decodeToken(token)
	if err != nil {
		return false
	}
	expected := computeHMAC(sessionKey, r, rec.Salt)
	return hmac.Equal(expected, rec.TokenHMAC)
}

// Validate checks token against rec under sessionKey, in the order spec.md
// section 4.E requires: signature match, then revocation, then expiry.
func Validate(rec *vaultstore.SessionRecord, token string, sessionKey []byte) error {
	r, err := decodeToken(token)
	if err != nil {
		return apperr.Wrap(apperr.InvalidToken, "malformed session token", err)
	}

	expected := computeHMAC(sessionKey, r, rec.Salt)
	if !hmac.Equal(expected, rec.TokenHMAC) {
		return apperr.New(apperr.InvalidToken, "session token does not match record")
	}
	if rec.Revoked {
		return apperr.New(apperr.TokenRevoked, "session has been revoked")
	}
	if !time.Now().UTC().Before(rec.ExpiresAt) {
		return apperr.New(apperr.TokenExpired, "session has expired")
	}
	return nil
}

func decodeToken(token string) ([]byte, error) {
	if !strings.HasPrefix(token, tokenPrefix) {
		return nil, apperr.New(apperr.InvalidToken, "unrecognized token prefix")
	}
	r, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(token, tokenPrefix))
	if err != nil {
		return nil, err
	}
	if len(r) != tokenRandomLength {
		return nil, apperr.New(apperr.InvalidToken, "unexpected token length")
	}
	return r, nil
}

// Revoke marks rec revoked.
func Revoke(rec *vaultstore.SessionRecord) {
	rec.Revoked = true
}

// RevokeAll marks every session in recs revoked.
func RevokeAll(recs []*vaultstore.SessionRecord) {
	for _, rec := range recs {
		rec.Revoked = true
	}
}
