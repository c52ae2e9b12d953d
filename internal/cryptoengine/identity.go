package cryptoengine

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// ErrInvalidIdentity is returned when an identity's private scalar is the
// wrong length or otherwise malformed.
var ErrInvalidIdentity = errors.New("invalid identity key")

const recipientHKDFInfo = "authy.recipient.v1"

// IdentityStanza is the public-key recipient stanza: an ephemeral X25519
// public key plus the DEK wrapped under the ECDH shared secret.
type IdentityStanza struct {
	EphemeralPublic []byte // 32 bytes
	Wrapped         WrappedKey
}

// GenerateIdentity returns a new X25519 (private, public) keypair for use
// as a vault recipient identity file.
func GenerateIdentity() (priv, pub []byte, err error) {
	priv = make([]byte, curve25519.ScalarSize)
	if _, err := rand.Read(priv); err != nil {
		return nil, nil, fmt.Errorf("failed to generate identity: %w", err)
	}
	pub, err = curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to derive identity public key: %w", err)
	}
	return priv, pub, nil
}

// WrapForIdentity wraps dek for the recipient identified by pub (a 32-byte
// X25519 public key), generating a fresh ephemeral keypair per call.
func WrapForIdentity(dek, pub []byte) (IdentityStanza, error) {
	if len(pub) != curve25519.PointSize {
		return IdentityStanza{}, ErrInvalidIdentity
	}
	ephPriv := make([]byte, curve25519.ScalarSize)
	if _, err := rand.Read(ephPriv); err != nil {
		return IdentityStanza{}, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	ephPub, err := curve25519.X25519(ephPriv, curve25519.Basepoint)
	if err != nil {
		return IdentityStanza{}, fmt.Errorf("failed to derive ephemeral public key: %w", err)
	}
	shared, err := curve25519.X25519(ephPriv, pub)
	if err != nil {
		return IdentityStanza{}, fmt.Errorf("failed ECDH: %w", err)
	}
	defer ClearBytes(shared)

	kek, err := hkdfKey(shared, recipientHKDFInfo)
	if err != nil {
		return IdentityStanza{}, err
	}
	defer ClearBytes(kek)

	wrapped, err := wrapChaCha(dek, kek)
	if err != nil {
		return IdentityStanza{}, err
	}
	return IdentityStanza{EphemeralPublic: ephPub, Wrapped: wrapped}, nil
}

// UnwrapForIdentity recovers the DEK from a stanza using the identity's
// private scalar.
func UnwrapForIdentity(stanza IdentityStanza, priv []byte) ([]byte, error) {
	if len(priv) != curve25519.ScalarSize {
		return nil, ErrInvalidIdentity
	}
	shared, err := curve25519.X25519(priv, stanza.EphemeralPublic)
	if err != nil {
		return nil, fmt.Errorf("failed ECDH: %w", err)
	}
	defer ClearBytes(shared)

	kek, err := hkdfKey(shared, recipientHKDFInfo)
	if err != nil {
		return nil, err
	}
	defer ClearBytes(kek)

	return unwrapChaCha(stanza.Wrapped, kek)
}

func hkdfKey(secret []byte, info string) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, nil, []byte(info))
	out := make([]byte, KeyLength)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("HKDF derivation failed: %w", err)
	}
	return out, nil
}

func wrapChaCha(dek, kek []byte) (WrappedKey, error) {
	aead, err := chacha20poly1305.New(kek)
	if err != nil {
		return WrappedKey{}, ErrEncryptionFailed
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return WrappedKey{}, ErrRandomGenerationFailed
	}
	ciphertext := aead.Seal(nil, nonce, dek, nil)
	return WrappedKey{Ciphertext: ciphertext, Nonce: nonce}, nil
}

func unwrapChaCha(wrapped WrappedKey, kek []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(kek)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	dek, err := aead.Open(nil, wrapped.Nonce, wrapped.Ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return dek, nil
}
