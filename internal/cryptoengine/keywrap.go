package cryptoengine

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
)

// WrappedKey is an AEAD-encrypted key: a 32-byte key plus its 16-byte
// authentication tag, alongside the nonce used to seal it. WrapKey seals
// it with AES-256-GCM; identity stanzas seal it with ChaCha20-Poly1305.
// Generalized from the teacher's v2 vault key-wrapping format
// (internal/crypto/keywrap.go) to wrap a DEK under any 32-byte KEK,
// regardless of how that KEK was derived.
type WrappedKey struct {
	Ciphertext []byte
	Nonce      []byte
}

var (
	ErrRandomGenerationFailed = errors.New("failed to generate random bytes")
	ErrEncryptionFailed       = errors.New("key wrap encryption failed")
)

// WrapKey encrypts dek under kek.
func WrapKey(dek, kek []byte) (WrappedKey, error) {
	if len(dek) != KeyLength || len(kek) != KeyLength {
		return WrappedKey{}, ErrInvalidKeyLength
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return WrappedKey{}, ErrEncryptionFailed
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return WrappedKey{}, ErrEncryptionFailed
	}
	nonce := make([]byte, NonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return WrappedKey{}, ErrRandomGenerationFailed
	}
	ciphertext := gcm.Seal(nil, nonce, dek, nil)
	return WrappedKey{Ciphertext: ciphertext, Nonce: nonce}, nil
}

// UnwrapKey decrypts a WrappedKey under kek.
func UnwrapKey(wrapped WrappedKey, kek []byte) ([]byte, error) {
	if len(kek) != KeyLength {
		return nil, ErrInvalidKeyLength
	}
	if len(wrapped.Ciphertext) != KeyLength+16 {
		return nil, ErrInvalidCiphertext
	}
	if len(wrapped.Nonce) != NonceLength {
		return nil, ErrInvalidCiphertext
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	dek, err := gcm.Open(nil, wrapped.Nonce, wrapped.Ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return dek, nil
}
