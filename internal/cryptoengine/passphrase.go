package cryptoengine

import (
	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for passphrase-derived KEKs: one pass over 64 MiB
// with 4 lanes, the values the teacher's recovery-phrase KDF already used
// (internal/recovery/constants.go: DefaultTime/DefaultMemory/DefaultThreads),
// now the vault's primary passphrase KDF rather than a recovery-only path.
// This is lighter than either RFC 9106 recommended option (2 GiB with one
// pass, or 64 MiB with three passes).
const (
	ArgonTime    uint32 = 1
	ArgonMemory  uint32 = 65536 // 64 MB
	ArgonThreads uint8  = 4
)

// DeriveKEKFromPassphrase derives a 32-byte key-encryption-key from a
// passphrase and salt using Argon2id, satisfying spec.md's requirement for
// a memory-hard passphrase KDF.
func DeriveKEKFromPassphrase(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, ArgonTime, ArgonMemory, ArgonThreads, KeyLength)
}
