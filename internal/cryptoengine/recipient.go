package cryptoengine

// Recipient is a write-time target for a new vault envelope: either a
// passphrase or the public half of an X25519 identity. Contrast with
// VaultKey, which carries the secret half used to unlock an existing
// envelope.
type Recipient struct {
	Kind           VaultKeyKind
	Passphrase     []byte
	IdentityPublic []byte
}
