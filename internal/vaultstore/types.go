// Package vaultstore implements the vault aggregate (spec.md section 3)
// and its encrypted, atomically-replaced on-disk persistence (spec.md
// section 4.B), generalized from the teacher's internal/storage and
// internal/vault packages.
package vaultstore

import (
	"regexp"
	"time"

	"github.com/authy/authy/internal/cryptoengine"
	"github.com/authy/authy/internal/secret"
)

// Schema version for the plaintext vault body. Implementations must
// refuse unknown versions rather than silently upgrading or downgrading.
const CurrentVersion = 1

var nameRE = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// ValidName reports whether name is a legal secret or policy name.
func ValidName(name string) bool {
	return nameRE.MatchString(name)
}

// SecretEntry is a single stored secret (spec.md section 3).
type SecretEntry struct {
	Value      secret.Bytes
	Version    int
	Tags       map[string]struct{}
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// Policy is a named glob allow/deny scope (spec.md section 3).
type Policy struct {
	Name        string
	Allow       []string
	Deny        []string
	Description string
	RunOnly     bool
}

// SessionRecord is a server-side record binding a token's HMAC to a scope
// and expiry (spec.md section 3).
type SessionRecord struct {
	ID        string
	Scope     string
	TokenHMAC []byte
	Salt      []byte
	Label     string
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
	RunOnly   bool
}

// EffectiveRunOnly is the logical OR of the session's own run-only flag
// and the policy's, per spec.md section 3.
func (s *SessionRecord) EffectiveRunOnly(p *Policy) bool {
	if p == nil {
		return s.RunOnly
	}
	return s.RunOnly || p.RunOnly
}

// Vault is the root aggregate: every secret, policy, and session for one
// operator (spec.md section 3). Map iteration order is never relied upon
// for the on-disk format or for caller-visible ordering; secretOrder
// preserves insertion order for stable iteration the way the teacher's
// UsageRecord map callers expect deterministic output.
type Vault struct {
	Version           int
	Secrets           map[string]*SecretEntry
	secretOrder       []string
	Policies          map[string]*Policy
	policyOrder       []string
	Sessions          []*SessionRecord
	CreatedAt         time.Time
	ModifiedAt        time.Time
	MasterKeyMaterial secret.Bytes

	// recipients and dek are populated by Store on Load/Init/Rekey and
	// are not part of the persisted body; Save reuses them so a plain
	// content edit never touches who can unlock the vault.
	recipients *cryptoengine.Envelope
	dek        []byte
}

// NewEmpty constructs an empty vault with fresh master key material.
func NewEmpty(masterKeyMaterial []byte) *Vault {
	now := time.Now().UTC()
	return &Vault{
		Version:           CurrentVersion,
		Secrets:           make(map[string]*SecretEntry),
		Policies:          make(map[string]*Policy),
		Sessions:          nil,
		CreatedAt:         now,
		ModifiedAt:        now,
		MasterKeyMaterial: secret.New(masterKeyMaterial),
	}
}

// SecretNames returns secret names in stable insertion order.
func (v *Vault) SecretNames() []string {
	out := make([]string, len(v.secretOrder))
	copy(out, v.secretOrder)
	return out
}

// PolicyNames returns policy names in stable insertion order.
func (v *Vault) PolicyNames() []string {
	out := make([]string, len(v.policyOrder))
	copy(out, v.policyOrder)
	return out
}

func (v *Vault) touch() {
	v.ModifiedAt = time.Now().UTC()
}

func (v *Vault) rememberSecretName(name string) {
	for _, n := range v.secretOrder {
		if n == name {
			return
		}
	}
	v.secretOrder = append(v.secretOrder, name)
}

func (v *Vault) forgetSecretName(name string) {
	for i, n := range v.secretOrder {
		if n == name {
			v.secretOrder = append(v.secretOrder[:i], v.secretOrder[i+1:]...)
			return
		}
	}
}

func (v *Vault) rememberPolicyName(name string) {
	for _, n := range v.policyOrder {
		if n == name {
			return
		}
	}
	v.policyOrder = append(v.policyOrder, name)
}

func (v *Vault) forgetPolicyName(name string) {
	for i, n := range v.policyOrder {
		if n == name {
			v.policyOrder = append(v.policyOrder[:i], v.policyOrder[i+1:]...)
			return
		}
	}
}
