package vaultstore

import (
	"time"

	"github.com/authy/authy/internal/apperr"
	"github.com/authy/authy/internal/secret"
)

// PutSecret stores or overwrites a secret, bumping Version when the name
// already exists (spec.md section 3: rotation bumps version, it never
// resets it).
func (v *Vault) PutSecret(name string, value []byte, tags []string) (*SecretEntry, error) {
	if !ValidName(name) {
		return nil, apperr.Wrap(apperr.Serialization, "invalid secret name", ErrInvalidName)
	}
	now := time.Now().UTC()
	version := 1
	if existing, ok := v.Secrets[name]; ok {
		existing.Value.Release()
		version = existing.Version + 1
	}

	tagSet := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		tagSet[t] = struct{}{}
	}

	entry := &SecretEntry{
		Value:      secret.Clone(value),
		Version:    version,
		Tags:       tagSet,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	if existing, ok := v.Secrets[name]; ok {
		entry.CreatedAt = existing.CreatedAt
	}

	v.Secrets[name] = entry
	v.rememberSecretName(name)
	v.touch()
	return entry, nil
}

// GetSecret returns the live entry for name, or ErrSecretNotFound.
func (v *Vault) GetSecret(name string) (*SecretEntry, error) {
	e, ok := v.Secrets[name]
	if !ok {
		return nil, apperr.Wrap(apperr.NotFound, "secret not found", ErrSecretNotFound)
	}
	return e, nil
}

// RemoveSecret deletes a secret, zeroizing its value.
func (v *Vault) RemoveSecret(name string) error {
	e, ok := v.Secrets[name]
	if !ok {
		return apperr.Wrap(apperr.NotFound, "secret not found", ErrSecretNotFound)
	}
	e.Value.Release()
	delete(v.Secrets, name)
	v.forgetSecretName(name)
	v.touch()
	return nil
}

// RotateSecret replaces a secret's value in place, bumping its version and
// leaving CreatedAt untouched (spec.md section 3: rotation is monotone and
// never decreases version across the vault's lifetime).
func (v *Vault) RotateSecret(name string, newValue []byte) (*SecretEntry, error) {
	e, ok := v.Secrets[name]
	if !ok {
		return nil, apperr.Wrap(apperr.NotFound, "secret not found", ErrSecretNotFound)
	}
	e.Value.Release()
	e.Value = secret.Clone(newValue)
	e.Version++
	e.ModifiedAt = time.Now().UTC()
	v.touch()
	return e, nil
}

// PutPolicy stores or overwrites a named policy.
func (v *Vault) PutPolicy(p *Policy) error {
	if !ValidName(p.Name) {
		return apperr.Wrap(apperr.Serialization, "invalid policy name", ErrInvalidName)
	}
	v.Policies[p.Name] = p
	v.rememberPolicyName(p.Name)
	v.touch()
	return nil
}

// GetPolicy returns the named policy, or ErrPolicyNotFound.
func (v *Vault) GetPolicy(name string) (*Policy, error) {
	p, ok := v.Policies[name]
	if !ok {
		return nil, apperr.Wrap(apperr.NotFound, "policy not found", ErrPolicyNotFound)
	}
	return p, nil
}

// RemovePolicy deletes a named policy.
func (v *Vault) RemovePolicy(name string) error {
	if _, ok := v.Policies[name]; !ok {
		return apperr.Wrap(apperr.NotFound, "policy not found", ErrPolicyNotFound)
	}
	delete(v.Policies, name)
	v.forgetPolicyName(name)
	v.touch()
	return nil
}

// AddSession appends a new session record.
func (v *Vault) AddSession(rec *SessionRecord) {
	v.Sessions = append(v.Sessions, rec)
	v.touch()
}

// FindSession returns the session with the given ID, or nil.
func (v *Vault) FindSession(id string) *SessionRecord {
	for _, s := range v.Sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// RevokeSession marks a session revoked by ID. Returns false if no such
// session exists.
func (v *Vault) RevokeSession(id string) bool {
	s := v.FindSession(id)
	if s == nil {
		return false
	}
	s.Revoked = true
	v.touch()
	return true
}
