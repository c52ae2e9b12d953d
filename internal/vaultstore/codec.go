package vaultstore

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/authy/authy/internal/secret"
)

// wireVault is the plaintext JSON shape persisted inside the envelope body.
// Field names are part of the on-disk format and must not change across a
// schema version without a migration.
type wireVault struct {
	Version           int               `json:"version"`
	Secrets           []wireSecret      `json:"secrets"`
	Policies          []wirePolicy      `json:"policies"`
	Sessions          []wireSession     `json:"sessions"`
	CreatedAt         time.Time         `json:"created_at"`
	ModifiedAt        time.Time         `json:"modified_at"`
	MasterKeyMaterial []byte            `json:"master_key_material"`
}

type wireSecret struct {
	Name       string    `json:"name"`
	Value      []byte    `json:"value"`
	Version    int       `json:"version"`
	Tags       []string  `json:"tags,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

type wirePolicy struct {
	Name        string   `json:"name"`
	Allow       []string `json:"allow,omitempty"`
	Deny        []string `json:"deny,omitempty"`
	Description string   `json:"description,omitempty"`
	RunOnly     bool     `json:"run_only,omitempty"`
}

type wireSession struct {
	ID        string    `json:"id"`
	Scope     string    `json:"scope"`
	TokenHMAC []byte    `json:"token_hmac"`
	Salt      []byte    `json:"salt"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked,omitempty"`
	RunOnly   bool      `json:"run_only,omitempty"`
}

func marshalVault(v *Vault) ([]byte, error) {
	w := wireVault{
		Version:           v.Version,
		CreatedAt:         v.CreatedAt,
		ModifiedAt:        v.ModifiedAt,
		MasterKeyMaterial: v.MasterKeyMaterial.Bytes(),
	}
	for _, name := range v.secretOrder {
		e := v.Secrets[name]
		tags := make([]string, 0, len(e.Tags))
		for t := range e.Tags {
			tags = append(tags, t)
		}
		sort.Strings(tags)
		w.Secrets = append(w.Secrets, wireSecret{
			Name:       name,
			Value:      e.Value.Bytes(),
			Version:    e.Version,
			Tags:       tags,
			CreatedAt:  e.CreatedAt,
			ModifiedAt: e.ModifiedAt,
		})
	}
	for _, name := range v.policyOrder {
		p := v.Policies[name]
		w.Policies = append(w.Policies, wirePolicy{
			Name:        name,
			Allow:       p.Allow,
			Deny:        p.Deny,
			Description: p.Description,
			RunOnly:     p.RunOnly,
		})
	}
	for _, s := range v.Sessions {
		w.Sessions = append(w.Sessions, wireSession{
			ID:        s.ID,
			Scope:     s.Scope,
			TokenHMAC: s.TokenHMAC,
			Salt:      s.Salt,
			Label:     s.Label,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
			Revoked:   s.Revoked,
			RunOnly:   s.RunOnly,
		})
	}
	return json.Marshal(w)
}

func unmarshalVault(data []byte) (*Vault, error) {
	var w wireVault
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode vault body: %w", err)
	}
	if w.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported vault schema version %d", w.Version)
	}

	v := &Vault{
		Version:           w.Version,
		Secrets:           make(map[string]*SecretEntry, len(w.Secrets)),
		Policies:          make(map[string]*Policy, len(w.Policies)),
		CreatedAt:         w.CreatedAt,
		ModifiedAt:        w.ModifiedAt,
		MasterKeyMaterial: secret.Clone(w.MasterKeyMaterial),
	}
	for _, e := range w.Secrets {
		tags := make(map[string]struct{}, len(e.Tags))
		for _, t := range e.Tags {
			tags[t] = struct{}{}
		}
		v.Secrets[e.Name] = &SecretEntry{
			Value:      secret.Clone(e.Value),
			Version:    e.Version,
			Tags:       tags,
			CreatedAt:  e.CreatedAt,
			ModifiedAt: e.ModifiedAt,
		}
		v.rememberSecretName(e.Name)
	}
	for _, p := range w.Policies {
		v.Policies[p.Name] = &Policy{
			Name:        p.Name,
			Allow:       p.Allow,
			Deny:        p.Deny,
			Description: p.Description,
			RunOnly:     p.RunOnly,
		}
		v.rememberPolicyName(p.Name)
	}
	for _, s := range w.Sessions {
		v.Sessions = append(v.Sessions, &SessionRecord{
			ID:        s.ID,
			Scope:     s.Scope,
			TokenHMAC: s.TokenHMAC,
			Salt:      s.Salt,
			Label:     s.Label,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
			Revoked:   s.Revoked,
			RunOnly:   s.RunOnly,
		})
	}
	return v, nil
}
