// Package facade is the entry point every caller (the cmd/ CLI, and any
// future TUI/MCP/bindings surface, out of scope here) goes through to
// load, change, or save a vault. It is not the only importer of
// internal/vaultstore and internal/session: cmd/ uses them directly for
// home-path resolution, the Policy type, and TTL parsing, and
// internal/authresolve uses them to validate session tokens.
package facade

import (
	"context"
	"fmt"
	"time"

	"github.com/authy/authy/internal/apperr"
	"github.com/authy/authy/internal/audit"
	"github.com/authy/authy/internal/authresolve"
	"github.com/authy/authy/internal/cryptoengine"
	"github.com/authy/authy/internal/dispatch"
	"github.com/authy/authy/internal/policy"
	"github.com/authy/authy/internal/session"
	"github.com/authy/authy/internal/vaultstore"
)

// Service is the programmatic facade over one operator's vault, audit
// log, and derived subkeys. Methods that read secrets, test a policy, or
// change the vault append one audit entry (none when the final Save
// fails); AuditEntries, VerifyAuditChain, ListPolicies, and SessionList
// append none, and Run appends BuildEnvMap's secret.list entry before its
// own subprocess.run entry. Failures are returned as *apperr.Error.
type Service struct {
	store      *vaultstore.Store
	log        *audit.Log
	vault      *vaultstore.Vault
	ctx        *authresolve.AuthContext
	sessionKey []byte
	auditKey   []byte
}

// Open loads the vault at home under key, derives its session/audit
// subkeys, resolves the AuthContext for token (which may narrow scope),
// and returns a ready-to-use Service. keyfilePath is only used to build
// the "keyfile:<path>" actor string when key.Kind is an identity key.
func Open(home string, key cryptoengine.VaultKey, keyfilePath, token string) (*Service, error) {
	store := vaultstore.NewStore(vaultstore.VaultPath(home), vaultstore.NewOSFileSystem())
	v, err := store.Load(key)
	if err != nil {
		return nil, err
	}

	sessionKey, err := cryptoengine.DeriveSessionKey(v.MasterKeyMaterial.Bytes())
	if err != nil {
		return nil, apperr.Wrap(apperr.Io, "derive session key", err)
	}
	auditKey, err := cryptoengine.DeriveAuditKey(v.MasterKeyMaterial.Bytes())
	if err != nil {
		return nil, apperr.Wrap(apperr.Io, "derive audit key", err)
	}

	ctx, err := authresolve.BuildContext(key, keyfilePath, token, v, sessionKey)
	if err != nil {
		return nil, err
	}

	return &Service{
		store:      store,
		log:        audit.Open(vaultstore.AuditLogPath(home)),
		vault:      v,
		ctx:        ctx,
		sessionKey: sessionKey,
		auditKey:   auditKey,
	}, nil
}

// Init creates a brand new vault at home for the given recipients and
// returns a Service bound to it, authenticated as "master" or
// "keyfile:<path>".
func Init(home string, recipients []cryptoengine.Recipient, keyfilePath string) (*Service, error) {
	store := vaultstore.NewStore(vaultstore.VaultPath(home), vaultstore.NewOSFileSystem())
	v, err := store.Init(recipients)
	if err != nil {
		return nil, err
	}

	sessionKey, err := cryptoengine.DeriveSessionKey(v.MasterKeyMaterial.Bytes())
	if err != nil {
		return nil, apperr.Wrap(apperr.Io, "derive session key", err)
	}
	auditKey, err := cryptoengine.DeriveAuditKey(v.MasterKeyMaterial.Bytes())
	if err != nil {
		return nil, apperr.Wrap(apperr.Io, "derive audit key", err)
	}

	actor := "master"
	if keyfilePath != "" {
		actor = "keyfile:" + keyfilePath
	}

	svc := &Service{
		store:      store,
		log:        audit.Open(vaultstore.AuditLogPath(home)),
		vault:      v,
		ctx:        &authresolve.AuthContext{Actor: actor, Scope: "*"},
		sessionKey: sessionKey,
		auditKey:   auditKey,
	}
	svc.append("vault.init", "", audit.OutcomeAllowed, "")
	return svc, nil
}

func (s *Service) append(operation, secretName, outcome, detail string) {
	_ = s.log.Append(s.auditKey, operation, secretName, s.ctx.Actor, outcome, detail)
}

// scopePolicy resolves the compiled policy narrowing this service's
// AuthContext, or nil when the caller is unscoped (master/keyfile).
func (s *Service) scopePolicy() (*policy.Compiled, error) {
	if !s.ctx.IsToken {
		return nil, nil
	}
	p, err := s.vault.GetPolicy(s.ctx.Scope)
	if err != nil {
		return nil, err
	}
	compiled, err := policy.Compile(p)
	if err != nil {
		return nil, apperr.Wrap(apperr.Serialization, "compile policy "+p.Name, err)
	}
	return compiled, nil
}

func (s *Service) canRead(name string) (bool, error) {
	if s.ctx.RunOnly {
		return false, nil
	}
	p, err := s.scopePolicy()
	if err != nil {
		return false, err
	}
	if p == nil {
		return true, nil
	}
	return p.CanRead(name), nil
}

// requireNotToken implements the mutation authorization invariant:
// every mutating method calls this first.
func (s *Service) requireNotToken() error {
	return s.ctx.RequireNotToken()
}

// Store creates or overwrites a secret.
func (s *Service) Store(name string, value []byte, tags []string) (*vaultstore.SecretEntry, error) {
	if err := s.requireNotToken(); err != nil {
		return nil, err
	}
	entry, err := s.vault.PutSecret(name, value, tags)
	if err != nil {
		s.append("secret.write", name, audit.OutcomeDenied, err.Error())
		return nil, err
	}
	if err := s.store.Save(s.vault); err != nil {
		return nil, err
	}
	s.append("secret.write", name, audit.OutcomeAllowed, "")
	return entry, nil
}

// Get returns a secret's decrypted value, enforcing scope if the caller
// is token-authenticated. The audit entry is appended before the value is
// returned, even for a denied read (spec.md section 5).
func (s *Service) Get(name string) ([]byte, error) {
	allowed, err := s.canRead(name)
	if err != nil {
		s.append("secret.read", name, audit.OutcomeDenied, err.Error())
		return nil, err
	}
	if !allowed {
		s.append("secret.read", name, audit.OutcomeDenied, "policy denied")
		return nil, apperr.New(apperr.AccessDenied, "policy does not permit reading this secret")
	}

	entry, err := s.vault.GetSecret(name)
	if err != nil {
		s.append("secret.read", name, audit.OutcomeDenied, err.Error())
		return nil, err
	}
	s.append("secret.read", name, audit.OutcomeAllowed, "")
	return append([]byte(nil), entry.Value.Bytes()...), nil
}

// GetOrNone is Get without an error for a missing secret: (nil, false,
// nil) when the secret does not exist, (nil, false, err) for any other
// failure including a policy denial.
func (s *Service) GetOrNone(name string) ([]byte, bool, error) {
	value, err := s.Get(name)
	if err != nil {
		if ae, ok := apperr.As(err); ok && ae.Kind == apperr.NotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

// Remove deletes a secret.
func (s *Service) Remove(name string) error {
	if err := s.requireNotToken(); err != nil {
		return err
	}
	if err := s.vault.RemoveSecret(name); err != nil {
		s.append("secret.delete", name, audit.OutcomeDenied, err.Error())
		return err
	}
	if err := s.store.Save(s.vault); err != nil {
		return err
	}
	s.append("secret.delete", name, audit.OutcomeAllowed, "")
	return nil
}

// Rotate replaces a secret's value in place, bumping its version.
func (s *Service) Rotate(name string, newValue []byte) (*vaultstore.SecretEntry, error) {
	if err := s.requireNotToken(); err != nil {
		return nil, err
	}
	entry, err := s.vault.RotateSecret(name, newValue)
	if err != nil {
		s.append("secret.rotate", name, audit.OutcomeDenied, err.Error())
		return nil, err
	}
	if err := s.store.Save(s.vault); err != nil {
		return nil, err
	}
	s.append("secret.rotate", name, audit.OutcomeAllowed, "")
	return entry, nil
}

// List returns secret names visible to this service's scope.
func (s *Service) List() ([]string, error) {
	names := s.vault.SecretNames()
	p, err := s.scopePolicy()
	if err != nil {
		s.append("secret.list", "", audit.OutcomeDenied, err.Error())
		return nil, err
	}
	if p != nil {
		names = p.Filter(names)
	}
	s.append("secret.list", "", audit.OutcomeAllowed, "")
	return names, nil
}

// AuditEntries returns every entry in the audit log.
func (s *Service) AuditEntries() ([]audit.Entry, error) {
	return s.log.All()
}

// VerifyAuditChain recomputes the audit log's HMAC chain.
func (s *Service) VerifyAuditChain() (bool, uint64, error) {
	return audit.Verify(s.log.Path(), s.auditKey)
}

// TestPolicy reports whether the named policy would permit reading name.
func (s *Service) TestPolicy(policyName, name string) (bool, error) {
	p, err := s.vault.GetPolicy(policyName)
	if err != nil {
		s.append("policy.test", name, audit.OutcomeDenied, err.Error())
		return false, err
	}
	compiled, err := policy.Compile(p)
	if err != nil {
		wrapped := apperr.Wrap(apperr.Serialization, "compile policy "+policyName, err)
		s.append("policy.test", name, audit.OutcomeDenied, wrapped.Error())
		return false, wrapped
	}
	allowed := compiled.CanRead(name)
	outcome := audit.OutcomeDenied
	if allowed {
		outcome = audit.OutcomeAllowed
	}
	s.append("policy.test", name, outcome, "scope="+policyName)
	return allowed, nil
}

// CreatePolicy stores or overwrites a named policy.
func (s *Service) CreatePolicy(p *vaultstore.Policy) error {
	if err := s.requireNotToken(); err != nil {
		return err
	}
	if err := s.vault.PutPolicy(p); err != nil {
		s.append("policy.write", p.Name, audit.OutcomeDenied, err.Error())
		return err
	}
	if err := s.store.Save(s.vault); err != nil {
		return err
	}
	s.append("policy.write", p.Name, audit.OutcomeAllowed, "")
	return nil
}

// DeletePolicy removes a named policy. Sessions already bound to it are
// left untouched; they fail their next validation instead (spec.md
// section 3).
func (s *Service) DeletePolicy(name string) error {
	if err := s.requireNotToken(); err != nil {
		return err
	}
	if err := s.vault.RemovePolicy(name); err != nil {
		s.append("policy.delete", name, audit.OutcomeDenied, err.Error())
		return err
	}
	if err := s.store.Save(s.vault); err != nil {
		return err
	}
	s.append("policy.delete", name, audit.OutcomeAllowed, "")
	return nil
}

// ListPolicies returns every policy name in the vault.
func (s *Service) ListPolicies() []string {
	return s.vault.PolicyNames()
}

// SessionCreate issues a new scoped session token bound to policyName.
func (s *Service) SessionCreate(policyName string, ttl time.Duration, label string, runOnly bool) (string, *vaultstore.SessionRecord, error) {
	if err := s.requireNotToken(); err != nil {
		return "", nil, err
	}
	p, err := s.vault.GetPolicy(policyName)
	if err != nil {
		s.append("session.create", "", audit.OutcomeDenied, err.Error())
		return "", nil, err
	}

	token, rec, err := session.Create(policyName, ttl, label, runOnly || p.RunOnly, s.sessionKey)
	if err != nil {
		return "", nil, err
	}
	s.vault.AddSession(rec)
	if err := s.store.Save(s.vault); err != nil {
		return "", nil, err
	}
	s.append("session.create", "", audit.OutcomeAllowed, "scope="+policyName)
	return token, rec, nil
}

// SessionRevoke revokes a session by ID.
func (s *Service) SessionRevoke(id string) error {
	if err := s.requireNotToken(); err != nil {
		return err
	}
	if !s.vault.RevokeSession(id) {
		s.append("session.revoke", "", audit.OutcomeDenied, "unknown session "+id)
		return apperr.New(apperr.NotFound, "session not found")
	}
	if err := s.store.Save(s.vault); err != nil {
		return err
	}
	s.append("session.revoke", "", audit.OutcomeAllowed, "id="+id)
	return nil
}

// SessionList returns every session record in the vault.
func (s *Service) SessionList() []*vaultstore.SessionRecord {
	return s.vault.Sessions
}

// Rekey rotates the vault's data encryption key and master key material,
// invalidating every outstanding session token.
func (s *Service) Rekey(newRecipients []cryptoengine.Recipient) error {
	if err := s.requireNotToken(); err != nil {
		return err
	}
	if err := s.store.Rekey(s.vault, newRecipients); err != nil {
		s.append("vault.rekey", "", audit.OutcomeDenied, err.Error())
		return err
	}
	sessionKey, err := cryptoengine.DeriveSessionKey(s.vault.MasterKeyMaterial.Bytes())
	if err != nil {
		return apperr.Wrap(apperr.Io, "derive session key", err)
	}
	auditKey, err := cryptoengine.DeriveAuditKey(s.vault.MasterKeyMaterial.Bytes())
	if err != nil {
		return apperr.Wrap(apperr.Io, "derive audit key", err)
	}
	s.sessionKey = sessionKey
	s.auditKey = auditKey
	s.append("vault.rekey", "", audit.OutcomeAllowed, "")
	return nil
}

// BuildEnvMap returns the name/value pairs visible to this service's
// scope, for subprocess injection or plain environment export.
func (s *Service) BuildEnvMap() (map[string]string, error) {
	names, err := s.List()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(names))
	for _, name := range names {
		entry, err := s.vault.GetSecret(name)
		if err != nil {
			continue
		}
		out[name] = string(entry.Value.Bytes())
	}
	return out, nil
}

// Run spawns argv with this service's visible secrets injected into its
// environment, honoring run-only policies (which permit Run even when
// Get would be denied).
func (s *Service) Run(ctx context.Context, transform dispatch.TransformOpts, argv []string) (dispatch.Result, error) {
	secrets, err := s.BuildEnvMap()
	if err != nil {
		return dispatch.Result{}, err
	}
	if len(argv) == 0 {
		return dispatch.Result{}, apperr.New(apperr.SubprocessError, "no command supplied to run")
	}

	// Recorded before spawn, not after exit, so a long-running or killed
	// child is still reflected in the log.
	s.append("subprocess.run", "", audit.OutcomeAllowed, scopeDetail(s.ctx.Scope, len(secrets)))

	return dispatch.Run(ctx, secrets, transform, argv)
}

func scopeDetail(scope string, injectedCount int) string {
	return fmt.Sprintf("scope=%s injected=%d", scope, injectedCount)
}
