// Package authresolve implements the single credential-resolution path
// every authy operation goes through (spec.md section 4.C), generalized
// from the teacher's cmd/helpers.go readPassword terminal-detection idiom.
package authresolve

import (
	"fmt"
	"os"

	"github.com/howeyc/gopass"
	"golang.org/x/term"

	"github.com/authy/authy/internal/apperr"
	"github.com/authy/authy/internal/cryptoengine"
	"github.com/authy/authy/internal/session"
	"github.com/authy/authy/internal/vaultstore"
)

// Credentials are the raw inputs an operation may supply, by priority:
// flags, then environment variables, then an interactive prompt.
type Credentials struct {
	Passphrase     string
	KeyfilePath    string
	Token          string
	NonInteractive bool
}

// AuthContext describes the resolved caller identity and scope, per
// spec.md's Glossary entries for Actor strings.
type AuthContext struct {
	Actor     string
	IsToken   bool
	RunOnly   bool
	SessionID string
	Scope     string
}

// RequireNotToken implements the mutation authorization invariant
// (spec.md section 4.E): every mutating facade method must refuse a
// token-only caller before touching the vault.
func (c *AuthContext) RequireNotToken() error {
	if c.IsToken {
		return apperr.New(apperr.TokenReadOnly, "session tokens cannot perform mutating operations")
	}
	return nil
}

// Resolve gathers a VaultKey to unlock the vault and, if a token is
// present, validates it against the vault's sessions after unlock.
//
// Resolution order: explicit flags, then AUTHY_PASSPHRASE / AUTHY_KEYFILE /
// AUTHY_TOKEN, then an interactive passphrase prompt — only when stdin is
// a terminal and AUTHY_NON_INTERACTIVE is unset. A bare token is never
// sufficient to decrypt the vault (spec.md section 4.C): it only narrows
// scope once some other key has unlocked it.
func Resolve(creds Credentials) (cryptoengine.VaultKey, string, error) {
	passphrase, keyfile := creds.Passphrase, creds.KeyfilePath
	if passphrase == "" && keyfile == "" {
		passphrase = os.Getenv("AUTHY_PASSPHRASE")
		keyfile = os.Getenv("AUTHY_KEYFILE")
	}
	token := firstNonEmpty(creds.Token, os.Getenv("AUTHY_TOKEN"))

	if passphrase != "" {
		return cryptoengine.VaultKey{Kind: cryptoengine.VaultKeyPassphrase, Passphrase: []byte(passphrase)}, token, nil
	}
	if keyfile != "" {
		key, err := loadKeyfile(keyfile)
		if err != nil {
			return cryptoengine.VaultKey{}, "", err
		}
		return key, token, nil
	}

	if !interactiveAllowed(creds.NonInteractive) {
		return cryptoengine.VaultKey{}, "", apperr.New(apperr.NoCredentials, "no credentials supplied and stdin is not interactive")
	}

	fmt.Fprint(os.Stderr, "Passphrase: ")
	raw, err := gopass.GetPasswdMasked()
	if err != nil {
		return cryptoengine.VaultKey{}, "", apperr.Wrap(apperr.NoCredentials, "read passphrase", err)
	}
	if len(raw) == 0 {
		return cryptoengine.VaultKey{}, "", apperr.New(apperr.NoCredentials, "empty passphrase")
	}
	return cryptoengine.VaultKey{Kind: cryptoengine.VaultKeyPassphrase, Passphrase: raw}, token, nil
}

// ResolvePassphrase resolves only a passphrase (flag, AUTHY_PASSPHRASE,
// then an interactive prompt), ignoring keyfile and token entirely. Used
// by `init` to build a passphrase recipient alongside an optionally
// generated identity recipient, independent of any existing vault.
func ResolvePassphrase(creds Credentials) (string, string, error) {
	passphrase := firstNonEmpty(creds.Passphrase, os.Getenv("AUTHY_PASSPHRASE"))
	if passphrase != "" {
		return passphrase, "", nil
	}

	if !interactiveAllowed(creds.NonInteractive) {
		return "", "", apperr.New(apperr.NoCredentials, "no credentials supplied and stdin is not interactive")
	}

	fmt.Fprint(os.Stderr, "Passphrase: ")
	raw, err := gopass.GetPasswdMasked()
	if err != nil {
		return "", "", apperr.Wrap(apperr.NoCredentials, "read passphrase", err)
	}
	if len(raw) == 0 {
		return "", "", apperr.New(apperr.NoCredentials, "empty passphrase")
	}
	return string(raw), "", nil
}

func interactiveAllowed(nonInteractive bool) bool {
	if nonInteractive || os.Getenv("AUTHY_NON_INTERACTIVE") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func loadKeyfile(path string) (cryptoengine.VaultKey, error) {
	// #nosec G304 -- keyfile path is an explicit operator-supplied credential
	data, err := os.ReadFile(path)
	if err != nil {
		return cryptoengine.VaultKey{}, apperr.Wrap(apperr.NoCredentials, "read keyfile", err)
	}
	if len(data) != cryptoengine.KeyLength {
		return cryptoengine.VaultKey{}, apperr.New(apperr.NoCredentials, "keyfile is not a valid identity key")
	}
	return cryptoengine.VaultKey{Kind: cryptoengine.VaultKeyIdentity, IdentityPrivate: data}, nil
}

// BuildContext resolves the final AuthContext once the vault is unlocked:
// master/keyfile identity first, then an optional token narrowing scope.
// Unknown session id and bad HMAC both fold to InvalidToken, per spec.md's
// explicit anti-oracle requirement — never leak which failure occurred.
func BuildContext(key cryptoengine.VaultKey, keyfilePath string, token string, v *vaultstore.Vault, sessionKey []byte) (*AuthContext, error) {
	base := &AuthContext{Scope: "*"}
	switch key.Kind {
	case cryptoengine.VaultKeyPassphrase:
		base.Actor = "master"
	case cryptoengine.VaultKeyIdentity:
		base.Actor = "keyfile:" + keyfilePath
	}

	if token == "" {
		return base, nil
	}

	var matched *vaultstore.SessionRecord
	for _, rec := range v.Sessions {
		if session.Matches(rec, token, sessionKey) {
			matched = rec
			break
		}
	}
	if matched == nil {
		return nil, apperr.New(apperr.InvalidToken, "session token is invalid")
	}
	if err := session.Validate(matched, token, sessionKey); err != nil {
		return nil, err
	}

	runOnly := matched.RunOnly
	if p, err := v.GetPolicy(matched.Scope); err == nil && p.RunOnly {
		runOnly = true
	}

	return &AuthContext{
		Actor:     "token:" + matched.ID,
		IsToken:   true,
		RunOnly:   runOnly,
		SessionID: matched.ID,
		Scope:     matched.Scope,
	}, nil
}
