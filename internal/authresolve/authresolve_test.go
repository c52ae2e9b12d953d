package authresolve

import (
	"testing"
	"time"

	"github.com/authy/authy/internal/apperr"
	"github.com/authy/authy/internal/cryptoengine"
	"github.com/authy/authy/internal/session"
	"github.com/authy/authy/internal/vaultstore"
)

func TestResolvePrefersExplicitPassphrase(t *testing.T) {
	key, token, err := Resolve(Credentials{Passphrase: "hunter2", Token: "authy_v1.abc"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if key.Kind != cryptoengine.VaultKeyPassphrase || string(key.Passphrase) != "hunter2" {
		t.Errorf("unexpected key: %+v", key)
	}
	if token != "authy_v1.abc" {
		t.Errorf("token = %q", token)
	}
}

func TestResolveNonInteractiveWithoutCredentialsFails(t *testing.T) {
	_, _, err := Resolve(Credentials{NonInteractive: true})
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.NoCredentials {
		t.Fatalf("expected NoCredentials, got %v", err)
	}
}

func TestResolvePassphraseNonInteractiveWithoutCredentialsFails(t *testing.T) {
	_, _, err := ResolvePassphrase(Credentials{NonInteractive: true})
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.NoCredentials {
		t.Fatalf("expected NoCredentials, got %v", err)
	}
}

func TestResolvePassphrasePrefersExplicit(t *testing.T) {
	key, _, err := ResolvePassphrase(Credentials{Passphrase: "hunter2"})
	if err != nil {
		t.Fatalf("ResolvePassphrase failed: %v", err)
	}
	if key != "hunter2" {
		t.Errorf("key = %q, want hunter2", key)
	}
}

func TestBuildContextMaster(t *testing.T) {
	v := vaultstore.NewEmpty(make([]byte, 32))
	ctx, err := BuildContext(cryptoengine.VaultKey{Kind: cryptoengine.VaultKeyPassphrase}, "", "", v, nil)
	if err != nil {
		t.Fatalf("BuildContext failed: %v", err)
	}
	if ctx.Actor != "master" || ctx.IsToken {
		t.Errorf("unexpected context: %+v", ctx)
	}
}

func TestBuildContextWithValidToken(t *testing.T) {
	v := vaultstore.NewEmpty(make([]byte, 32))
	sessionKey := make([]byte, 32)
	token, rec, err := session.Create("prod/*", time.Hour, "", false, sessionKey)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	v.AddSession(rec)

	ctx, err := BuildContext(cryptoengine.VaultKey{Kind: cryptoengine.VaultKeyPassphrase}, "", token, v, sessionKey)
	if err != nil {
		t.Fatalf("BuildContext failed: %v", err)
	}
	if !ctx.IsToken || ctx.Actor != "token:"+rec.ID || ctx.Scope != "prod/*" {
		t.Errorf("unexpected context: %+v", ctx)
	}
}

func TestBuildContextUnknownTokenIsInvalidToken(t *testing.T) {
	v := vaultstore.NewEmpty(make([]byte, 32))
	sessionKey := make([]byte, 32)
	_, err := BuildContext(cryptoengine.VaultKey{Kind: cryptoengine.VaultKeyPassphrase}, "", "authy_v1.bogus", v, sessionKey)
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.InvalidToken {
		t.Fatalf("expected InvalidToken, got %v", err)
	}
}

func TestRequireNotTokenBlocksTokenCallers(t *testing.T) {
	ctx := &AuthContext{IsToken: true}
	err := ctx.RequireNotToken()
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.TokenReadOnly {
		t.Fatalf("expected TokenReadOnly, got %v", err)
	}
}
