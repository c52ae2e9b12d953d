package facade

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/authy/authy/internal/apperr"
	"github.com/authy/authy/internal/cryptoengine"
	"github.com/authy/authy/internal/dispatch"
	"github.com/authy/authy/internal/vaultstore"
)

func newTestHome(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "authy-home")
}

func masterKey() cryptoengine.VaultKey {
	return cryptoengine.VaultKey{Kind: cryptoengine.VaultKeyPassphrase, Passphrase: []byte("correct horse battery staple")}
}

func openMaster(t *testing.T, home string) *Service {
	t.Helper()
	svc, err := Open(home, masterKey(), "", "")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return svc
}

func TestInitStoreGetRoundTrip(t *testing.T) {
	home := newTestHome(t)
	recipients := []cryptoengine.Recipient{{Kind: cryptoengine.VaultKeyPassphrase, Passphrase: masterKey().Passphrase}}

	svc, err := Init(home, recipients, "")
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, err := svc.Store("db-url", []byte("postgres://x"), nil); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	reopened := openMaster(t, home)
	got, err := reopened.Get("db-url")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "postgres://x" {
		t.Errorf("Get = %q", got)
	}
}

func TestMutationAfterReopenSucceeds(t *testing.T) {
	home := newTestHome(t)
	recipients := []cryptoengine.Recipient{{Kind: cryptoengine.VaultKeyPassphrase, Passphrase: masterKey().Passphrase}}

	svc, err := Init(home, recipients, "")
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, err := svc.Store("db-url", []byte("postgres://x"), nil); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	reopened := openMaster(t, home)
	if _, err := reopened.Store("api-key", []byte("v1"), nil); err != nil {
		t.Fatalf("Store on reopened vault failed: %v", err)
	}
	if _, err := reopened.Rotate("db-url", []byte("postgres://y")); err != nil {
		t.Fatalf("Rotate on reopened vault failed: %v", err)
	}

	reopenedAgain := openMaster(t, home)
	got, err := reopenedAgain.Get("api-key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v1" {
		t.Errorf("Get = %q, want v1", got)
	}
}

func TestInitTwiceFails(t *testing.T) {
	home := newTestHome(t)
	recipients := []cryptoengine.Recipient{{Kind: cryptoengine.VaultKeyPassphrase, Passphrase: masterKey().Passphrase}}
	if _, err := Init(home, recipients, ""); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, err := Init(home, recipients, ""); err == nil {
		t.Fatal("expected second Init to fail")
	}
}

func TestRotateBumpsVersionMonotonically(t *testing.T) {
	home := newTestHome(t)
	recipients := []cryptoengine.Recipient{{Kind: cryptoengine.VaultKeyPassphrase, Passphrase: masterKey().Passphrase}}
	svc, err := Init(home, recipients, "")
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	entry, err := svc.Store("api-key", []byte("v1"), nil)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if entry.Version != 1 {
		t.Fatalf("initial version = %d, want 1", entry.Version)
	}

	rotated, err := svc.Rotate("api-key", []byte("v2"))
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if rotated.Version != 2 {
		t.Errorf("rotated version = %d, want 2", rotated.Version)
	}
}

func TestTokenScopedAccessDeniedOutsidePolicy(t *testing.T) {
	home := newTestHome(t)
	recipients := []cryptoengine.Recipient{{Kind: cryptoengine.VaultKeyPassphrase, Passphrase: masterKey().Passphrase}}
	svc, err := Init(home, recipients, "")
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, err := svc.Store("prod-db", []byte("secret"), nil); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if _, err := svc.Store("staging-db", []byte("secret"), nil); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := svc.CreatePolicy(&vaultstore.Policy{Name: "prod-only", Allow: []string{"prod-*"}}); err != nil {
		t.Fatalf("CreatePolicy failed: %v", err)
	}
	token, _, err := svc.SessionCreate("prod-only", time.Hour, "", false)
	if err != nil {
		t.Fatalf("SessionCreate failed: %v", err)
	}

	tokenSvc, err := Open(home, masterKey(), "", token)
	if err != nil {
		t.Fatalf("Open with token failed: %v", err)
	}

	if _, err := tokenSvc.Get("prod-db"); err != nil {
		t.Errorf("expected prod-db readable, got %v", err)
	}
	_, err = tokenSvc.Get("staging-db")
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.AccessDenied {
		t.Errorf("expected AccessDenied for staging-db, got %v", err)
	}
}

func TestTokenCannotMutate(t *testing.T) {
	home := newTestHome(t)
	recipients := []cryptoengine.Recipient{{Kind: cryptoengine.VaultKeyPassphrase, Passphrase: masterKey().Passphrase}}
	svc, err := Init(home, recipients, "")
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := svc.CreatePolicy(&vaultstore.Policy{Name: "ro", Allow: []string{"*"}}); err != nil {
		t.Fatalf("CreatePolicy failed: %v", err)
	}
	token, _, err := svc.SessionCreate("ro", time.Hour, "", false)
	if err != nil {
		t.Fatalf("SessionCreate failed: %v", err)
	}

	tokenSvc, err := Open(home, masterKey(), "", token)
	if err != nil {
		t.Fatalf("Open with token failed: %v", err)
	}
	_, err = tokenSvc.Store("new-secret", []byte("x"), nil)
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.TokenReadOnly {
		t.Errorf("expected TokenReadOnly, got %v", err)
	}
}

func TestSessionRevokeBlocksFurtherUse(t *testing.T) {
	home := newTestHome(t)
	recipients := []cryptoengine.Recipient{{Kind: cryptoengine.VaultKeyPassphrase, Passphrase: masterKey().Passphrase}}
	svc, err := Init(home, recipients, "")
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, err := svc.Store("x", []byte("y"), nil); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := svc.CreatePolicy(&vaultstore.Policy{Name: "all", Allow: []string{"*"}}); err != nil {
		t.Fatalf("CreatePolicy failed: %v", err)
	}
	token, rec, err := svc.SessionCreate("all", time.Hour, "", false)
	if err != nil {
		t.Fatalf("SessionCreate failed: %v", err)
	}
	if err := svc.SessionRevoke(rec.ID); err != nil {
		t.Fatalf("SessionRevoke failed: %v", err)
	}

	_, err = Open(home, masterKey(), "", token)
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.TokenRevoked {
		t.Errorf("expected TokenRevoked, got %v", err)
	}
}

func TestAuditChainVerifiesAfterOperations(t *testing.T) {
	home := newTestHome(t)
	recipients := []cryptoengine.Recipient{{Kind: cryptoengine.VaultKeyPassphrase, Passphrase: masterKey().Passphrase}}
	svc, err := Init(home, recipients, "")
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, err := svc.Store("a", []byte("1"), nil); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if _, err := svc.Get("a"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, err := svc.Get("missing"); err == nil {
		t.Fatal("expected error for missing secret")
	}

	ok, broken, err := svc.VerifyAuditChain()
	if err != nil {
		t.Fatalf("VerifyAuditChain failed: %v", err)
	}
	if !ok {
		t.Errorf("expected audit chain to verify, broke at %d", broken)
	}
}

func TestRunOnlyTokenBlocksGetButPermitsListAndRun(t *testing.T) {
	home := newTestHome(t)
	recipients := []cryptoengine.Recipient{{Kind: cryptoengine.VaultKeyPassphrase, Passphrase: masterKey().Passphrase}}
	svc, err := Init(home, recipients, "")
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, err := svc.Store("db-dev-url", []byte("postgres://dev"), nil); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := svc.CreatePolicy(&vaultstore.Policy{Name: "dev", Allow: []string{"db-dev-*"}}); err != nil {
		t.Fatalf("CreatePolicy failed: %v", err)
	}
	token, _, err := svc.SessionCreate("dev", time.Hour, "", true)
	if err != nil {
		t.Fatalf("SessionCreate failed: %v", err)
	}

	tokenSvc, err := Open(home, masterKey(), "", token)
	if err != nil {
		t.Fatalf("Open with token failed: %v", err)
	}

	_, err = tokenSvc.Get("db-dev-url")
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.AccessDenied {
		t.Errorf("expected AccessDenied for run-only Get, got %v", err)
	}

	names, err := tokenSvc.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 1 || names[0] != "db-dev-url" {
		t.Errorf("List = %v, want [db-dev-url]", names)
	}

	result, err := tokenSvc.Run(context.Background(), dispatch.TransformOpts{Uppercase: true, DashReplace: '_'},
		[]string{"sh", "-c", "test \"$DB_DEV_URL\" = \"postgres://dev\""})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("Run ExitCode = %d, want 0", result.ExitCode)
	}
}

func TestRekeyInvalidatesExistingSessions(t *testing.T) {
	home := newTestHome(t)
	recipients := []cryptoengine.Recipient{{Kind: cryptoengine.VaultKeyPassphrase, Passphrase: masterKey().Passphrase}}
	svc, err := Init(home, recipients, "")
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := svc.CreatePolicy(&vaultstore.Policy{Name: "all", Allow: []string{"*"}}); err != nil {
		t.Fatalf("CreatePolicy failed: %v", err)
	}
	token, _, err := svc.SessionCreate("all", time.Hour, "", false)
	if err != nil {
		t.Fatalf("SessionCreate failed: %v", err)
	}

	newPassphrase := []byte("a brand new passphrase")
	if err := svc.Rekey([]cryptoengine.Recipient{{Kind: cryptoengine.VaultKeyPassphrase, Passphrase: newPassphrase}}); err != nil {
		t.Fatalf("Rekey failed: %v", err)
	}

	newKey := cryptoengine.VaultKey{Kind: cryptoengine.VaultKeyPassphrase, Passphrase: newPassphrase}
	_, err = Open(home, newKey, "", token)
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.InvalidToken {
		t.Errorf("expected InvalidToken after rekey (HMAC key changed), got %v", err)
	}
}
