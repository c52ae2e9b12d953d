package session

import (
	"testing"
	"time"

	"github.com/authy/authy/internal/apperr"
)

func sessionKey() []byte {
	k := make([]byte, 32)
	for i := range k {
		k[i] = byte(i * 5)
	}
	return k
}

func TestCreateValidateRoundTrip(t *testing.T) {
	key := sessionKey()
	token, rec, err := Create("prod/*", time.Hour, "ci", false, key)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(rec.ID) < 6 {
		t.Errorf("session id %q shorter than 6 characters", rec.ID)
	}
	if err := Validate(rec, token, key); err != nil {
		t.Errorf("Validate failed for freshly created token: %v", err)
	}
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	key := sessionKey()
	token, rec, _ := Create("prod/*", time.Hour, "", false, key)
	tampered := token[:len(token)-1] + "x"
	if err := Validate(rec, tampered, key); err == nil {
		t.Fatal("expected validation failure for tampered token")
	}
}

func TestValidateRejectsRevoked(t *testing.T) {
	key := sessionKey()
	token, rec, _ := Create("prod/*", time.Hour, "", false, key)
	Revoke(rec)
	err := Validate(rec, token, key)
	if got, ok := apperr.As(err); !ok || got.Kind != apperr.TokenRevoked {
		t.Errorf("expected TokenRevoked, got %v", err)
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	key := sessionKey()
	token, rec, _ := Create("prod/*", -time.Minute, "", false, key)
	err := Validate(rec, token, key)
	if got, ok := apperr.As(err); !ok || got.Kind != apperr.TokenExpired {
		t.Errorf("expected TokenExpired, got %v", err)
	}
}

func TestParseTTLDaySuffix(t *testing.T) {
	d, err := ParseTTL("2d")
	if err != nil {
		t.Fatalf("ParseTTL failed: %v", err)
	}
	if d != 48*time.Hour {
		t.Errorf("ParseTTL(2d) = %v, want 48h", d)
	}
}

func TestParseTTLStandardDuration(t *testing.T) {
	d, err := ParseTTL("90m")
	if err != nil {
		t.Fatalf("ParseTTL failed: %v", err)
	}
	if d != 90*time.Minute {
		t.Errorf("ParseTTL(90m) = %v, want 90m", d)
	}
}

func TestParseTTLRejectsGarbage(t *testing.T) {
	if _, err := ParseTTL("not-a-duration"); err == nil {
		t.Fatal("expected error for malformed TTL")
	}
}
