package policy

import (
	"testing"

	"github.com/authy/authy/internal/vaultstore"
)

func TestCanReadAllowAndDeny(t *testing.T) {
	p := &vaultstore.Policy{
		Name:  "ci",
		Allow: []string{"prod/*", "shared/*"},
		Deny:  []string{"prod/root-*"},
	}
	c, err := Compile(p)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	cases := map[string]bool{
		"prod/db":       true,
		"shared/api-key": true,
		"prod/root-key":  false,
		"other/secret":   false,
	}
	for name, want := range cases {
		if got := c.CanRead(name); got != want {
			t.Errorf("CanRead(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestCanReadEmptyAllowAdmitsNothing(t *testing.T) {
	p := &vaultstore.Policy{Name: "empty"}
	c, err := Compile(p)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if c.CanRead("anything") {
		t.Error("empty allow list must admit nothing")
	}
}

func TestFilterPreservesInputOrder(t *testing.T) {
	p := &vaultstore.Policy{Name: "all", Allow: []string{"*"}}
	c, err := Compile(p)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	got := c.Filter([]string{"zeta", "alpha", "mu"})
	want := []string{"zeta", "alpha", "mu"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
			break
		}
	}
}

func TestCompileRejectsMalformedPattern(t *testing.T) {
	p := &vaultstore.Policy{Name: "bad", Allow: []string{"["}}
	if _, err := Compile(p); err == nil {
		t.Fatal("expected compile error for malformed pattern")
	}
}

func TestRunOnlyReflectsPolicy(t *testing.T) {
	p := &vaultstore.Policy{Name: "ci", Allow: []string{"*"}, RunOnly: true}
	c, err := Compile(p)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if !c.RunOnly() {
		t.Error("expected RunOnly() true")
	}
}
