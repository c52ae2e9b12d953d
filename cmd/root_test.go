package cmd

import (
	"os"
	"testing"
)

func withEnv(t *testing.T, key, value string) {
	t.Helper()
	orig, had := os.LookupEnv(key)
	if value == "" {
		_ = os.Unsetenv(key)
	} else {
		_ = os.Setenv(key, value)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, orig)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func TestResolveHomePrefersFlagOverEnv(t *testing.T) {
	withEnv(t, "AUTHY_HOME", "/from/env")
	homeFlag = "/from/flag"
	t.Cleanup(func() { homeFlag = "" })

	if got := resolveHome(); got != "/from/flag" {
		t.Errorf("resolveHome() = %q, want /from/flag", got)
	}
}

func TestResolveHomeFallsBackToEnv(t *testing.T) {
	homeFlag = ""
	withEnv(t, "AUTHY_HOME", "/from/env")

	if got := resolveHome(); got != "/from/env" {
		t.Errorf("resolveHome() = %q, want /from/env", got)
	}
}

func TestResolveHomeEmptyWhenNothingSet(t *testing.T) {
	homeFlag = ""
	withEnv(t, "AUTHY_HOME", "")
	withEnv(t, "AUTHY_CONFIG", "/nonexistent/config.yml")

	if got := resolveHome(); got != "" {
		t.Errorf("resolveHome() = %q, want empty string", got)
	}
}

func TestRequiredSubcommandsRegistered(t *testing.T) {
	want := []string{"init", "store", "get", "rm", "rotate", "list", "policy", "session", "audit", "run", "version"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected %q to be a registered subcommand", name)
		}
	}
}
