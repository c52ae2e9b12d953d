package vaultstore

import (
	"os"
	"path/filepath"
)

// ResolveHome returns the directory authy stores its vault, audit log, and
// key material under. override takes precedence when non-empty (the
// --home flag, AUTHY_HOME environment variable, or config path_override,
// as folded together by cmd.resolveHome); otherwise it
// falls back to ~/.authy. Centralizing this in one function keeps path
// resolution out of component code, per the injected-FileSystem pattern
// this package already follows for every other piece of I/O.
func ResolveHome(override string) string {
	if override != "" {
		return override
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".authy")
	}
	return ".authy"
}

// VaultPath is the on-disk location of the encrypted vault within home.
func VaultPath(home string) string {
	return filepath.Join(home, "vault.age")
}

// AuditLogPath is the on-disk location of the audit log within home.
func AuditLogPath(home string) string {
	return filepath.Join(home, "audit.log")
}
