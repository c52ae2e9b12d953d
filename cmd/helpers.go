package cmd

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/authy/authy/internal/apperr"
	"github.com/authy/authy/internal/authresolve"
	"github.com/authy/authy/internal/cryptoengine"
	"github.com/authy/authy/internal/facade"
	"github.com/authy/authy/internal/vaultstore"
)

// credentials builds an authresolve.Credentials from the persistent auth
// flags, leaving environment-variable resolution to authresolve itself.
func credentials() authresolve.Credentials {
	return authresolve.Credentials{
		Passphrase:     passphraseFlag,
		KeyfilePath:    keyfileFlag,
		Token:          tokenFlag,
		NonInteractive: nonInteractiveFlag,
	}
}

// openService resolves credentials and opens the facade against the
// home vault, the one path every command but init goes through.
func openService() (*facade.Service, error) {
	key, token, err := authresolve.Resolve(credentials())
	if err != nil {
		return nil, err
	}
	keyfilePath := keyfileFlag
	if keyfilePath == "" {
		keyfilePath = os.Getenv("AUTHY_KEYFILE")
	}
	return facade.Open(vaultstore.ResolveHome(resolveHome()), key, keyfilePath, token)
}

// readStdinValue reads a secret value from stdin, trimming exactly one
// trailing newline the way a shell heredoc or `echo` pipe leaves behind.
func readStdinValue() ([]byte, error) {
	data, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		return nil, apperr.Wrap(apperr.Io, "read secret value from stdin", err)
	}
	data = []byte(strings.TrimSuffix(string(data), "\n"))
	return data, nil
}

// splitTags parses a comma-separated --tags flag value into a slice,
// dropping empty entries.
func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// jsonErrorPayload is the stable structured error shape spec.md section 6
// defines for --json mode.
type jsonErrorPayload struct {
	Error struct {
		Code     string `json:"code"`
		Message  string `json:"message"`
		ExitCode int    `json:"exit_code"`
	} `json:"error"`
}

// exitWithError maps err to its stable exit code (spec.md section 7) and
// terminates the process, emitting either a plain message or a
// structured JSON object on stderr depending on --json.
func exitWithError(err error) {
	ae, ok := apperr.As(err)
	if !ok {
		eprintf("Error: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		payload := jsonErrorPayload{}
		payload.Error.Code = ae.Kind.String()
		payload.Error.Message = ae.Error()
		payload.Error.ExitCode = ae.ExitCode()
		enc := json.NewEncoder(os.Stderr)
		_ = enc.Encode(payload)
	} else {
		eprintf("Error: %v\n", ae)
	}
	os.Exit(ae.ExitCode())
}

// recipientsFromFlags builds the initial recipient set for `init`: a
// passphrase recipient whenever one resolves (flag, env, or an interactive
// prompt, which is not offered when --generate-keyfile is given), plus a
// freshly generated identity recipient when --generate-keyfile was given,
// writing its private scalar to that path.
func recipientsFromFlags(generateKeyfile string) ([]cryptoengine.Recipient, error) {
	var recipients []cryptoengine.Recipient

	if generateKeyfile != "" {
		priv, pub, err := cryptoengine.GenerateIdentity()
		if err != nil {
			return nil, apperr.Wrap(apperr.Io, "generate identity keypair", err)
		}
		// #nosec G306 -- identity private key; 0600 matches vault file permissions
		if err := os.WriteFile(generateKeyfile, priv, 0o600); err != nil {
			return nil, apperr.Wrap(apperr.Io, "write identity keyfile", err)
		}
		recipients = append(recipients, cryptoengine.Recipient{Kind: cryptoengine.VaultKeyIdentity, IdentityPublic: pub})
	}

	passphraseOnly := authresolve.Credentials{
		Passphrase:     passphraseFlag,
		NonInteractive: nonInteractiveFlag || generateKeyfile != "",
	}
	key, _, err := authresolve.ResolvePassphrase(passphraseOnly)
	if err != nil {
		if ae, ok := apperr.As(err); ok && ae.Kind == apperr.NoCredentials && generateKeyfile != "" {
			return recipients, nil
		}
		return nil, err
	}
	recipients = append(recipients, cryptoengine.Recipient{Kind: cryptoengine.VaultKeyPassphrase, Passphrase: []byte(key)})
	return recipients, nil
}
