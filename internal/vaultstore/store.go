package vaultstore

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/authy/authy/internal/apperr"
	"github.com/authy/authy/internal/cryptoengine"
	"github.com/authy/authy/internal/secret"
)

// VaultPermissions is the mode every vault file and temp file is written
// with: owner read/write only.
const VaultPermissions = 0o600

// Store loads and atomically persists a Vault encrypted under an Envelope,
// generalized from the teacher's internal/storage.StorageService. Unlike
// the teacher's single-password model, a Store's envelope may carry any
// mix of passphrase and identity recipient stanzas (spec.md section 4.A).
type Store struct {
	vaultPath string
	fs        FileSystem
}

// NewStore returns a Store rooted at vaultPath, using fs for all file
// system access.
func NewStore(vaultPath string, fs FileSystem) *Store {
	return &Store{vaultPath: vaultPath, fs: fs}
}

// Exists reports whether a vault file is already present at this path.
func (s *Store) Exists() bool {
	_, err := s.fs.Stat(s.vaultPath)
	return err == nil
}

// Init creates a new, empty vault at the store's path, wrapping a freshly
// generated DEK for every supplied recipient key. It fails if a vault
// already exists there.
func (s *Store) Init(recipients []cryptoengine.Recipient) (*Vault, error) {
	if s.Exists() {
		return nil, apperr.New(apperr.AlreadyExists, "vault already exists")
	}

	masterKeyMaterial := make([]byte, cryptoengine.KeyLength)
	if _, err := rand.Read(masterKeyMaterial); err != nil {
		return nil, apperr.Wrap(apperr.Io, "generate master key material", err)
	}

	v := NewEmpty(masterKeyMaterial)
	if err := s.save(v, recipients); err != nil {
		return nil, err
	}
	return v, nil
}

// Load decrypts and decodes the vault using key, trying every stanza of
// the matching kind until one unwraps the DEK.
func (s *Store) Load(key cryptoengine.VaultKey) (*Vault, error) {
	raw, err := s.fs.ReadFile(s.vaultPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.New(apperr.NotInitialized, "vault has not been initialized")
		}
		return nil, apperr.Wrap(apperr.Io, "read vault file", err)
	}

	env, err := cryptoengine.DecodeEnvelope(raw)
	if err != nil {
		return nil, apperr.Wrap(apperr.Decryption, "decode vault envelope", err)
	}

	dek, err := cryptoengine.UnsealDEK(env, key)
	if err != nil {
		return nil, apperr.Wrap(apperr.AuthFailed, "unseal vault key", err)
	}
	defer cryptoengine.ClearBytes(dek)

	body, err := cryptoengine.Decrypt(env.Body, dek)
	if err != nil {
		return nil, apperr.Wrap(apperr.Decryption, "decrypt vault body", err)
	}
	defer cryptoengine.ClearBytes(body)

	v, err := unmarshalVault(body)
	if err != nil {
		return nil, apperr.Wrap(apperr.Serialization, "parse vault body", err)
	}
	v.recipients = env
	v.dek = append([]byte(nil), dek...)
	return v, nil
}

// Save re-encrypts and atomically persists v, reusing whichever recipient
// stanzas it was loaded with (spec.md section 4.A: rotation happens only
// through Rekey, never an implicit side effect of Save).
func (s *Store) Save(v *Vault) error {
	dek, err := s.currentDEK(v)
	if err != nil {
		return err
	}
	defer cryptoengine.ClearBytes(dek)

	v.touch()
	return s.writeEnvelope(v, v.recipients, dek)
}

// Rekey replaces the vault's DEK and master key material, wrapping the new
// DEK only for newRecipients. This invalidates every outstanding session token
// and rotates the audit HMAC key, per spec.md section 5's revoke-by-rekey
// note.
func (s *Store) Rekey(v *Vault, newRecipients []cryptoengine.Recipient) error {
	masterKeyMaterial := make([]byte, cryptoengine.KeyLength)
	if _, err := rand.Read(masterKeyMaterial); err != nil {
		return apperr.Wrap(apperr.Io, "generate master key material", err)
	}
	v.MasterKeyMaterial.Release()
	v.MasterKeyMaterial = secret.New(masterKeyMaterial)
	for _, sess := range v.Sessions {
		sess.Revoked = true
	}
	v.touch()
	return s.save(v, newRecipients)
}

func (s *Store) currentDEK(v *Vault) ([]byte, error) {
	if v.recipients == nil {
		return nil, apperr.New(apperr.Serialization, "vault has no loaded recipient envelope")
	}
	if v.dek != nil {
		return append([]byte(nil), v.dek...), nil
	}
	return nil, apperr.New(apperr.Serialization, "vault has no cached data encryption key")
}

// save builds a brand new envelope wrapping a fresh DEK for recipients and
// writes it out.
func (s *Store) save(v *Vault, recipients []cryptoengine.Recipient) error {
	if len(recipients) == 0 {
		return apperr.New(apperr.NoCredentials, "vault must have at least one recipient")
	}

	dek, err := cryptoengine.GenerateDEK()
	if err != nil {
		return apperr.Wrap(apperr.Io, "generate data encryption key", err)
	}
	defer cryptoengine.ClearBytes(dek)

	env := &cryptoengine.Envelope{}
	for _, r := range recipients {
		switch r.Kind {
		case cryptoengine.VaultKeyPassphrase:
			stanza, err := cryptoengine.SealWithPassphrase(dek, r.Passphrase)
			if err != nil {
				return apperr.Wrap(apperr.Io, "seal passphrase stanza", err)
			}
			env.Passphrases = append(env.Passphrases, stanza)
		case cryptoengine.VaultKeyIdentity:
			stanza, err := cryptoengine.WrapForIdentity(dek, r.IdentityPublic)
			if err != nil {
				return apperr.Wrap(apperr.Io, "wrap identity stanza", err)
			}
			env.Identities = append(env.Identities, stanza)
		}
	}
	v.recipients = env
	v.dek = append([]byte(nil), dek...)
	return s.writeEnvelope(v, env, dek)
}

func (s *Store) writeEnvelope(v *Vault, env *cryptoengine.Envelope, dek []byte) error {
	body, err := marshalVault(v)
	if err != nil {
		return apperr.Wrap(apperr.Serialization, "encode vault body", err)
	}

	cipherBody, err := cryptoengine.Encrypt(body, dek)
	if err != nil {
		return apperr.Wrap(apperr.Io, "encrypt vault body", err)
	}
	env.Body = cipherBody

	return s.atomicWrite(env.Encode())
}

// atomicWrite writes data to a uniquely-named temp file beside the vault,
// fsyncs it, verifies it decodes, then renames it into place. Generalized
// from the teacher's StorageService.SaveVault temp-file dance, replacing
// the teacher's password-based verification with an envelope decode check
// since the new format no longer needs the original passphrase to verify
// structural integrity.
func (s *Store) atomicWrite(data []byte) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.vaultPath), 0o700); err != nil {
		return apperr.Wrap(apperr.Io, "create vault directory", err)
	}

	tempPath := s.tempFileName()
	defer s.cleanupOrphans(tempPath)

	if err := s.writeTempFile(tempPath, data); err != nil {
		return err
	}
	if err := s.verifyTempFile(tempPath); err != nil {
		_ = s.fs.Remove(tempPath)
		return err
	}
	if err := s.fs.Rename(tempPath, s.vaultPath); err != nil {
		_ = s.fs.Remove(tempPath)
		return apperr.Wrap(apperr.Io, "rename vault into place", ErrFilesystemNotAtomic)
	}
	return nil
}

func (s *Store) tempFileName() string {
	suffix := randomHexSuffix(6)
	timestamp := time.Now().Format("20060102-150405")
	return fmt.Sprintf("%s.tmp.%s.%s", s.vaultPath, timestamp, suffix)
}

func randomHexSuffix(length int) string {
	b := make([]byte, length/2)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano()%1000000)
	}
	return fmt.Sprintf("%x", b)
}

func (s *Store) writeTempFile(path string, data []byte) error {
	file, err := s.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, VaultPermissions)
	if err != nil {
		return apperr.Wrap(apperr.Io, "create temp vault file", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Write(data); err != nil {
		return apperr.Wrap(apperr.Io, "write temp vault file", err)
	}
	if err := file.Sync(); err != nil {
		return apperr.Wrap(apperr.Io, "sync temp vault file", err)
	}
	return nil
}

// verifyTempFile re-reads the temp file and confirms it parses as a
// well-formed envelope before it is allowed to replace the live vault.
func (s *Store) verifyTempFile(path string) error {
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return apperr.Wrap(apperr.Io, "read back temp vault file", ErrVerificationFailed)
	}
	if _, err := cryptoengine.DecodeEnvelope(data); err != nil {
		return apperr.Wrap(apperr.Serialization, "verify temp vault file", ErrVerificationFailed)
	}
	return nil
}

func (s *Store) cleanupOrphans(currentTempPath string) {
	pattern := filepath.Join(filepath.Dir(s.vaultPath), "*.tmp.*")
	matches, err := s.fs.Glob(pattern)
	if err != nil {
		return
	}
	for _, orphan := range matches {
		if orphan == currentTempPath {
			continue
		}
		_ = s.fs.Remove(orphan)
	}
}
