package cryptoengine

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Envelope is the on-disk vault container: a magic/version header readable
// without decrypting, one recipient stanza per VaultKey the operator
// supplied at save time, and the DEK-encrypted vault body.
//
// Layout (all integers big-endian):
//
//	magic      [7]byte  "authyv1"
//	version    byte
//	stanzaCount byte
//	stanza[0..n]
//	bodyLen    uint32
//	body       []byte
//
// Each stanza is:
//
//	kind       byte   (stanzaPassphrase | stanzaIdentity)
//	fieldCount byte
//	field[0..n] = (len uint32, bytes)
const (
	envelopeMagic   = "authyv1"
	envelopeVersion = 1

	stanzaPassphrase byte = 1
	stanzaIdentity   byte = 2
)

var (
	ErrUnknownFormat  = errors.New("unrecognized vault envelope")
	ErrUnknownVersion = errors.New("unsupported vault envelope version")
	ErrNoRecipient    = errors.New("no recipient stanza could be unwrapped with the supplied key")
)

// PassphraseStanza is the wire form of a passphrase recipient.
type PassphraseStanza struct {
	Salt    []byte
	Wrapped WrappedKey
}

// Envelope holds the decoded stanzas and the encrypted vault body.
type Envelope struct {
	Passphrases []PassphraseStanza
	Identities  []IdentityStanza
	Body        []byte
}

func writeField(buf *bytes.Buffer, f []byte) {
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(f)))
	buf.Write(l[:])
	buf.Write(f)
}

func readField(r *bytes.Reader) ([]byte, error) {
	var l [4]byte
	if _, err := io.ReadFull(r, l[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(l[:])
	out := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Encode serializes the envelope to its on-disk byte form.
func (e *Envelope) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteString(envelopeMagic)
	buf.WriteByte(envelopeVersion)
	buf.WriteByte(byte(len(e.Passphrases) + len(e.Identities)))

	for _, p := range e.Passphrases {
		buf.WriteByte(stanzaPassphrase)
		buf.WriteByte(3)
		writeField(&buf, p.Salt)
		writeField(&buf, p.Wrapped.Nonce)
		writeField(&buf, p.Wrapped.Ciphertext)
	}
	for _, id := range e.Identities {
		buf.WriteByte(stanzaIdentity)
		buf.WriteByte(3)
		writeField(&buf, id.EphemeralPublic)
		writeField(&buf, id.Wrapped.Nonce)
		writeField(&buf, id.Wrapped.Ciphertext)
	}

	var bl [4]byte
	binary.BigEndian.PutUint32(bl[:], uint32(len(e.Body)))
	buf.Write(bl[:])
	buf.Write(e.Body)

	return buf.Bytes()
}

// DecodeEnvelope parses the on-disk byte form, validating the magic and
// version before touching any stanza. Unknown versions are rejected
// rather than silently downgraded, per spec.md section 4.A.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	if len(data) < len(envelopeMagic)+2 {
		return nil, ErrUnknownFormat
	}
	if string(data[:len(envelopeMagic)]) != envelopeMagic {
		return nil, ErrUnknownFormat
	}
	r := bytes.NewReader(data[len(envelopeMagic):])

	version, err := r.ReadByte()
	if err != nil {
		return nil, ErrUnknownFormat
	}
	if version != envelopeVersion {
		return nil, ErrUnknownVersion
	}

	count, err := r.ReadByte()
	if err != nil {
		return nil, ErrUnknownFormat
	}

	env := &Envelope{}
	for i := byte(0); i < count; i++ {
		kind, err := r.ReadByte()
		if err != nil {
			return nil, ErrUnknownFormat
		}
		fieldCount, err := r.ReadByte()
		if err != nil || fieldCount != 3 {
			return nil, ErrUnknownFormat
		}
		a, err := readField(r)
		if err != nil {
			return nil, ErrUnknownFormat
		}
		nonce, err := readField(r)
		if err != nil {
			return nil, ErrUnknownFormat
		}
		ciphertext, err := readField(r)
		if err != nil {
			return nil, ErrUnknownFormat
		}

		switch kind {
		case stanzaPassphrase:
			env.Passphrases = append(env.Passphrases, PassphraseStanza{
				Salt:    a,
				Wrapped: WrappedKey{Nonce: nonce, Ciphertext: ciphertext},
			})
		case stanzaIdentity:
			env.Identities = append(env.Identities, IdentityStanza{
				EphemeralPublic: a,
				Wrapped:         WrappedKey{Nonce: nonce, Ciphertext: ciphertext},
			})
		default:
			return nil, fmt.Errorf("%w: unrecognized stanza kind %d", ErrUnknownFormat, kind)
		}
	}

	var bl [4]byte
	if _, err := io.ReadFull(r, bl[:]); err != nil {
		return nil, ErrUnknownFormat
	}
	bodyLen := binary.BigEndian.Uint32(bl[:])
	body := make([]byte, bodyLen)
	if bodyLen > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, ErrUnknownFormat
		}
	}
	env.Body = body

	return env, nil
}

// SealWithPassphrase produces a passphrase recipient stanza wrapping dek
// under an Argon2id KEK derived from passphrase and a fresh salt.
func SealWithPassphrase(dek, passphrase []byte) (PassphraseStanza, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return PassphraseStanza{}, err
	}
	kek := DeriveKEKFromPassphrase(passphrase, salt)
	defer ClearBytes(kek)
	wrapped, err := WrapKey(dek, kek)
	if err != nil {
		return PassphraseStanza{}, err
	}
	return PassphraseStanza{Salt: salt, Wrapped: wrapped}, nil
}

// OpenPassphraseStanza recovers the DEK from a passphrase stanza.
func OpenPassphraseStanza(stanza PassphraseStanza, passphrase []byte) ([]byte, error) {
	kek := DeriveKEKFromPassphrase(passphrase, stanza.Salt)
	defer ClearBytes(kek)
	return UnwrapKey(stanza.Wrapped, kek)
}

// UnsealDEK tries every stanza in the envelope against the supplied
// VaultKey, returning the recovered DEK on the first match.
func UnsealDEK(env *Envelope, key VaultKey) ([]byte, error) {
	switch key.Kind {
	case VaultKeyPassphrase:
		for _, stanza := range env.Passphrases {
			dek, err := OpenPassphraseStanza(stanza, key.Passphrase)
			if err == nil {
				return dek, nil
			}
		}
	case VaultKeyIdentity:
		for _, stanza := range env.Identities {
			dek, err := UnwrapForIdentity(stanza, key.IdentityPrivate)
			if err == nil {
				return dek, nil
			}
		}
	}
	return nil, ErrNoRecipient
}
