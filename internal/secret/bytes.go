// Package secret provides a byte container that overwrites its storage with
// zeros when released, used everywhere the core handles master key
// material, derived subkeys, passphrase buffers, and decrypted secret
// values.
package secret

import "crypto/subtle"

// Bytes wraps a byte slice that must be zeroized once it is no longer
// needed. It has no finalizer: callers are expected to call Release on
// every exit path, including error paths, the same way the teacher calls
// crypto.ClearKey/ClearData at each defer site.
type Bytes struct {
	b        []byte
	released bool
}

// New takes ownership of b and returns it wrapped in a Bytes.
func New(b []byte) Bytes {
	return Bytes{b: b}
}

// Clone copies b into a new owned buffer.
func Clone(b []byte) Bytes {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Bytes{b: cp}
}

// Bytes returns the underlying slice. The caller must not retain it past
// Release.
func (s *Bytes) Bytes() []byte {
	return s.b
}

// Len reports the length of the underlying slice.
func (s *Bytes) Len() int {
	return len(s.b)
}

// Release overwrites the underlying storage with zeros. Safe to call more
// than once.
func (s *Bytes) Release() {
	if s.released || s.b == nil {
		return
	}
	zero(s.b)
	s.released = true
}

// zero overwrites data with zeros using a compiler barrier so the write is
// not optimized away, mirroring crypto.ClearBytes in the teacher repo.
func zero(data []byte) {
	for i := range data {
		data[i] = 0
	}
	dummy := make([]byte, len(data))
	subtle.ConstantTimeCompare(data, dummy)
}
