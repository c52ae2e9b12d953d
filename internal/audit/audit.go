// Package audit implements the tamper-evident, HMAC-chained append-only
// audit log (spec.md sections 3, 4.F, and 8), generalized from the
// teacher's internal/security.AuditLogEntry/AuditLogger. The teacher signs
// each entry independently; this package chains each entry's signature
// into the next via PrevHMAC so a single deleted or reordered line breaks
// verification at the smallest affected sequence number.
package audit

import (
	"bufio"
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/authy/authy/internal/apperr"
)

const (
	OutcomeAllowed = "allowed"
	OutcomeDenied  = "denied"
)

// Entry is one tamper-evident audit log line.
type Entry struct {
	Sequence   uint64    `json:"sequence"`
	Timestamp  time.Time `json:"timestamp"`
	Operation  string    `json:"operation"`
	SecretName string    `json:"secret_name,omitempty"`
	Actor      string    `json:"actor"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	PrevHMAC   []byte    `json:"prev_hmac"`
	EntryHMAC  []byte    `json:"entry_hmac"`
}

// canonical returns the fixed-order serialization signed by entry_hmac,
// mirroring the teacher's Sign/Verify field join.
func canonical(e *Entry) []byte {
	return []byte(fmt.Sprintf("%d|%s|%s|%s|%s|%s|%s",
		e.Sequence,
		e.Timestamp.Format(time.RFC3339Nano),
		e.Operation,
		e.SecretName,
		e.Actor,
		e.Outcome,
		e.Detail,
	))
}

func computeEntryHMAC(key []byte, prevHMAC []byte, e *Entry) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(prevHMAC)
	mac.Write(canonical(e))
	return mac.Sum(nil)
}

// Log appends entries to a single audit file.
type Log struct {
	path string
}

// Open returns a Log bound to path. The file is created on first Append
// if it does not already exist.
func Open(path string) *Log {
	return &Log{path: path}
}

// Path returns the log's file path.
func (l *Log) Path() string {
	return l.path
}

// Append signs and appends a new entry, chaining it onto the current last
// entry's hmac. auditKey is the HKDF-derived "authy.audit.v1" subkey
// (internal/cryptoengine.DeriveAuditKey).
func (l *Log) Append(auditKey []byte, operation, secretName, actor, outcome, detail string) error {
	prev, err := l.lastEntry()
	if err != nil {
		return apperr.Wrap(apperr.Io, "read audit log tail", err)
	}

	var prevHMAC []byte
	sequence := uint64(1)
	if prev != nil {
		prevHMAC = prev.EntryHMAC
		sequence = prev.Sequence + 1
	}

	entry := &Entry{
		Sequence:   sequence,
		Timestamp:  time.Now().UTC(),
		Operation:  operation,
		SecretName: secretName,
		Actor:      actor,
		Outcome:    outcome,
		Detail:     detail,
		PrevHMAC:   prevHMAC,
	}
	entry.EntryHMAC = computeEntryHMAC(auditKey, prevHMAC, entry)

	line, err := json.Marshal(entry)
	if err != nil {
		return apperr.Wrap(apperr.Serialization, "encode audit entry", err)
	}

	// #nosec G304 -- audit log path is fixed by vault home resolution, not user input
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return apperr.Wrap(apperr.Io, "open audit log", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return apperr.Wrap(apperr.Io, "write audit entry", err)
	}
	return f.Sync()
}

func (l *Log) lastEntry() (*Entry, error) {
	// #nosec G304 -- audit log path is fixed by vault home resolution, not user input
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var last *Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("parse audit entry: %w", err)
		}
		last = &e
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return last, nil
}

// All returns every entry in the log, in sequence order.
func (l *Log) All() ([]Entry, error) {
	// #nosec G304 -- audit log path is fixed by vault home resolution, not user input
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.Io, "open audit log", err)
	}
	defer func() { _ = f.Close() }()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, apperr.Wrap(apperr.Serialization, "parse audit entry", err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Io, "scan audit log", err)
	}
	return entries, nil
}

// Verify recomputes every entry's hmac and checks the prev/sequence
// chain, returning the first broken sequence number (spec.md section 8,
// item 8: the smallest affected index is always reported).
func Verify(path string, auditKey []byte) (ok bool, brokenAt uint64, err error) {
	entries, err := Open(path).All()
	if err != nil {
		return false, 0, err
	}

	var prevHMAC []byte
	expectSeq := uint64(1)
	for i, e := range entries {
		if e.Sequence != expectSeq {
			return false, e.Sequence, nil
		}
		if i > 0 && !bytes.Equal(e.PrevHMAC, prevHMAC) {
			return false, e.Sequence, nil
		}
		want := computeEntryHMAC(auditKey, e.PrevHMAC, &e)
		if !hmac.Equal(want, e.EntryHMAC) {
			return false, e.Sequence, nil
		}
		prevHMAC = e.EntryHMAC
		expectSeq++
	}
	return true, 0, nil
}
