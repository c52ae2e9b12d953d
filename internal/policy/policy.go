// Package policy implements the glob allow/deny scope engine (spec.md
// section 3 and section 5's CanRead/Filter operations), generalized onto
// github.com/gobwas/glob the way the rest of the retrieved pack reaches
// for a compiled glob matcher instead of repeated path/filepath.Match
// calls.
package policy

import (
	"github.com/gobwas/glob"

	"github.com/authy/authy/internal/vaultstore"
)

// Compiled is a policy with its allow/deny patterns pre-compiled. Deny
// always wins over allow when both match the same name (spec.md section
// 3).
type Compiled struct {
	policy *vaultstore.Policy
	allow  []glob.Glob
	deny   []glob.Glob
}

// Compile compiles every pattern in p. A malformed pattern is reported as
// a CompileError naming the offending glob rather than silently ignored.
func Compile(p *vaultstore.Policy) (*Compiled, error) {
	allow, err := compileAll(p.Allow)
	if err != nil {
		return nil, err
	}
	deny, err := compileAll(p.Deny)
	if err != nil {
		return nil, err
	}
	return &Compiled{policy: p, allow: allow, deny: deny}, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pat := range patterns {
		g, err := glob.Compile(pat)
		if err != nil {
			return nil, &CompileError{Pattern: pat, Cause: err}
		}
		out = append(out, g)
	}
	return out, nil
}

// CompileError reports a malformed glob pattern.
type CompileError struct {
	Pattern string
	Cause   error
}

func (e *CompileError) Error() string {
	return "invalid policy pattern " + e.Pattern + ": " + e.Cause.Error()
}

func (e *CompileError) Unwrap() error { return e.Cause }

// CanRead reports whether name is readable under this policy: it must
// match at least one allow pattern (an empty allow list admits nothing)
// and no deny pattern.
func (c *Compiled) CanRead(name string) bool {
	if matchesAny(c.deny, name) {
		return false
	}
	return matchesAny(c.allow, name)
}

func matchesAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Filter returns the subset of names this policy permits, preserving the
// input order.
func (c *Compiled) Filter(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if c.CanRead(n) {
			out = append(out, n)
		}
	}
	return out
}

// RunOnly reports whether this policy restricts injection to subprocess
// dispatch only (spec.md section 3).
func (c *Compiled) RunOnly() bool {
	return c.policy.RunOnly
}

// Name returns the underlying policy's name.
func (c *Compiled) Name() string {
	return c.policy.Name
}
