// Package auth models caller authorization as an explicit capability.
//
// Proving who is calling (signatures, sessions, keys) happens outside the
// ledger. What reaches a ledger operation is a Caller that has already
// been verified; the operation asks it, once and before touching state,
// whether it speaks for a given principal.
package auth

import (
	"sort"
	"strings"

	"github.com/roach88/streamvest/internal/stream"
)

// Caller is a verified calling context.
type Caller interface {
	// Authorize returns nil when the caller is authorized as p, and an
	// UNAUTHORIZED stream.Error otherwise.
	Authorize(p stream.Principal) error
}

// Principals is a Caller verified as a fixed set of principals.
type Principals map[stream.Principal]struct{}

// As returns a Caller authorized as exactly the given principals.
func As(ps ...stream.Principal) Principals {
	set := make(Principals, len(ps))
	for _, p := range ps {
		set[p] = struct{}{}
	}
	return set
}

// Authorize implements Caller.
func (s Principals) Authorize(p stream.Principal) error {
	if _, ok := s[p]; ok {
		return nil
	}
	return stream.NewUnauthorizedError(p)
}

// String lists the principals in sorted order.
func (s Principals) String() string {
	names := make([]string, 0, len(s))
	for p := range s {
		names = append(names, string(p))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

type anyone struct{}

func (anyone) Authorize(stream.Principal) error { return nil }

// Anyone returns a Caller that is authorized as every principal. It is
// meant for tests and local scenario replays where signatures are not
// being exercised.
func Anyone() Caller { return anyone{} }

type nobody struct{}

func (nobody) Authorize(p stream.Principal) error { return stream.NewUnauthorizedError(p) }

// Nobody returns a Caller that holds no authorization at all.
func Nobody() Caller { return nobody{} }

// RequireAny returns the first of ps that c is authorized as. The error
// names every acceptable principal.
func RequireAny(c Caller, ps ...stream.Principal) (stream.Principal, error) {
	if c == nil {
		return "", stream.NewUnauthorizedError(ps...)
	}
	for _, p := range ps {
		if p == "" {
			continue
		}
		if c.Authorize(p) == nil {
			return p, nil
		}
	}
	return "", stream.NewUnauthorizedError(ps...)
}

// Require returns nil when c is authorized as p.
func Require(c Caller, p stream.Principal) error {
	_, err := RequireAny(c, p)
	return err
}
