// Package token validates bearer credentials presented at session
// handshake. Verification is a pure function of the credential, the
// signing key, and the clock; issuance lives elsewhere.
package token

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// allowedAlgorithms is the compile-time algorithm allow-list. Tokens
// signed with anything else are rejected before signature verification,
// which defeats algorithm-substitution attacks. Deliberately not
// configurable.
var allowedAlgorithms = []string{"HS256", "HS384", "HS512"}

// Kind classifies a verification failure so the session loop can map it
// to a close code.
type Kind int

const (
	KindMalformed Kind = iota
	KindUnsupportedAlgorithm
	KindInvalidSignature
	KindExpired
	KindTenantMismatch
)

// String returns a stable name for logging.
func (k Kind) String() string {
	switch k {
	case KindUnsupportedAlgorithm:
		return "unsupported_algorithm"
	case KindInvalidSignature:
		return "invalid_signature"
	case KindExpired:
		return "expired"
	case KindTenantMismatch:
		return "tenant_mismatch"
	default:
		return "malformed"
	}
}

// Error is a typed verification failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token %s: %v", e.Kind, e.Err)
	}
	return "token " + e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Identity is the verified result of a credential check. Immutable once
// returned.
type Identity struct {
	Subject string
	Tenant  string
	Expiry  time.Time
}

var errAlgNotAllowed = errors.New("signing algorithm not on allow-list")

type claims struct {
	Tenant string `json:"tenant"`
	TID    string `json:"tid"`
	jwt.RegisteredClaims
}

func (c *claims) tenant() string {
	if c.Tenant != "" {
		return c.Tenant
	}
	return c.TID
}

// Verifier checks bearer credentials against a shared signing key.
type Verifier struct {
	key []byte
	now func() time.Time
}

// NewVerifier creates a Verifier for the given HMAC signing key.
func NewVerifier(signingKey []byte) *Verifier {
	return &Verifier{key: signingKey, now: time.Now}
}

// Verify parses and validates a credential. expectedTenant is the tenant
// requested in the connection URL; a token carrying a tenant claim must
// match it. Tokens without a tenant claim adopt expectedTenant. On
// failure the returned error is always a *Error.
func (v *Verifier) Verify(credential, expectedTenant string) (Identity, error) {
	keyfunc := func(t *jwt.Token) (any, error) {
		if !slices.Contains(allowedAlgorithms, t.Method.Alg()) {
			return nil, fmt.Errorf("%w: %s", errAlgNotAllowed, t.Method.Alg())
		}
		return v.key, nil
	}

	var c claims
	_, err := jwt.ParseWithClaims(credential, &c, keyfunc,
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return Identity{}, &Error{Kind: classify(err), Err: err}
	}

	tenant := c.tenant()
	if tenant != "" && expectedTenant != "" && tenant != expectedTenant {
		return Identity{}, &Error{
			Kind: KindTenantMismatch,
			Err:  fmt.Errorf("token tenant %q, requested %q", tenant, expectedTenant),
		}
	}
	if tenant == "" {
		tenant = expectedTenant
	}

	var expiry time.Time
	if c.ExpiresAt != nil {
		expiry = c.ExpiresAt.Time
	}

	return Identity{Subject: c.Subject, Tenant: tenant, Expiry: expiry}, nil
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, errAlgNotAllowed):
		return KindUnsupportedAlgorithm
	case errors.Is(err, jwt.ErrTokenExpired):
		return KindExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return KindInvalidSignature
	default:
		return KindMalformed
	}
}
