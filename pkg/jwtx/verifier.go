package jwtx

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the single failure mode of verification. Signature
// mismatch, malformed structure, wrong algorithm, wrong issuer and expiry all
// collapse into it so the boundary cannot leak which check failed.
var ErrInvalidToken = errors.New("jwtx: invalid token")

// Verifier validates a compact token and returns its claims if, and only if,
// the signature is intact and the validity window contains now.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// HS256Verifier verifies tokens signed by the matching HS256Signer. The check
// is pure computation with no I/O; it never consults the session store.
type HS256Verifier struct {
	secret []byte
	issuer string
}

// NewHS256Verifier validates the secret length and returns a verifier.
// When issuer is non-empty the token's iss claim must match it.
func NewHS256Verifier(secret []byte, issuer string) (*HS256Verifier, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	return &HS256Verifier{secret: secret, issuer: issuer}, nil
}

func (v *HS256Verifier) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrInvalidToken
	}

	// Signature integrity is checked before any claim validation; an
	// attacker-controlled payload is never inspected.
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if v.issuer != "" && claims.Issuer != v.issuer {
		return Claims{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.OrganizationID == "" {
		return Claims{}, ErrInvalidToken
	}
	// jwt's own validation uses strict inequality; enforce the inclusive
	// boundary where a token expiring exactly now is already dead.
	if claims.Expired(time.Now().UTC()) {
		return Claims{}, ErrInvalidToken
	}

	return *claims, nil
}
