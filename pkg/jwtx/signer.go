package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength guards against accidentally shipping a weak HMAC secret.
const MinSecretLength = 32

// ErrWeakSecret reports a signing secret shorter than MinSecretLength bytes.
var ErrWeakSecret = errors.New("jwtx: signing secret too short")

// Signer signs claims into a compact token string.
type Signer interface {
	Sign(claims Claims) (string, error)
}

// HS256Signer signs tokens with a process-level symmetric secret.
type HS256Signer struct {
	secret []byte
}

// NewHS256Signer validates the secret length and returns a signer.
func NewHS256Signer(secret []byte) (*HS256Signer, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	return &HS256Signer{secret: secret}, nil
}

func (s *HS256Signer) Sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign token: %w", err)
	}
	return signed, nil
}
