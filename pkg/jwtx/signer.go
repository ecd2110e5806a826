package jwtx

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer signs session-proof claims with an Ed25519 key. EdDSA keeps tokens
// small and sidesteps the parameter pitfalls of RSA/ECDSA.
type Signer struct {
	kid string
	key ed25519.PrivateKey
}

// NewSignerEdDSA creates a Signer from a PKCS8 PEM-encoded Ed25519 key.
func NewSignerEdDSA(kid string, pemKey []byte) (*Signer, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: no PEM block in key material")
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwtx: failed to parse PKCS8 key: %w", err)
	}

	key, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwtx: key is not Ed25519")
	}

	return &Signer{kid: kid, key: key}, nil
}

// KID returns the key identifier embedded in signed token headers.
func (s *Signer) KID() string { return s.kid }

// Public returns the signer's public key (for building a Verifier).
func (s *Signer) Public() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}

// Sign produces a compact JWT for the given claims.
func (s *Signer) Sign(c Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, c)
	token.Header["kid"] = s.kid
	return token.SignedString(s.key)
}
