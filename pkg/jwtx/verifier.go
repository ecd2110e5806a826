package jwtx

import (
	"crypto/ed25519"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
	ErrTokenUse    = errors.New("jwtx: wrong token use")
)

// Verifier validates session proofs against a set of known public keys,
// keyed by kid. Tokens signed with anything other than EdDSA are rejected.
type Verifier struct {
	issuer string
	keys   map[string]ed25519.PublicKey
}

// NewVerifierEdDSA builds a Verifier trusting the given signers' public keys.
func NewVerifierEdDSA(issuer string, signers ...*Signer) *Verifier {
	keys := make(map[string]ed25519.PublicKey, len(signers))
	for _, s := range signers {
		keys[s.KID()] = s.Public()
	}
	return &Verifier{issuer: issuer, keys: keys}
}

// Verify parses and validates a compact JWT, returning its claims.
func (v *Verifier) Verify(raw string) (Claims, error) {
	var claims Claims

	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodEdDSA.Alg() {
			return nil, ErrAlgMismatch
		}

		kid, _ := t.Header["kid"].(string)
		key, ok := v.keys[kid]
		if !ok {
			return nil, ErrUnknownKID
		}
		return key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrAlgMismatch), errors.Is(err, ErrUnknownKID):
			return Claims{}, err
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		default:
			return Claims{}, ErrMalformed
		}
	}
	if !token.Valid {
		return Claims{}, ErrInvalidSig
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return Claims{}, ErrIssuer
	}
	if claims.TokenUse != TokenUseSession {
		return Claims{}, ErrTokenUse
	}

	return claims, nil
}
