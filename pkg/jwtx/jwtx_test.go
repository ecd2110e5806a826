package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/studyroom/studyroom/pkg/cryptox"
)

func newTestSigner(t *testing.T, kid string) *Signer {
	t.Helper()
	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := NewSignerEdDSA(kid, pemKey)
	require.NoError(t, err)
	return signer
}

func TestSignAndVerify(t *testing.T) {
	signer := newTestSigner(t, "key-1")
	verifier := NewVerifierEdDSA("studyroom-auth", signer)

	now := time.Now().UTC()
	validSince := now.Add(-time.Minute)
	claims := NewSessionClaims("acct-123", "learner", "studyroom-auth", validSince, time.Hour, now)

	raw, err := signer.Sign(claims)
	require.NoError(t, err)

	got, err := verifier.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "acct-123", got.Subject)
	require.Equal(t, "learner", got.Role)
	require.Equal(t, TokenUseSession, got.TokenUse)
	require.Equal(t, validSince.Unix(), got.ValidSince)
	require.NoError(t, got.ValidateExpiry())
}

func TestVerifyRejections(t *testing.T) {
	signer := newTestSigner(t, "key-1")
	verifier := NewVerifierEdDSA("studyroom-auth", signer)
	now := time.Now().UTC()

	t.Run("garbage token", func(t *testing.T) {
		_, err := verifier.Verify("not.a.jwt")
		require.Error(t, err)
	})

	t.Run("unknown kid", func(t *testing.T) {
		stranger := newTestSigner(t, "key-other")
		raw, err := stranger.Sign(NewSessionClaims("a", "learner", "studyroom-auth", now, time.Hour, now))
		require.NoError(t, err)

		_, err = verifier.Verify(raw)
		require.ErrorIs(t, err, ErrUnknownKID)
	})

	t.Run("tampered payload", func(t *testing.T) {
		raw, err := signer.Sign(NewSessionClaims("a", "learner", "studyroom-auth", now, time.Hour, now))
		require.NoError(t, err)

		tampered := raw[:len(raw)-4] + "AAAA"
		_, err = verifier.Verify(tampered)
		require.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		raw, err := signer.Sign(NewSessionClaims("a", "learner", "studyroom-auth", now, -time.Minute, now))
		require.NoError(t, err)

		_, err = verifier.Verify(raw)
		require.ErrorIs(t, err, ErrExpired)
	})

	t.Run("issuer mismatch", func(t *testing.T) {
		raw, err := signer.Sign(NewSessionClaims("a", "learner", "someone-else", now, time.Hour, now))
		require.NoError(t, err)

		_, err = verifier.Verify(raw)
		require.ErrorIs(t, err, ErrIssuer)
	})

	t.Run("wrong token use", func(t *testing.T) {
		claims := NewSessionClaims("a", "learner", "studyroom-auth", now, time.Hour, now)
		claims.TokenUse = "elevation"
		raw, err := signer.Sign(claims)
		require.NoError(t, err)

		_, err = verifier.Verify(raw)
		require.ErrorIs(t, err, ErrTokenUse)
	})
}
