package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/studyroom/studyroom/internal/auth/domain"
	"github.com/studyroom/studyroom/internal/auth/store"
	"github.com/studyroom/studyroom/internal/auth/store/drivers/sqlite"
	"github.com/studyroom/studyroom/pkg/cryptox"
	"github.com/studyroom/studyroom/pkg/idx"
	"github.com/studyroom/studyroom/pkg/jwtx"
)

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "studyroom-service-test-pepper")
	cryptox.SetPepperPath(pepperPath)

	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

// testEnv wires the full service stack over an in-memory store. Each
// field can be exercised directly; captureMailer records outbound
// codes so tests can replay them.
type testEnv struct {
	store    store.Store
	codes    *CodeService
	mfa      *MFAService
	sessions *SessionService
	guard    *LockoutGuard
	auth     *AuthService
	mailer   *captureMailer
	signer   *jwtx.Signer
}

type captureMailer struct {
	verifyCodes []string
	resetCodes  []string
}

func (m *captureMailer) SendVerificationCode(_ context.Context, _, code string) error {
	m.verifyCodes = append(m.verifyCodes, code)
	return nil
}

func (m *captureMailer) SendPasswordResetCode(_ context.Context, _, code string) error {
	m.resetCodes = append(m.resetCodes, code)
	return nil
}

func (m *captureMailer) lastVerifyCode() string {
	return m.verifyCodes[len(m.verifyCodes)-1]
}

func (m *captureMailer) lastResetCode() string {
	return m.resetCodes[len(m.resetCodes)-1]
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvConfig(t, CodeServiceConfig{}, LockoutGuardConfig{}, SessionServiceConfig{})
}

func newTestEnvConfig(t *testing.T, codeCfg CodeServiceConfig, guardCfg LockoutGuardConfig, sessCfg SessionServiceConfig) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	pem, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA("test-key", pem)
	require.NoError(t, err)

	if sessCfg.Issuer == "" {
		sessCfg.Issuer = "studyroom-test"
	}

	codes := NewCodeService(st, codeCfg)
	mfa := NewMFAService(st, MFAServiceConfig{Issuer: "studyroom-test"})
	sessions := NewSessionService(st, signer, mfa, sessCfg)
	guard := NewLockoutGuard(st, guardCfg)
	mailer := &captureMailer{}
	pool := cryptox.NewHashPool(2)

	auth, err := NewAuthService(st, codes, mfa, sessions, guard, mailer, pool)
	require.NoError(t, err)

	return &testEnv{
		store:    st,
		codes:    codes,
		mfa:      mfa,
		sessions: sessions,
		guard:    guard,
		auth:     auth,
		mailer:   mailer,
		signer:   signer,
	}
}

// registerVerified registers and email-verifies an account in one step.
func (e *testEnv) registerVerified(t *testing.T, email, password string) domain.Account {
	t.Helper()
	ctx := context.Background()

	account, err := e.auth.Register(ctx, email, password, domain.RoleLearner)
	require.NoError(t, err)

	_, err = e.auth.VerifyEmail(ctx, email, e.mailer.lastVerifyCode())
	require.NoError(t, err)

	account, err = e.store.Accounts().GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	return account
}

// expireActiveCode rewinds the active code's expiry so TTL paths can be
// tested without sleeping.
func (e *testEnv) expireActiveCode(t *testing.T, accountID string, purpose domain.CodePurpose) {
	t.Helper()
	ctx := context.Background()

	code, err := e.store.VerificationCodes().GetActiveCode(ctx, accountID, purpose)
	require.NoError(t, err)

	require.NoError(t, e.store.VerificationCodes().InvalidateActiveCodes(ctx, accountID, purpose, time.Now().UTC()))

	expired := code
	expired.ID = idx.New().String()
	expired.IssuedAt = expired.IssuedAt.Add(-time.Hour)
	expired.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, e.store.VerificationCodes().CreateCode(ctx, expired))
}
