package services

import (
	"context"
	"strings"
	"testing"

	"gatepass-backend/internal/apperrors"
	"gatepass-backend/internal/auth"
	"gatepass-backend/internal/models"
	"gatepass-backend/internal/timeutil"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTOTPStore struct {
	user    *models.User
	secret  string
	enabled bool
}

func (f *fakeTOTPStore) Get(ctx context.Context, id int) (*models.User, error) {
	if f.user == nil || f.user.ID != id {
		return nil, apperrors.ErrNotFound
	}
	out := *f.user
	out.TOTPEnabled = f.enabled
	return &out, nil
}

func (f *fakeTOTPStore) SetTOTPSecret(ctx context.Context, id int, secret string) error {
	f.secret = secret
	return nil
}

func (f *fakeTOTPStore) GetTOTPSecret(ctx context.Context, id int) (string, error) {
	return f.secret, nil
}

func (f *fakeTOTPStore) SetTOTPEnabled(ctx context.Context, id int, enabled bool) error {
	f.enabled = enabled
	if !enabled {
		f.secret = ""
	}
	return nil
}

func newTOTPTestService(t *testing.T) (*TOTPService, *fakeTOTPStore, *fakeAuditStore) {
	hash, err := auth.HashPassword("correct-horse")
	require.NoError(t, err)

	store := &fakeTOTPStore{user: &models.User{
		ID:           1,
		Name:         "Asha",
		Email:        "asha@example.com",
		PasswordHash: hash,
		Role:         models.RoleUser,
		IsActive:     true,
	}}
	audit := &fakeAuditStore{}
	return NewTOTPService(store, audit, testJWTManager()), store, audit
}

func currentCode(t *testing.T, secret string) string {
	code, err := totp.GenerateCode(secret, timeutil.Now())
	require.NoError(t, err)
	return code
}

func TestTOTPSetupAndEnable(t *testing.T) {
	svc, store, audit := newTOTPTestService(t)
	ctx := context.Background()

	setup, err := svc.GenerateSetup(ctx, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.Equal(t, "asha@example.com", setup.AccountName)
	assert.True(t, strings.HasPrefix(setup.OTPAuthURL, "otpauth://totp/"))
	assert.Equal(t, setup.Secret, store.secret)
	assert.False(t, store.enabled)

	err = svc.VerifyAndEnable(ctx, 1, "000000", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.False(t, store.enabled)

	err = svc.VerifyAndEnable(ctx, 1, currentCode(t, setup.Secret), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, store.enabled)
	assert.Contains(t, audit.actions(), models.ActionTOTPEnabled)
}

func TestTOTPEnableWithoutSetup(t *testing.T) {
	svc, _, _ := newTOTPTestService(t)

	err := svc.VerifyAndEnable(context.Background(), 1, "123456", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2FA setup not initiated")
}

func TestTOTPVerifyLogin(t *testing.T) {
	svc, store, _ := newTOTPTestService(t)
	ctx := context.Background()

	setup, err := svc.GenerateSetup(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, svc.VerifyAndEnable(ctx, 1, currentCode(t, setup.Secret), ""))

	tempToken, err := testJWTManager().GenerateTempToken(store.user)
	require.NoError(t, err)

	// wrong code
	_, err = svc.VerifyLogin(ctx, &models.TOTPVerifyRequest{TempToken: tempToken, Code: "000000"}, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	// garbage temp token
	_, err = svc.VerifyLogin(ctx, &models.TOTPVerifyRequest{TempToken: "not-a-token", Code: currentCode(t, setup.Secret)}, "")
	require.Error(t, err)

	resp, err := svc.VerifyLogin(ctx, &models.TOTPVerifyRequest{TempToken: tempToken, Code: currentCode(t, setup.Secret)}, "")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, 1, resp.User.ID)
}

func TestTOTPVerifyLoginRejectsSessionToken(t *testing.T) {
	svc, store, _ := newTOTPTestService(t)
	ctx := context.Background()

	setup, err := svc.GenerateSetup(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, svc.VerifyAndEnable(ctx, 1, currentCode(t, setup.Secret), ""))

	// full session tokens are not valid for the 2FA step
	sessionToken, err := testJWTManager().GenerateToken(store.user)
	require.NoError(t, err)

	_, err = svc.VerifyLogin(ctx, &models.TOTPVerifyRequest{TempToken: sessionToken, Code: currentCode(t, setup.Secret)}, "")
	require.Error(t, err)
}

func TestTOTPDisable(t *testing.T) {
	svc, store, audit := newTOTPTestService(t)
	ctx := context.Background()

	setup, err := svc.GenerateSetup(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, svc.VerifyAndEnable(ctx, 1, currentCode(t, setup.Secret), ""))

	err = svc.Disable(ctx, 1, &models.TOTPDisableRequest{
		Password: "wrong-password",
		Code:     currentCode(t, setup.Secret),
	}, "")
	require.Error(t, err)
	assert.True(t, store.enabled)

	err = svc.Disable(ctx, 1, &models.TOTPDisableRequest{
		Password: "correct-horse",
		Code:     currentCode(t, setup.Secret),
	}, "")
	require.NoError(t, err)
	assert.False(t, store.enabled)
	assert.Empty(t, store.secret)
	assert.Contains(t, audit.actions(), models.ActionTOTPDisabled)
}
