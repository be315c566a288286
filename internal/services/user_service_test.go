package services

import (
	"context"
	"testing"

	"gatepass-backend/internal/apperrors"
	"gatepass-backend/internal/auth"
	"gatepass-backend/internal/config"
	"gatepass-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccountStore struct {
	nextID  int
	byID    map[int]*models.User
	byEmail map[string]*models.User
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{
		byID:    make(map[int]*models.User),
		byEmail: make(map[string]*models.User),
	}
}

func (f *fakeAccountStore) Create(ctx context.Context, user *models.User) error {
	if _, taken := f.byEmail[user.Email]; taken {
		return apperrors.Validation("email already registered")
	}
	f.nextID++
	user.ID = f.nextID
	user.IsActive = true
	stored := *user
	f.byID[user.ID] = &stored
	f.byEmail[user.Email] = &stored
	return nil
}

func (f *fakeAccountStore) Get(ctx context.Context, id int) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (f *fakeAccountStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (f *fakeAccountStore) List(ctx context.Context) ([]models.User, error) {
	out := make([]models.User, 0, len(f.byID))
	for _, u := range f.byID {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeAccountStore) Update(ctx context.Context, user *models.User) error {
	current, ok := f.byID[user.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	delete(f.byEmail, current.Email)
	*current = *user
	f.byEmail[current.Email] = current
	return nil
}

func (f *fakeAccountStore) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	u, ok := f.byID[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func testJWTManager() *auth.JWTManager {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpirationHours = 1
	cfg.JWT.Issuer = "gatepass-test"
	return auth.NewJWTManager(cfg)
}

func newUserTestService() (*UserService, *fakeAccountStore, *fakeAuditStore) {
	store := newFakeAccountStore()
	audit := &fakeAuditStore{}
	return NewUserService(store, audit, testJWTManager()), store, audit
}

func TestSignupAndLogin(t *testing.T) {
	svc, _, _ := newUserTestService()
	ctx := context.Background()

	resp, err := svc.Signup(ctx, &models.SignupRequest{
		Name:     "Asha",
		Email:    " Asha@Example.com ",
		Phone:    "9876543210",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, models.RoleUser, resp.User.Role)
	assert.Equal(t, "asha@example.com", resp.User.Email)

	authResp, step1, err := svc.Login(ctx, &models.LoginRequest{
		Email:    "asha@example.com",
		Password: "correct-horse",
	}, "10.0.0.1")
	require.NoError(t, err)
	assert.Nil(t, step1)
	assert.NotEmpty(t, authResp.Token)
}

func TestSignupValidation(t *testing.T) {
	svc, _, _ := newUserTestService()
	ctx := context.Background()

	_, err := svc.Signup(ctx, &models.SignupRequest{Name: "", Email: "bad", Password: "short"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "email is invalid")
	assert.Contains(t, err.Error(), "password must be at least 8 characters")
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, _, _ := newUserTestService()
	ctx := context.Background()

	req := &models.SignupRequest{Name: "Asha", Email: "asha@example.com", Password: "correct-horse"}
	_, err := svc.Signup(ctx, req)
	require.NoError(t, err)

	_, err = svc.Signup(ctx, req)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newUserTestService()
	ctx := context.Background()

	_, err := svc.Signup(ctx, &models.SignupRequest{Name: "Asha", Email: "asha@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	// unknown email and wrong password produce the same message
	_, _, err = svc.Login(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "whatever-else"}, "")
	require.Error(t, err)
	unknownMsg := err.Error()

	_, _, err = svc.Login(ctx, &models.LoginRequest{Email: "asha@example.com", Password: "wrong-password"}, "")
	require.Error(t, err)
	assert.Equal(t, unknownMsg, err.Error())
	assert.True(t, apperrors.IsValidation(err))
}

func TestLoginRejectsSuspendedAccount(t *testing.T) {
	svc, store, _ := newUserTestService()
	ctx := context.Background()

	resp, err := svc.Signup(ctx, &models.SignupRequest{Name: "Asha", Email: "asha@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	store.byID[resp.User.ID].IsActive = false

	_, _, err = svc.Login(ctx, &models.LoginRequest{Email: "asha@example.com", Password: "correct-horse"}, "")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestLoginWith2FAReturnsTempToken(t *testing.T) {
	svc, store, _ := newUserTestService()
	ctx := context.Background()

	resp, err := svc.Signup(ctx, &models.SignupRequest{Name: "Asha", Email: "asha@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	store.byID[resp.User.ID].TOTPEnabled = true

	authResp, step1, err := svc.Login(ctx, &models.LoginRequest{Email: "asha@example.com", Password: "correct-horse"}, "")
	require.NoError(t, err)
	assert.Nil(t, authResp)
	require.NotNil(t, step1)
	assert.True(t, step1.Requires2FA)
	assert.NotEmpty(t, step1.TempToken)
}

func TestCreateUserRequiresValidRole(t *testing.T) {
	svc, _, audit := newUserTestService()
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, 1, &models.CreateUserRequest{
		Name: "Gate Desk", Email: "gate@example.com", Password: "gate-desk-pw", Role: "watchman",
	}, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	user, err := svc.CreateUser(ctx, 1, &models.CreateUserRequest{
		Name: "Gate Desk", Email: "gate@example.com", Password: "gate-desk-pw", Role: models.RoleSecurity,
	}, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSecurity, user.Role)
	assert.Contains(t, audit.actions(), models.ActionUserCreated)
}

func TestSetActive(t *testing.T) {
	svc, store, _ := newUserTestService()
	ctx := context.Background()

	resp, err := svc.Signup(ctx, &models.SignupRequest{Name: "Asha", Email: "asha@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	require.NoError(t, svc.SetActive(ctx, 1, resp.User.ID, false, ""))
	assert.False(t, store.byID[resp.User.ID].IsActive)

	require.NoError(t, svc.SetActive(ctx, 1, resp.User.ID, true, ""))
	assert.True(t, store.byID[resp.User.ID].IsActive)
}

func TestChangePassword(t *testing.T) {
	svc, _, audit := newUserTestService()
	ctx := context.Background()

	resp, err := svc.Signup(ctx, &models.SignupRequest{Name: "Asha", Email: "asha@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, resp.User.ID, &models.ChangePasswordRequest{
		CurrentPassword: "wrong-password",
		NewPassword:     "battery-staple",
	}, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	err = svc.ChangePassword(ctx, resp.User.ID, &models.ChangePasswordRequest{
		CurrentPassword: "correct-horse",
		NewPassword:     "battery-staple",
	}, "")
	require.NoError(t, err)
	assert.Contains(t, audit.actions(), models.ActionPasswordChanged)

	_, _, err = svc.Login(ctx, &models.LoginRequest{Email: "asha@example.com", Password: "battery-staple"}, "")
	assert.NoError(t, err)
}
