package auth

import (
	"testing"

	"gatepass-backend/internal/config"
	"gatepass-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse", hash)

	assert.True(t, VerifyPassword(hash, "correct-horse"))
	assert.False(t, VerifyPassword(hash, "wrong-password"))
	assert.False(t, VerifyPassword(hash, ""))
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpirationHours = 1
	cfg.JWT.Issuer = "gatepass-test"
	return cfg
}

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager(testConfig())
	user := &models.User{ID: 7, Email: "asha@example.com", Role: models.RoleUser}

	token, err := m.GenerateToken(user)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, "asha@example.com", claims.Email)
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	m := NewJWTManager(testConfig())
	user := &models.User{ID: 7, Email: "asha@example.com", Role: models.RoleUser}

	token, err := m.GenerateToken(user)
	require.NoError(t, err)

	other := testConfig()
	other.JWT.Secret = "different-secret"
	_, err = NewJWTManager(other).ValidateToken(token)
	assert.Error(t, err)
}

func TestTempTokenIsNotASessionToken(t *testing.T) {
	m := NewJWTManager(testConfig())
	user := &models.User{ID: 7, Email: "asha@example.com", Role: models.RoleUser}

	tempToken, err := m.GenerateTempToken(user)
	require.NoError(t, err)

	claims, err := m.ValidateTempToken(tempToken)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)

	// a full session token must not pass temp validation
	sessionToken, err := m.GenerateToken(user)
	require.NoError(t, err)
	_, err = m.ValidateTempToken(sessionToken)
	assert.Error(t, err)
}
