package server

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwritelab/kwrite/internal/config"
)

func testJWTService(secret string) *JWTService {
	return NewJWTService(&config.JWTConfig{Secret: secret, ExpirationHours: 24})
}

func TestJWT_RoundTrip(t *testing.T) {
	service := testJWTService("test-secret")
	userID := uuid.New()

	token, err := service.GenerateToken(userID, "org-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.GetUserID())
	assert.Equal(t, "org-1", claims.GetOrgID())
}

func TestJWT_WrongSecretRejected(t *testing.T) {
	token, err := testJWTService("secret-a").GenerateToken(uuid.New(), "org-1")
	require.NoError(t, err)

	_, err = testJWTService("secret-b").ValidateToken(token)
	assert.Error(t, err)
}

func TestJWT_EmptyTokenRejected(t *testing.T) {
	_, err := testJWTService("test-secret").ValidateToken("")
	assert.Error(t, err)
}

func TestJWT_MalformedTokenRejected(t *testing.T) {
	_, err := testJWTService("test-secret").ValidateToken("not.a.jwt")
	assert.Error(t, err)
}
