package service

import (
	"testing"
	"time"

	"github.com/manyeka-petros/malonda-web-app/config"
	"github.com/manyeka-petros/malonda-web-app/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthService(secret string) *AuthService {
	return &AuthService{
		cfg: config.AuthConfig{
			JWTSecret:  secret,
			AccessTTL:  30 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
	}
}

func TestTokenRoundTrip(t *testing.T) {
	s := testAuthService("test-secret")
	user := &models.User{ID: 7, Role: models.RoleManager}

	pair, err := s.issueTokens(user)
	require.NoError(t, err)

	claims, err := s.parseToken(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, models.RoleManager, claims.Role)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.NotEmpty(t, claims.ID)

	refresh, err := s.parseToken(pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, refresh.TokenType)
	assert.NotEqual(t, claims.ID, refresh.ID)
}

func TestParseTokenWrongSecret(t *testing.T) {
	issuer := testAuthService("secret-a")
	verifier := testAuthService("secret-b")

	pair, err := issuer.issueTokens(&models.User{ID: 1, Role: models.RoleCustomer})
	require.NoError(t, err)

	_, err = verifier.parseToken(pair.Access)
	assert.Error(t, err)
}

func TestParseTokenGarbage(t *testing.T) {
	s := testAuthService("test-secret")

	_, err := s.parseToken("not-a-token")
	assert.Error(t, err)
}
