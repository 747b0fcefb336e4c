package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm, err := NewTokenManager("test-secret")
	require.NoError(t, err)

	token, err := tm.GenerateServiceToken("telegram-bot", []Scope{ScopePlatform}, time.Hour)
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "telegram-bot", claims.Client)
	assert.True(t, claims.Allows(ScopePlatform))
	assert.False(t, claims.Allows(ScopeAdmin))
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_AdminImpliesPlatform(t *testing.T) {
	claims := &ServiceClaims{Scopes: []Scope{ScopeAdmin}}
	assert.True(t, claims.Allows(ScopePlatform))
	assert.True(t, claims.Allows(ScopeAdmin))
}

func TestTokenManager_Expired(t *testing.T) {
	tm, err := NewTokenManager("test-secret")
	require.NoError(t, err)
	tm.(*tokenManager).now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := tm.GenerateServiceToken("bot", []Scope{ScopePlatform}, time.Hour)
	require.NoError(t, err)

	_, err = tm.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	issuer, err := NewTokenManager("secret-a")
	require.NoError(t, err)
	verifier, err := NewTokenManager("secret-b")
	require.NoError(t, err)

	token, err := issuer.GenerateServiceToken("bot", []Scope{ScopeAdmin}, 0)
	require.NoError(t, err)
	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsForeignAudience(t *testing.T) {
	claims := ServiceClaims{
		Client: "bot",
		Scopes: []Scope{ScopeAdmin},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   tokenIssuer,
			Audience: jwt.ClaimStrings{"someone-else"},
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s"))
	require.NoError(t, err)

	tm, err := NewTokenManager("s")
	require.NoError(t, err)
	_, err = tm.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenManager_EmptySecret(t *testing.T) {
	_, err := NewTokenManager("")
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("admin")
	require.NoError(t, err)
	assert.Equal(t, ScopeAdmin, s)

	_, err = ParseScope("root")
	assert.ErrorIs(t, err, ErrUnknownScope)
}
