package security

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingScope = errors.New("token lacks the required scope")
	ErrEmptySecret  = errors.New("token secret must not be empty")
	ErrUnknownScope = errors.New("unknown token scope")
)

type Scope string

const (
	// ScopePlatform is held by the chat-platform client that reports joins
	// and relays member commands.
	ScopePlatform Scope = "platform"
	// ScopeAdmin additionally allows chat resets and ledger statistics.
	ScopeAdmin Scope = "admin"
)

const (
	tokenIssuer   = "invite-tracker"
	tokenAudience = "invite-tracker-api"
)

func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopePlatform, ScopeAdmin:
		return Scope(s), nil
	}
	return "", ErrUnknownScope
}

// ServiceClaims identifies a calling service rather than an end user.
type ServiceClaims struct {
	Client string  `json:"client"`
	Scopes []Scope `json:"scopes"`
	jwt.RegisteredClaims
}

// Allows reports whether the claims grant scope. Admin implies platform.
func (c *ServiceClaims) Allows(scope Scope) bool {
	if slices.Contains(c.Scopes, ScopeAdmin) {
		return true
	}
	return slices.Contains(c.Scopes, scope)
}

type TokenManager interface {
	GenerateServiceToken(client string, scopes []Scope, ttl time.Duration) (string, error)
	ValidateToken(tokenString string) (*ServiceClaims, error)
}

type tokenManager struct {
	secret []byte
	now    func() time.Time
}

func NewTokenManager(secret string) (TokenManager, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &tokenManager{
		secret: []byte(secret),
		now:    time.Now,
	}, nil
}

// GenerateServiceToken signs an HS256 token. A zero ttl yields a token
// without expiry.
func (m *tokenManager) GenerateServiceToken(client string, scopes []Scope, ttl time.Duration) (string, error) {
	now := m.now()
	claims := ServiceClaims{
		Client: client,
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  client,
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   tokenIssuer,
			Audience: jwt.ClaimStrings{tokenAudience},
			ID:       uuid.NewString(),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) ValidateToken(tokenString string) (*ServiceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ServiceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithAudience(tokenAudience))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*ServiceClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}
