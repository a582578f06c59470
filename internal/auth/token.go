package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/chetan-code/taskcal/internal/apperr"
	"github.com/chetan-code/taskcal/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// TokenManager issues and verifies stateless HS256 session tokens.
// The key is set once at start-up and only read afterwards.
type TokenManager struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewTokenManager(secret []byte, ttl time.Duration) (*TokenManager, error) {
	if len(secret) == 0 {
		return nil, errors.New("token signing secret is empty")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &TokenManager{key: key, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token carrying the user's id and role.
func (m *TokenManager) Issue(u *models.User) (string, error) {
	now := m.now()
	claims := &models.Claims{
		UserID: u.ID,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.key)
	if err != nil {
		return "", apperr.Unexpected(err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the identity the token carries.
func (m *TokenManager) Verify(tokenString string) (models.Identity, error) {
	if tokenString == "" {
		return models.Identity{}, apperr.Authentication("missing token")
	}

	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Identity{}, apperr.Authentication("token expired")
		}
		return models.Identity{}, apperr.Authentication("invalid token")
	}

	if claims.UserID == "" || !claims.Role.Valid() {
		return models.Identity{}, apperr.Authentication("invalid token")
	}
	return models.Identity{UserID: claims.UserID, Role: claims.Role}, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", apperr.Authentication("authorization header required")
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", apperr.Authentication("invalid authorization header format")
	}
	return token, nil
}
