package jwt

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Manager validates access tokens. Tokens are minted by the identity
// service; this API only needs to verify them.
type Manager struct {
	accessSecret string
}

// NewManager creates a new JWT manager
func NewManager(accessSecret string) *Manager {
	return &Manager{accessSecret: accessSecret}
}

// ValidateAccessToken validates and parses access token
func (m *Manager) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.accessSecret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}
