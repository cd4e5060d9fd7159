// Package auth covers the narrow slice of authentication the relay touches:
// mapping a bearer token to a user identity. Session management and
// credentials live with the external auth collaborator.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates the relay's bearer tokens.
// The secret comes from configuration, never from source.
type TokenManager struct {
	key           []byte
	tokenDuration time.Duration
}

func NewTokenManager(secret string, tokenDuration time.Duration) *TokenManager {
	return &TokenManager{key: []byte(secret), tokenDuration: tokenDuration}
}

// GenerateToken creates a signed JWT for a specific user.
func (m *TokenManager) GenerateToken(userID string) (string, error) {
	expirationTime := time.Now().Add(m.tokenDuration)

	claims := &CustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "linguachat",
		},
	}

	// Create the token using the HS256 algorithm (HMAC with SHA256).
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(m.key)
}

// ValidateToken parses and validates the signature and expiration of a JWT string.
func (m *TokenManager) ValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return m.key, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}
