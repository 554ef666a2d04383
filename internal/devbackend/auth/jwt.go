// Package auth issues and checks the dev backend's HS256 tokens.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rayyanshah04/flexpay/internal/shared"
)

// Token types. An auth token is the long-lived login credential; a session
// token is issued on refresh and only valid for API calls.
const (
	TypeAuth    = "auth"
	TypeSession = "session"
)

// Claims - standard claims plus the user id and the token type.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Type   string `json:"typ"`
}

func GenerateToken(userID, tokenType string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID: userID,
		Type:   tokenType,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetUserIDFromToken validates signature, expiry and type and returns the
// user id. An expired token yields shared.ErrorTokenExpired; any other
// failure is shared.ErrorInvalidToken.
func GetUserIDFromToken(tokenString, tokenType string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", shared.ErrorTokenExpired
		}
		return "", shared.ErrorInvalidToken
	}
	if !token.Valid {
		return "", shared.ErrorInvalidToken
	}

	if claims.Type != tokenType || claims.UserID == "" {
		return "", shared.ErrorInvalidToken
	}

	return claims.UserID, nil
}
