package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer mints and verifies HS256 bearer tokens for API clients that do
// not hold a session cookie (the mobile app).
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Configured reports whether a signing secret is set.
func (t *TokenIssuer) Configured() bool {
	return len(t.secret) > 0
}

// Issue signs a token for the user scoped to the given household.
func (t *TokenIssuer) Issue(userID, householdID int64) (string, error) {
	if !t.Configured() {
		return "", fmt.Errorf("token issuer not configured")
	}
	claims := jwt.MapClaims{
		"user_id":      userID,
		"household_id": householdID,
		"exp":          time.Now().Add(t.ttl).Unix(),
		"iat":          time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify parses the token and returns the user and household it was issued
// for.
func (t *TokenIssuer) Verify(tokenString string) (userID, householdID int64, err error) {
	if !t.Configured() {
		return 0, 0, fmt.Errorf("token issuer not configured")
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, 0, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected claims type")
	}
	uid, ok := claims["user_id"].(float64)
	if !ok {
		return 0, 0, fmt.Errorf("missing user_id claim")
	}
	hid, ok := claims["household_id"].(float64)
	if !ok {
		return 0, 0, fmt.Errorf("missing household_id claim")
	}
	return int64(uid), int64(hid), nil
}
