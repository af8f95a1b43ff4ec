package auth

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	accessTokenType  = "access"
	refreshTokenType = "refresh"

	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

func jwtSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "your-secret-key-change-this-in-production"
	}
	return []byte(secret)
}

// claims for both access and refresh tokens. type distinguishes the two so
// a refresh token can never be used where an access token is required, and
// vice versa.
type claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id"`
	Type      string `json:"type"`
}

func issueToken(userID, sessionID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		SessionID: sessionID,
		Type:      tokenType,
	})
	return token.SignedString(jwtSecret())
}

func issueAccessToken(userID, sessionID string) (string, error) {
	return issueToken(userID, sessionID, accessTokenType, accessTokenTTL)
}

func issueRefreshToken(userID, sessionID string) (string, error) {
	return issueToken(userID, sessionID, refreshTokenType, refreshTokenTTL)
}

// parseToken decodes tokenString and verifies it is of wantType, returning
// the subject (user id) and session id.
func parseToken(tokenString, wantType string) (userID, sessionID string, err error) {
	var parsed claims
	token, err := jwt.ParseWithClaims(tokenString, &parsed, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret(), nil
	})
	if err != nil {
		return "", "", err
	}
	if !token.Valid {
		return "", "", fmt.Errorf("token is not valid")
	}
	if parsed.Type != wantType {
		return "", "", fmt.Errorf("unexpected token type %q, want %q", parsed.Type, wantType)
	}
	if parsed.Subject == "" || parsed.SessionID == "" {
		return "", "", fmt.Errorf("token missing subject or session_id")
	}
	return parsed.Subject, parsed.SessionID, nil
}
