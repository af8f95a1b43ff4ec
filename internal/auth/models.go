// Package auth implements the session authorizer and login/refresh/logout
// flows (spec §4.10): JWT issuance and validation, bcrypt password storage,
// and the Redis-backed single-active-session / force-logout protocol.
package auth

import (
	"errors"
	"time"
)

// User is the subset of the users table the auth flows need. PasswordHash
// is excluded from JSON: Login's response embeds this struct directly and
// must never leak the hash to a client.
type User struct {
	ID            string `json:"id"`
	PhoneNumber   string `json:"phone_number"`
	PasswordHash  string `json:"-"`
	CurrentRating int    `json:"current_rating"`
	MaxRating     int    `json:"max_rating"`
	Title         string `json:"title"`
	IsActive      bool   `json:"is_active"`
}

// Session is one row of the sessions table.
type Session struct {
	ID        string
	UserID    string
	DeviceID  string
	PushToken string
	IsActive  bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Domain errors. The HTTP layer maps these to response bodies; the two
// distinct authorization failures (ErrSessionExpired vs ErrUnauthorized)
// are kept apart because spec §8 "Session exclusivity" tests for the
// distinction.
var (
	ErrInvalidCredentials = errors.New("auth: invalid phone number or password")
	ErrSessionExpired     = errors.New("auth: session expired")
	ErrUnauthorized       = errors.New("auth: unauthorized")
	ErrUserInactive       = errors.New("auth: user inactive")
	ErrUserNotFound       = errors.New("auth: user not found")
)
