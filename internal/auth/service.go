package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"examprep-contest-core/internal/queue"
	"examprep-contest-core/pkg/database"
)

const forceLogoutTTLSeconds = 300

// Service wires the Postgres user/session store to the Redis session-
// coherence keys.
type Service struct {
	db *database.DB
	q  *queue.Queue
}

// NewService creates an auth Service.
func NewService(db *database.DB, q *queue.Queue) *Service {
	return &Service{db: db, q: q}
}

// AuthResult is returned by Login.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	User         User
}

// Login implements spec §4.10's competing-login sequence: a fresh session
// row is inserted, every other session of the user is deactivated in one
// batch, the active-session mirror is overwritten, and a force-logout
// marker is left for whichever session was displaced.
func (s *Service) Login(ctx context.Context, phoneNumber, password, deviceID string) (*AuthResult, error) {
	var user User
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, phone_number, password_hash, current_rating, max_rating, title, is_active
		FROM users WHERE phone_number = $1
	`, phoneNumber).Scan(&user.ID, &user.PhoneNumber, &user.PasswordHash, &user.CurrentRating, &user.MaxRating, &user.Title, &user.IsActive)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	oldSessionID, err := s.q.GetActiveSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("auth: read active session: %w", err)
	}

	sessionID := uuid.NewString()
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: begin login tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE sessions SET is_active = false WHERE user_id = $1 AND is_active = true
	`, user.ID); err != nil {
		return nil, fmt.Errorf("auth: deactivate old sessions: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO sessions (id, user_id, device_id, is_active, expires_at, last_active_at, created_at)
		VALUES ($1, $2, $3, true, $4, now(), now())
	`, sessionID, user.ID, deviceID, time.Now().Add(refreshTokenTTL)); err != nil {
		return nil, fmt.Errorf("auth: insert session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("auth: commit login tx: %w", err)
	}

	if err := s.q.SetActiveSession(ctx, user.ID, sessionID, int(refreshTokenTTL.Seconds())); err != nil {
		return nil, fmt.Errorf("auth: set active session: %w", err)
	}
	if oldSessionID != "" && oldSessionID != sessionID {
		if err := s.q.SetForceLogout(ctx, oldSessionID, forceLogoutTTLSeconds); err != nil {
			return nil, fmt.Errorf("auth: set force logout marker: %w", err)
		}
	}

	access, err := issueAccessToken(user.ID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("auth: issue access token: %w", err)
	}
	refresh, err := issueRefreshToken(user.ID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("auth: issue refresh token: %w", err)
	}

	return &AuthResult{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

// Refresh validates a refresh token and issues a new access token for the
// same session, without disturbing the active-session mirror.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	userID, sessionID, err := parseToken(refreshToken, refreshTokenType)
	if err != nil {
		return "", ErrUnauthorized
	}

	active, err := s.q.GetActiveSession(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("auth: read active session: %w", err)
	}
	if active == "" || active != sessionID {
		return "", ErrSessionExpired
	}

	return issueAccessToken(userID, sessionID)
}

// Logout deactivates the caller's current session and clears the
// active-session mirror so a displaced force-logout marker is never needed
// for a voluntary logout.
func (s *Service) Logout(ctx context.Context, userID string) error {
	active, err := s.q.GetActiveSession(ctx, userID)
	if err != nil {
		return fmt.Errorf("auth: read active session: %w", err)
	}
	if active == "" {
		return nil
	}

	if _, err := s.db.Pool.Exec(ctx, `
		UPDATE sessions SET is_active = false WHERE id = $1 AND user_id = $2
	`, active, userID); err != nil {
		return fmt.Errorf("auth: deactivate session: %w", err)
	}

	if err := s.q.SetActiveSession(ctx, userID, "", 1); err != nil {
		return fmt.Errorf("auth: clear active session: %w", err)
	}
	return nil
}

// Authorize implements spec §4.10's six-step sequence exactly.
func (s *Service) Authorize(ctx context.Context, accessToken string) (string, error) {
	userID, sessionID, err := parseToken(accessToken, accessTokenType)
	if err != nil {
		return "", ErrUnauthorized
	}

	check, err := s.q.CheckSession(ctx, userID, sessionID)
	if err != nil {
		return "", fmt.Errorf("auth: check session: %w", err)
	}

	if check.ForceLogoutExists {
		if err := s.q.DeleteForceLogout(ctx, sessionID); err != nil {
			return "", fmt.Errorf("auth: delete force logout marker: %w", err)
		}
		return "", ErrSessionExpired
	}

	if check.ActiveSessionID == "" || check.ActiveSessionID != sessionID {
		return "", ErrSessionExpired
	}

	var isActive bool
	err = s.db.Pool.QueryRow(ctx, `SELECT is_active FROM users WHERE id = $1`, userID).Scan(&isActive)
	if err != nil {
		return "", ErrUnauthorized
	}
	if !isActive {
		return "", ErrUnauthorized
	}

	return userID, nil
}
