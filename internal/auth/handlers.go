package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"examprep-contest-core/pkg/reqctx"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
	DeviceID    string `json:"device_id"`
}

// LoginResponse is the body returned on a successful login.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// LoginHandler authenticates a contestant and issues a token pair,
// displacing any other active session for the account.
func (s *Service) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PhoneNumber == "" || req.Password == "" {
		http.Error(w, "phone_number and password are required", http.StatusBadRequest)
		return
	}

	result, err := s.Login(r.Context(), req.PhoneNumber, req.Password, req.DeviceID)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrUserInactive) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LoginResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		User:         result.User,
	})
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshHandler issues a new access token for a still-active session.
func (s *Service) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.RefreshToken == "" {
		http.Error(w, "refresh_token is required", http.StatusBadRequest)
		return
	}

	access, err := s.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrUnauthorized) {
			http.Error(w, "session expired", http.StatusUnauthorized)
			return
		}
		http.Error(w, "refresh failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		AccessToken string `json:"access_token"`
	}{AccessToken: access})
}

// LogoutHandler deactivates the authenticated user's current session.
func (s *Service) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := reqctx.UserID(r.Context())
	if !ok {
		http.Error(w, "user not authenticated", http.StatusUnauthorized)
		return
	}

	if err := s.Logout(r.Context(), userID); err != nil {
		http.Error(w, "logout failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
