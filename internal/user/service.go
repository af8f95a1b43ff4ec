// Package user exposes the profile surface: a contestant's rating, title,
// and activity state. It holds no submission history — that lives in
// internal/leaderboard's attempts rows, out of scope for this service.
package user

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"examprep-contest-core/pkg/database"
	"examprep-contest-core/pkg/middleware"
)

// Service handles user profile reads.
type Service struct {
	db *database.DB
}

// NewService creates a user Service.
func NewService(db *database.DB) *Service {
	return &Service{db: db}
}

// Profile is a contestant's public profile.
type Profile struct {
	ID            string `json:"id"`
	PhoneNumber   string `json:"phone_number"`
	CurrentRating int    `json:"current_rating"`
	MaxRating     int    `json:"max_rating"`
	Title         string `json:"title"`
	IsActive      bool   `json:"is_active"`
}

// GetCurrentUser returns the authenticated user's own profile.
func (s *Service) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "user not authenticated", http.StatusUnauthorized)
		return
	}

	profile, err := s.getProfile(r.Context(), userID)
	if err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}

// GetUser returns any contestant's public profile by id.
func (s *Service) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		http.Error(w, "user id is required", http.StatusBadRequest)
		return
	}

	profile, err := s.getProfile(r.Context(), userID)
	if err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}

func (s *Service) getProfile(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, phone_number, current_rating, max_rating, title, is_active
		FROM users WHERE id = $1
	`, userID).Scan(&p.ID, &p.PhoneNumber, &p.CurrentRating, &p.MaxRating, &p.Title, &p.IsActive)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
