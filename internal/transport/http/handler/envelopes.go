package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-todo-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Warning   string `json:"warning,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// AuthEnvelope wraps login/sign-up/refresh responses.
type AuthEnvelope struct {
	AccessToken string    `json:"access_token,omitempty"`
	User        *SafeUser `json:"user,omitempty"`
	Message     string    `json:"message,omitempty"`
	Warning     string    `json:"warning,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// SafeUser is the user shape exposed over the API. No password hash.
type SafeUser struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	Email      string  `json:"email"`
	Image      *string `json:"image,omitempty"`
	Role       string  `json:"role"`
	IsVerified bool    `json:"is_verified"`
	Created    string  `json:"created"`
}

func toSafeUser(u *domain.User) *SafeUser {
	if u == nil {
		return nil
	}
	return &SafeUser{
		ID:         u.UserID,
		Username:   u.Username,
		Email:      u.Email,
		Image:      u.Image,
		Role:       u.Role,
		IsVerified: u.Verified(),
		Created:    u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
