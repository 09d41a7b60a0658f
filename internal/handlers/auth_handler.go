package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/huddlechat/huddle/internal/auth"
	"github.com/huddlechat/huddle/internal/middleware"
	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/session"
)

type AuthHandler struct {
	sessions *session.Manager
}

func NewAuthHandler(sessions *session.Manager) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

type loginRequest struct {
	Method     string `json:"method"`
	Credential string `json:"credential"`
}

// Login signs in with the configured provider and returns the session
// token. Provider failures map to the friendly login-screen messages.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if req.Method == "" {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(map[string]string{
			"method": "method is required",
		}))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	token, s, err := h.sessions.Login(ctx, auth.Method(req.Method), req.Credential)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse(auth.FriendlyMessage(err)))
		return
	}

	identity, _ := s.Identity.Current()
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.LoginResponse{
		Token:    token,
		Identity: identity,
	}))
}

// Logout writes offline presence, revokes the provider session and tears
// the live session down.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r.Context())
	if s == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.sessions.Logout(ctx, s.UID); err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to log out"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"message": "Logged out"}))
}
