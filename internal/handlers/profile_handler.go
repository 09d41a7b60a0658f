package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/huddlechat/huddle/internal/media"
	"github.com/huddlechat/huddle/internal/middleware"
	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/store"
)

type ProfileHandler struct {
	profiles store.ProfileStore
	blobs    media.BlobStore
}

func NewProfileHandler(profiles store.ProfileStore, blobs media.BlobStore) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, blobs: blobs}
}

// GetProfile returns the session's profile. A 404 marks the identity as
// not yet onboarded.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r.Context())
	if s == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	profile, err := h.profiles.GetProfile(ctx, s.UID)
	if err != nil {
		if err == store.ErrNotFound {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Profile not found"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load profile"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(profile))
}

// UpsertProfile creates or replaces the profile. An empty photo URL falls
// back to a generated avatar seeded by the uid, so onboarding always
// completes with a usable picture.
func (h *ProfileHandler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r.Context())
	if s == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var req models.UpsertProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(map[string]string{
			"display_name": "display name is required",
		}))
		return
	}

	photoURL := req.PhotoURL
	if photoURL == "" {
		photoURL = defaultAvatarURL(s.UID)
	}

	profile := &models.Profile{
		UID:         s.UID,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Bio:         req.Bio,
		PhotoURL:    photoURL,
	}

	ctx, cancel := contextWithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.profiles.SetProfile(ctx, profile); err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to save profile"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(profile))
}

// UploadPhoto stores a profile picture and returns its URL. The profile
// itself is updated by a subsequent UpsertProfile call.
func (h *ProfileHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r.Context())
	if s == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Photo file is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Only image uploads are allowed"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	path := fmt.Sprintf("profile_pictures/%s/%s", s.UID, header.Filename)
	photoURL, err := h.blobs.Put(ctx, path, contentType, file)
	if err != nil {
		if err == media.ErrUnsafeImage {
			writeJSON(w, http.StatusUnprocessableEntity, models.NewErrorResponse("Image rejected by content screening"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to store photo"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"photo_url": photoURL}))
}

func defaultAvatarURL(uid string) string {
	return "https://api.dicebear.com/7.x/pixel-art/svg?seed=" + url.QueryEscape(uid)
}
