package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/huddlechat/huddle/internal/middleware"
	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/store"
)

type PresenceHandler struct {
	presence store.PresenceStore
}

func NewPresenceHandler(presence store.PresenceStore) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

// Status returns the online/offline signal for a uid; missing records read
// as offline.
func (h *PresenceHandler) Status(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r.Context())
	if s == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	uid := chi.URLParam(r, "uid")

	ctx, cancel := contextWithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, err := snapshotStatus(ctx, h.presence, uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to read status"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{
		"uid":    uid,
		"status": status,
	}))
}

// Online lists every uid currently marked online.
func (h *PresenceHandler) Online(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r.Context())
	if s == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	records, err := h.presence.ListOnline(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to list online users"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(records))
}
