package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/huddlechat/huddle/internal/live"
	"github.com/huddlechat/huddle/internal/middleware"
	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/store"
)

type GroupHandler struct {
	groups store.GroupStore
}

func NewGroupHandler(groups store.GroupStore) *GroupHandler {
	return &GroupHandler{groups: groups}
}

// Discover returns the public groups view held by the session's resolver.
func (h *GroupHandler) Discover(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r.Context())
	if s == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(s.Resolver.PublicGroups()))
}

// Mine returns the sidebar view: every group the user belongs to,
// regardless of visibility.
func (h *GroupHandler) Mine(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r.Context())
	if s == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(s.Resolver.MemberGroups()))
}

type createGroupRequest struct {
	Name     string `json:"name"`
	Private  bool   `json:"is_private"`
	Password string `json:"password"`
}

// Create writes the group and its default channel. A partial failure still
// returns the created group so the client can see it in its sidebar.
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r.Context())
	if s == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(map[string]string{
			"name": "group name is required",
		}))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	g, err := s.Resolver.CreateGroup(ctx, live.CreateGroupParams{
		Name:     strings.TrimSpace(req.Name),
		Private:  req.Private,
		Password: req.Password,
	})
	if err != nil {
		if g != nil {
			// Group exists without its default channel.
			writeJSON(w, http.StatusCreated, models.NewSuccessResponse(g))
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to create group"))
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(g))
}

// Get returns one group. Missing groups and groups the user does not
// belong to both read as 404, which is the client's signal to fall back to
// the discovery screen.
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r.Context())
	if s == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	groupID := chi.URLParam(r, "groupId")

	ctx, cancel := contextWithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	g, err := snapshotGroup(ctx, h.groups, groupID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load group"))
		return
	}
	if g == nil || !g.HasMember(s.UID) {
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Group not found"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(g))
}

// Join adds the user to the group's member set. Re-joining is a no-op.
// Private groups are joinable without a password check.
func (h *GroupHandler) Join(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r.Context())
	if s == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	groupID := chi.URLParam(r, "groupId")

	ctx, cancel := contextWithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.Resolver.JoinGroup(ctx, groupID); err != nil {
		if err == store.ErrNotFound {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Group not found"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to join group"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"message": "Joined group"}))
}

// Channels returns the group's channel list, id ascending.
func (h *GroupHandler) Channels(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r.Context())
	if s == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	groupID := chi.URLParam(r, "groupId")

	ctx, cancel := contextWithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	channels, err := snapshotChannels(ctx, h.groups, groupID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to list channels"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(channels))
}

// Select switches the session's channel watch to this group and reports
// the resulting channel list and auto-selected channel.
func (h *GroupHandler) Select(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r.Context())
	if s == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	groupID := chi.URLParam(r, "groupId")

	// The watch outlives the request.
	s.Resolver.SelectGroup(context.Background(), groupID)

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]interface{}{
		"channels": s.Resolver.Channels(),
		"selected": s.Resolver.SelectedChannel(),
	}))
}

// SelectChannel picks a channel inside the selected group and points the
// session feed at it.
func (h *GroupHandler) SelectChannel(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r.Context())
	if s == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	groupID := chi.URLParam(r, "groupId")
	channelID := chi.URLParam(r, "channelId")

	s.Resolver.SelectChannel(channelID)
	s.Feed.SetChannel(context.Background(), groupID, channelID)
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{
		"group_id":   groupID,
		"channel_id": channelID,
	}))
}
