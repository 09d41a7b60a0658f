package handlers

import (
	"net/http"

	"github.com/huddlechat/huddle/internal/live"
	"github.com/huddlechat/huddle/internal/middleware"
	"github.com/huddlechat/huddle/internal/models"
)

type RouteHandler struct{}

func NewRouteHandler() *RouteHandler {
	return &RouteHandler{}
}

// Resolve recomputes the navigation decision for the session's current
// state and the client's current path.
func (h *RouteHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r.Context())
	if s == nil {
		// Signed-out clients always belong on the login screen.
		writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.RouteResponse{
			Redirect: r.URL.Query().Get("path") != live.PathRoot,
			Target:   live.PathRoot,
		}))
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		path = live.PathRoot
	}

	target, redirect := live.Route(s.RouteState(path))
	resp := models.RouteResponse{Redirect: redirect}
	if redirect {
		resp.Target = target
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(resp))
}
