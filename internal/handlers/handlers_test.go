package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlechat/huddle/internal/ai"
	"github.com/huddlechat/huddle/internal/auth"
	"github.com/huddlechat/huddle/internal/media"
	appMiddleware "github.com/huddlechat/huddle/internal/middleware"
	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/session"
	"github.com/huddlechat/huddle/internal/store/memstore"
)

func newTestRouter(t *testing.T) (*chi.Mux, *memstore.Store) {
	t.Helper()

	st := memstore.New()
	sessions := session.NewManager(
		st,
		auth.NewLocalProvider(),
		media.NewMemoryBlobStore(""),
		&ai.MockResponder{Delay: time.Millisecond},
		"test-secret",
		time.Hour,
	)

	authHandler := NewAuthHandler(sessions)
	profileHandler := NewProfileHandler(st, media.NewMemoryBlobStore(""))
	routeHandler := NewRouteHandler()
	groupHandler := NewGroupHandler(st)
	messageHandler := NewMessageHandler(sessions, st)
	presenceHandler := NewPresenceHandler(st)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.SessionAuth(sessions))
			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/profile", profileHandler.GetProfile)
			r.Put("/profile", profileHandler.UpsertProfile)
			r.Get("/route", routeHandler.Resolve)
			r.Route("/groups", func(r chi.Router) {
				r.Get("/discover", groupHandler.Discover)
				r.Get("/mine", groupHandler.Mine)
				r.Post("/", groupHandler.Create)
				r.Route("/{groupId}", func(r chi.Router) {
					r.Get("/", groupHandler.Get)
					r.Post("/join", groupHandler.Join)
					r.Get("/channels", groupHandler.Channels)
					r.Route("/channels/{channelId}", func(r chi.Router) {
						r.Get("/messages", messageHandler.List)
						r.Post("/messages", messageHandler.Send)
						r.Post("/gifs", messageHandler.SendGIF)
					})
				})
			})
			r.Get("/users/online", presenceHandler.Online)
			r.Get("/users/{uid}/status", presenceHandler.Status)
		})
	})
	return r, st
}

func doJSON(t *testing.T, r http.Handler, method, path, token string, body interface{}) (*httptest.ResponseRecorder, models.APIResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var resp models.APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec, resp
}

func loginAnonymous(t *testing.T, r http.Handler) string {
	t.Helper()
	rec, resp := doJSON(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{"method": "anonymous"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	token := data["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestLoginRejectsDisabledMethodWithFriendlyText(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, resp := doJSON(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{
		"method": "google", "credential": "id-token",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "This sign-in method is not enabled. Please enable it in your project's authentication settings.", resp.Error)
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, resp := doJSON(t, r, http.MethodGet, "/api/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resp.Success)
}

func TestOnboardingFlowThroughRoute(t *testing.T) {
	r, _ := newTestRouter(t)
	token := loginAnonymous(t, r)

	// No profile yet: route to onboarding.
	rec, resp := doJSON(t, r, http.MethodGet, "/api/route?path=/", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	route := resp.Data.(map[string]interface{})
	assert.Equal(t, true, route["redirect"])
	assert.Equal(t, "/onboarding", route["target"])

	// Profile missing reads as 404.
	rec, _ = doJSON(t, r, http.MethodGet, "/api/profile", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Complete onboarding without a photo: a generated avatar is assigned.
	rec, resp = doJSON(t, r, http.MethodPut, "/api/profile", token, map[string]string{"display_name": "Ana"})
	require.Equal(t, http.StatusOK, rec.Code)
	profile := resp.Data.(map[string]interface{})
	assert.Equal(t, "Ana", profile["display_name"])
	assert.Contains(t, profile["photo_url"], "dicebear.com/7.x/pixel-art")

	// Onboarded: entry paths route to the main screen.
	rec, resp = doJSON(t, r, http.MethodGet, "/api/route?path=/onboarding", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	route = resp.Data.(map[string]interface{})
	assert.Equal(t, true, route["redirect"])
	assert.Equal(t, "/groups", route["target"])

	rec, resp = doJSON(t, r, http.MethodGet, "/api/route?path=/groups", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	route = resp.Data.(map[string]interface{})
	assert.Equal(t, false, route["redirect"])
}

func TestGroupAndMessageFlow(t *testing.T) {
	r, _ := newTestRouter(t)
	token := loginAnonymous(t, r)

	rec, resp := doJSON(t, r, http.MethodPost, "/api/groups/", token, map[string]interface{}{"name": "Gophers"})
	require.Equal(t, http.StatusCreated, rec.Code)
	group := resp.Data.(map[string]interface{})
	groupID := group["id"].(string)
	require.NotEmpty(t, groupID)

	rec, resp = doJSON(t, r, http.MethodGet, "/api/groups/"+groupID+"/channels", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	channels := resp.Data.([]interface{})
	require.Len(t, channels, 1)
	general := channels[0].(map[string]interface{})
	assert.Equal(t, "general", general["id"])

	msgPath := fmt.Sprintf("/api/groups/%s/channels/general/messages", groupID)

	rec, _ = doJSON(t, r, http.MethodPost, msgPath, token, map[string]string{"text": "hello"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Blank drafts are acknowledged but never written.
	rec, _ = doJSON(t, r, http.MethodPost, msgPath, token, map[string]string{"text": "   "})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/groups/%s/channels/general/gifs", groupID), token,
		map[string]string{"url": "https://media.giphy.com/abc.gif"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec, resp = doJSON(t, r, http.MethodGet, msgPath, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	msgs := resp.Data.([]interface{})
	require.Len(t, msgs, 2)
	first := msgs[0].(map[string]interface{})
	second := msgs[1].(map[string]interface{})
	assert.Equal(t, "hello", first["text"])
	assert.Equal(t, "user", first["type"])
	assert.Equal(t, "https://media.giphy.com/abc.gif", second["text"])
	assert.Equal(t, "gif", second["type"])
}

func TestJoinAndDiscover(t *testing.T) {
	r, _ := newTestRouter(t)
	owner := loginAnonymous(t, r)
	joiner := loginAnonymous(t, r)

	rec, resp := doJSON(t, r, http.MethodPost, "/api/groups/", owner, map[string]interface{}{"name": "Open"})
	require.Equal(t, http.StatusCreated, rec.Code)
	groupID := resp.Data.(map[string]interface{})["id"].(string)

	// Before joining, the group reads as missing for the non-member.
	rec, _ = doJSON(t, r, http.MethodGet, "/api/groups/"+groupID+"/", joiner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, resp = doJSON(t, r, http.MethodGet, "/api/groups/discover", joiner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	discovered := resp.Data.([]interface{})
	require.Len(t, discovered, 1)

	rec, _ = doJSON(t, r, http.MethodPost, "/api/groups/"+groupID+"/join", joiner, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// After joining it resolves.
	rec, resp = doJSON(t, r, http.MethodGet, "/api/groups/"+groupID+"/", joiner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Open", resp.Data.(map[string]interface{})["name"])

	rec, resp = doJSON(t, r, http.MethodGet, "/api/groups/mine", joiner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := resp.Data.([]interface{})
	require.Len(t, mine, 1)
	assert.Equal(t, groupID, mine[0].(map[string]interface{})["id"])

	rec, _ = doJSON(t, r, http.MethodPost, "/api/groups/missing/join", joiner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStreamQueueKeepsNewestSnapshot(t *testing.T) {
	updates := make(chan []models.Message, 1)

	// A slow consumer leaves an undelivered snapshot queued; the next one
	// must displace it rather than be dropped.
	pushLatest(updates, []models.Message{{Text: "hello"}})
	pushLatest(updates, []models.Message{{Text: "hello"}, {Text: "world"}})

	got := <-updates
	require.Len(t, got, 2)
	assert.Equal(t, "world", got[1].Text)

	select {
	case stale := <-updates:
		t.Fatalf("stale snapshot left queued: %v", stale)
	default:
	}
}

func TestPresenceEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)
	token := loginAnonymous(t, r)

	rec, resp := doJSON(t, r, http.MethodGet, "/api/users/online", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	online := resp.Data.([]interface{})
	require.Len(t, online, 1)
	uid := online[0].(map[string]interface{})["uid"].(string)

	rec, resp = doJSON(t, r, http.MethodGet, "/api/users/"+uid+"/status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := resp.Data.(map[string]interface{})
	assert.Equal(t, "online", status["status"])

	// Logout flips the record before the session dies.
	rec, _ = doJSON(t, r, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, r, http.MethodGet, "/api/users/online", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "token is dead after logout")
}
