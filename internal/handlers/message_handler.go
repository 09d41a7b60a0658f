package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/huddlechat/huddle/internal/live"
	"github.com/huddlechat/huddle/internal/media"
	"github.com/huddlechat/huddle/internal/middleware"
	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/session"
	"github.com/huddlechat/huddle/internal/store"
)

type MessageHandler struct {
	sessions *session.Manager
	messages store.MessageStore
}

func NewMessageHandler(sessions *session.Manager, messages store.MessageStore) *MessageHandler {
	return &MessageHandler{sessions: sessions, messages: messages}
}

// List returns the channel's full message sequence, timestamp ascending.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r.Context())
	if s == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	groupID := chi.URLParam(r, "groupId")
	channelID := chi.URLParam(r, "channelId")

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	msgs, err := snapshotMessages(ctx, h.messages, groupID, channelID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load messages"))
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(msgs))
}

// Stream pushes every snapshot of the channel's message sequence over SSE
// until the client disconnects.
func (h *MessageHandler) Stream(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r.Context())
	if s == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Streaming not supported"))
		return
	}

	groupID := chi.URLParam(r, "groupId")
	channelID := chi.URLParam(r, "channelId")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	updates := make(chan []models.Message, 1)
	cancel, err := h.messages.WatchMessages(r.Context(), groupID, channelID, func(msgs []models.Message) {
		pushLatest(updates, msgs)
	})
	if err != nil {
		fmt.Fprintf(w, "event: error\ndata: %q\n\n", "watch failed")
		flusher.Flush()
		return
	}
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case msgs := <-updates:
			if msgs == nil {
				msgs = []models.Message{}
			}
			payload, err := json.Marshal(msgs)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

// Send appends a user message; drafts that are blank after trimming are
// dropped without a write. AI-triggered drafts also enqueue a responder
// reply.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r.Context())
	if s == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	composer := h.composer(s, r)
	composer.SetDraft(req.Text)

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := composer.Send(ctx); err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to send message"))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"message": "Empty draft ignored"}))
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(map[string]string{"message": "Message sent"}))
}

// SendImage screens and stores the upload, then appends an image message
// referencing it.
func (h *MessageHandler) SendImage(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r.Context())
	if s == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Image file is required"))
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

	composer := h.composer(s, r)
	if err := composer.SendImage(ctx, header.Filename, contentType, file); err != nil {
		if err == media.ErrUnsafeImage {
			writeJSON(w, http.StatusUnprocessableEntity, models.NewErrorResponse("Image rejected by content screening"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to send image"))
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(map[string]string{"message": "Image sent"}))
}

// SendVoice stores the recording, then appends a voice message referencing
// it.
func (h *MessageHandler) SendVoice(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r.Context())
	if s == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid multipart form"))
		return
	}
	file, _, err := r.FormFile("recording")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Recording file is required"))
		return
	}
	defer file.Close()

	ctx, cancel := contextWithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	composer := h.composer(s, r)
	if err := composer.SendVoice(ctx, file); err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to send voice message"))
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(map[string]string{"message": "Voice message sent"}))
}

type sendGIFRequest struct {
	URL string `json:"url"`
}

// SendGIF appends a gif message straight from the chosen URL.
func (h *MessageHandler) SendGIF(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r.Context())
	if s == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var req sendGIFRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(map[string]string{
			"url": "gif url is required",
		}))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	composer := h.composer(s, r)
	if err := composer.SendGIF(ctx, req.URL); err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to send gif"))
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(map[string]string{"message": "GIF sent"}))
}

func (h *MessageHandler) composer(s *session.Session, r *http.Request) *live.Composer {
	return h.sessions.Composer(s, chi.URLParam(r, "groupId"), chi.URLParam(r, "channelId"))
}

// pushLatest enqueues a snapshot, evicting a stale queued one when the
// consumer has fallen behind. Each snapshot is the full sequence, so the
// newest always supersedes whatever it displaces.
func pushLatest(updates chan []models.Message, msgs []models.Message) {
	for {
		select {
		case updates <- msgs:
			return
		default:
			select {
			case <-updates:
			default:
			}
		}
	}
}
