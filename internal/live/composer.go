package live

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/huddlechat/huddle/internal/ai"
	"github.com/huddlechat/huddle/internal/media"
	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/store"
)

// The fixed identity AI replies are attributed to.
const (
	AISenderID       = "gemini-bot"
	AISenderName     = "Gemini"
	AISenderPhotoURL = "https://api.dicebear.com/7.x/bottts/svg?seed=gemini"

	aiErrorReply = "Sorry, I encountered an error. Please try again later."
)

// aiTriggers are the prefixes that invoke the AI responder.
var aiTriggers = []string{"/ai", "@Gemini"}

// Sender identifies who user-authored messages are attributed to.
type Sender struct {
	UID         string
	DisplayName string
	PhotoURL    string
}

// Composer translates input events into writes against one channel's
// message collection. It holds the pending draft; Send clears the draft
// before the write is confirmed, so a failed write loses the message —
// the failure is logged and counted, with no retry.
type Composer struct {
	messages  store.MessageStore
	blobs     media.BlobStore
	responder ai.Responder

	groupID   string
	channelID string
	sender    Sender

	mu          sync.Mutex
	draft       string
	aiReplying  bool
	failedSends int

	wg sync.WaitGroup
}

func NewComposer(messages store.MessageStore, blobs media.BlobStore, responder ai.Responder, groupID, channelID string, sender Sender) *Composer {
	return &Composer{
		messages:  messages,
		blobs:     blobs,
		responder: responder,
		groupID:   groupID,
		channelID: channelID,
		sender:    sender,
	}
}

func (c *Composer) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
}

func (c *Composer) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// AIReplying reports whether an AI completion is pending.
func (c *Composer) AIReplying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aiReplying
}

// FailedSends counts writes lost after the optimistic draft clear.
func (c *Composer) FailedSends() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failedSends
}

// Send appends the draft as a user message. Blank or whitespace-only
// drafts perform no write and leave the draft untouched. Otherwise the
// draft is cleared before the write is confirmed; when the raw text starts
// with an AI trigger and the stripped prompt is non-empty, the responder
// is invoked asynchronously and its reply appended as an ai message.
func (c *Composer) Send(ctx context.Context) error {
	c.mu.Lock()
	text := c.draft
	if strings.TrimSpace(text) == "" {
		c.mu.Unlock()
		return nil
	}
	c.draft = ""
	c.mu.Unlock()

	if err := c.appendUser(ctx, text, models.MessageTypeUser); err != nil {
		return err
	}

	if prompt, ok := aiPrompt(text); ok {
		c.mu.Lock()
		c.aiReplying = true
		c.mu.Unlock()
		c.wg.Add(1)
		go c.replyWithAI(prompt)
	}
	return nil
}

func (c *Composer) replyWithAI(prompt string) {
	defer c.wg.Done()
	defer func() {
		c.mu.Lock()
		c.aiReplying = false
		c.mu.Unlock()
	}()

	reply, err := c.responder.Complete(context.Background(), prompt)
	if err != nil {
		log.Printf("[composer] ai completion failed: %v", err)
		reply = aiErrorReply
	}

	msg := &models.Message{
		Text:           reply,
		SenderID:       AISenderID,
		SenderName:     AISenderName,
		SenderPhotoURL: AISenderPhotoURL,
		Type:           models.MessageTypeAI,
	}
	if err := c.messages.AppendMessage(context.Background(), c.groupID, c.channelID, msg); err != nil {
		log.Printf("[composer] ai message write failed: %v", err)
		c.recordFailure()
	}
}

// SendImage stores the image bytes first, then appends an image message
// referencing the retrieval URL.
func (c *Composer) SendImage(ctx context.Context, filename, contentType string, r io.Reader) error {
	path := fmt.Sprintf("chat_media/%s/%d_%s", c.groupID, time.Now().UnixMilli(), filename)
	url, err := c.blobs.Put(ctx, path, contentType, r)
	if err != nil {
		return fmt.Errorf("store image: %w", err)
	}
	return c.appendUser(ctx, url, models.MessageTypeImage)
}

// SendVoice stores the recording first, then appends a voice message
// referencing the retrieval URL.
func (c *Composer) SendVoice(ctx context.Context, r io.Reader) error {
	path := fmt.Sprintf("voice_messages/%s/%d.webm", c.groupID, time.Now().UnixMilli())
	url, err := c.blobs.Put(ctx, path, "audio/webm", r)
	if err != nil {
		return fmt.Errorf("store voice recording: %w", err)
	}
	return c.appendUser(ctx, url, models.MessageTypeVoice)
}

// SendGIF appends a gif message straight from the chosen URL; there is no
// upload step.
func (c *Composer) SendGIF(ctx context.Context, gifURL string) error {
	return c.appendUser(ctx, gifURL, models.MessageTypeGIF)
}

func (c *Composer) appendUser(ctx context.Context, content string, typ models.MessageType) error {
	msg := &models.Message{
		Text:           content,
		SenderID:       c.sender.UID,
		SenderName:     c.sender.DisplayName,
		SenderPhotoURL: c.sender.PhotoURL,
		Type:           typ,
	}
	if err := c.messages.AppendMessage(ctx, c.groupID, c.channelID, msg); err != nil {
		log.Printf("[composer] %s message write failed group=%s channel=%s: %v", typ, c.groupID, c.channelID, err)
		c.recordFailure()
		return err
	}
	return nil
}

func (c *Composer) recordFailure() {
	c.mu.Lock()
	c.failedSends++
	c.mu.Unlock()
}

// Wait blocks until pending AI replies have completed.
func (c *Composer) Wait() {
	c.wg.Wait()
}

// aiPrompt reports whether raw invokes the AI responder and returns the
// stripped, trimmed prompt.
func aiPrompt(raw string) (string, bool) {
	triggered := false
	for _, t := range aiTriggers {
		if strings.HasPrefix(raw, t) {
			triggered = true
			break
		}
	}
	if !triggered {
		return "", false
	}
	prompt := raw
	for _, t := range aiTriggers {
		prompt = strings.Replace(prompt, t, "", 1)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", false
	}
	return prompt, true
}
