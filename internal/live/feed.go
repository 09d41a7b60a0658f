package live

import (
	"context"
	"log"
	"sync"

	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/store"
)

// MessageFeed maintains the full, timestamp-ordered message sequence of
// one channel. Switching channels tears the old watch down and starts a
// new one; deliveries are guarded by a per-subscription token rather than
// by channel identity, so a stale delivery is discarded even when the same
// channel is re-subscribed rapidly.
type MessageFeed struct {
	messages store.MessageStore

	mu        sync.Mutex
	groupID   string
	channelID string
	msgs      []models.Message
	loading   bool
	token     int
	cancel    store.CancelFunc

	subs    map[int]func([]models.Message)
	nextSub int
}

func NewMessageFeed(messages store.MessageStore) *MessageFeed {
	return &MessageFeed{
		messages: messages,
		subs:     make(map[int]func([]models.Message)),
	}
}

// SetChannel points the feed at (groupID, channelID). An empty group or
// channel id yields an empty sequence immediately and starts no watch.
func (f *MessageFeed) SetChannel(ctx context.Context, groupID, channelID string) {
	f.mu.Lock()
	f.token++
	token := f.token
	old := f.cancel
	f.cancel = nil
	f.groupID = groupID
	f.channelID = channelID
	f.msgs = nil
	f.loading = groupID != "" && channelID != ""
	f.mu.Unlock()

	if old != nil {
		old()
	}
	if groupID == "" || channelID == "" {
		f.deliver(nil)
		return
	}

	cancel, err := f.messages.WatchMessages(ctx, groupID, channelID, func(msgs []models.Message) {
		f.mu.Lock()
		if token != f.token {
			f.mu.Unlock()
			return
		}
		f.msgs = msgs
		f.loading = false
		f.mu.Unlock()
		f.deliver(msgs)
	})
	if err != nil {
		log.Printf("[live] messages watch group=%s channel=%s failed: %v", groupID, channelID, err)
		f.mu.Lock()
		if token == f.token {
			f.loading = false
		}
		f.mu.Unlock()
		return
	}

	f.mu.Lock()
	if token != f.token {
		f.mu.Unlock()
		cancel()
		return
	}
	f.cancel = cancel
	f.mu.Unlock()
}

// Messages returns the latest full snapshot, ordered by timestamp
// ascending.
func (f *MessageFeed) Messages() []models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Message(nil), f.msgs...)
}

// Loading reports whether the first snapshot for the current channel is
// still pending.
func (f *MessageFeed) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

// Subscribe registers fn for every snapshot delivery and immediately hands
// it the current one.
func (f *MessageFeed) Subscribe(fn func([]models.Message)) store.CancelFunc {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	cur := append([]models.Message(nil), f.msgs...)
	f.mu.Unlock()

	fn(cur)

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

func (f *MessageFeed) deliver(msgs []models.Message) {
	f.mu.Lock()
	fns := make([]func([]models.Message), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(append([]models.Message(nil), msgs...))
	}
}

func (f *MessageFeed) Close() {
	f.mu.Lock()
	f.token++
	cancel := f.cancel
	f.cancel = nil
	f.msgs = nil
	f.loading = false
	f.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
