package live

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/store"
	"github.com/huddlechat/huddle/internal/store/memstore"
)

func appendText(t *testing.T, st store.MessageStore, groupID, channelID, text string) {
	t.Helper()
	err := st.AppendMessage(context.Background(), groupID, channelID, &models.Message{
		Text:     text,
		SenderID: "u1",
		Type:     models.MessageTypeUser,
	})
	require.NoError(t, err)
}

func texts(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

func TestMessageFeedDeliversOrderedSequence(t *testing.T) {
	st := memstore.New()
	appendText(t, st, "g1", "general", "one")
	appendText(t, st, "g1", "general", "two")

	f := NewMessageFeed(st)
	defer f.Close()

	f.SetChannel(context.Background(), "g1", "general")
	assert.False(t, f.Loading())
	assert.Equal(t, []string{"one", "two"}, texts(f.Messages()))

	appendText(t, st, "g1", "general", "three")
	msgs := f.Messages()
	assert.Equal(t, []string{"one", "two", "three"}, texts(msgs))

	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].Timestamp.Before(msgs[i-1].Timestamp), "timestamps must be non-decreasing")
	}
}

func TestMessageFeedEmptyIDsYieldEmptyImmediately(t *testing.T) {
	st := memstore.New()
	appendText(t, st, "g1", "general", "one")

	f := NewMessageFeed(st)
	defer f.Close()

	f.SetChannel(context.Background(), "", "")
	assert.False(t, f.Loading())
	assert.Empty(t, f.Messages())

	f.SetChannel(context.Background(), "g1", "")
	assert.Empty(t, f.Messages())
}

func TestMessageFeedSwitchingChannelsReplacesSequence(t *testing.T) {
	st := memstore.New()
	appendText(t, st, "g1", "general", "in general")
	appendText(t, st, "g1", "random", "in random")

	f := NewMessageFeed(st)
	defer f.Close()

	f.SetChannel(context.Background(), "g1", "general")
	assert.Equal(t, []string{"in general"}, texts(f.Messages()))

	f.SetChannel(context.Background(), "g1", "random")
	assert.Equal(t, []string{"in random"}, texts(f.Messages()))

	// Activity in the old channel must not reappear.
	appendText(t, st, "g1", "general", "late arrival")
	assert.Equal(t, []string{"in random"}, texts(f.Messages()))
}

// capturedWatchStore hands the watch callback back to the test so stale
// deliveries can be replayed after a channel switch.
type capturedWatchStore struct {
	store.MessageStore
	callbacks []func([]models.Message)
}

func (s *capturedWatchStore) WatchMessages(ctx context.Context, groupID, channelID string, fn func([]models.Message)) (store.CancelFunc, error) {
	s.callbacks = append(s.callbacks, fn)
	fn(nil)
	return func() {}, nil
}

func TestMessageFeedDiscardsStaleDeliveries(t *testing.T) {
	st := &capturedWatchStore{MessageStore: memstore.New()}

	f := NewMessageFeed(st)
	defer f.Close()

	f.SetChannel(context.Background(), "g1", "general")
	require.Len(t, st.callbacks, 1)
	oldCallback := st.callbacks[0]

	f.SetChannel(context.Background(), "g1", "random")

	// A late delivery from the torn-down watch must be discarded.
	oldCallback([]models.Message{{Text: "stale", Type: models.MessageTypeUser}})
	assert.Empty(t, f.Messages())
}

func TestMessageFeedSubscribeReceivesSnapshots(t *testing.T) {
	st := memstore.New()
	f := NewMessageFeed(st)
	defer f.Close()

	f.SetChannel(context.Background(), "g1", "general")

	var deliveries [][]string
	cancel := f.Subscribe(func(msgs []models.Message) {
		deliveries = append(deliveries, texts(msgs))
	})
	defer cancel()

	require.NotEmpty(t, deliveries, "current snapshot arrives on subscribe")

	appendText(t, st, "g1", "general", "hello")
	last := deliveries[len(deliveries)-1]
	assert.Equal(t, []string{"hello"}, last)
}
