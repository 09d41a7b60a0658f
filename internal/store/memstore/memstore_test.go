package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/store"
)

func TestProfileRoundTrip(t *testing.T) {
	s := New()

	_, err := s.GetProfile(context.Background(), "u1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SetProfile(context.Background(), &models.Profile{UID: "u1", DisplayName: "Ana"}))

	p, err := s.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", p.DisplayName)
}

func TestWatchProfileDeliversInitialAndUpdates(t *testing.T) {
	s := New()

	var deliveries []*models.Profile
	cancel, err := s.WatchProfile(context.Background(), "u1", func(p *models.Profile) {
		deliveries = append(deliveries, p)
	})
	require.NoError(t, err)

	require.Len(t, deliveries, 1)
	assert.Nil(t, deliveries[0], "missing document delivers nil")

	require.NoError(t, s.SetProfile(context.Background(), &models.Profile{UID: "u1", DisplayName: "Ana"}))
	require.Len(t, deliveries, 2)
	assert.Equal(t, "Ana", deliveries[1].DisplayName)

	cancel()
	require.NoError(t, s.SetProfile(context.Background(), &models.Profile{UID: "u1", DisplayName: "Bea"}))
	assert.Len(t, deliveries, 2, "no deliveries after cancel")
}

func TestAddMemberGrowsSetOnce(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateGroup(context.Background(), &models.Group{ID: "g1", Name: "G", Members: []string{"u1"}}))

	require.NoError(t, s.AddMember(context.Background(), "g1", "u2"))
	require.NoError(t, s.AddMember(context.Background(), "g1", "u2"))

	g, err := s.GetGroup(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, g.Members)

	assert.ErrorIs(t, s.AddMember(context.Background(), "missing", "u2"), store.ErrNotFound)
}

func TestWatchMemberGroupsFiltersByMembership(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateGroup(context.Background(), &models.Group{ID: "a", Members: []string{"u1"}}))
	require.NoError(t, s.CreateGroup(context.Background(), &models.Group{ID: "b", Members: []string{"u2"}}))

	var latest []models.Group
	cancel, err := s.WatchMemberGroups(context.Background(), "u1", func(gs []models.Group) { latest = gs })
	require.NoError(t, err)
	defer cancel()

	require.Len(t, latest, 1)
	assert.Equal(t, "a", latest[0].ID)

	require.NoError(t, s.AddMember(context.Background(), "b", "u1"))
	require.Len(t, latest, 2)
}

func TestWatchPublicGroupsExcludesPrivate(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateGroup(context.Background(), &models.Group{ID: "pub"}))
	require.NoError(t, s.CreateGroup(context.Background(), &models.Group{ID: "priv", Private: true}))

	var latest []models.Group
	cancel, err := s.WatchPublicGroups(context.Background(), func(gs []models.Group) { latest = gs })
	require.NoError(t, err)
	defer cancel()

	require.Len(t, latest, 1)
	assert.Equal(t, "pub", latest[0].ID)
}

func TestCreateChannelRequiresGroup(t *testing.T) {
	s := New()
	err := s.CreateChannel(context.Background(), "missing", &models.Channel{ID: "general"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestWatchChannelsSortsByID(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateGroup(context.Background(), &models.Group{ID: "g1"}))
	require.NoError(t, s.CreateChannel(context.Background(), "g1", &models.Channel{ID: "zeta"}))
	require.NoError(t, s.CreateChannel(context.Background(), "g1", &models.Channel{ID: "alpha"}))

	var latest []models.Channel
	cancel, err := s.WatchChannels(context.Background(), "g1", func(cs []models.Channel) { latest = cs })
	require.NoError(t, err)
	defer cancel()

	require.Len(t, latest, 2)
	assert.Equal(t, "alpha", latest[0].ID)
	assert.Equal(t, "zeta", latest[1].ID)
}

func TestAppendMessageAssignsIDAndTimestamp(t *testing.T) {
	s := New()

	m := &models.Message{Text: "hi", SenderID: "u1", Type: models.MessageTypeUser}
	require.NoError(t, s.AppendMessage(context.Background(), "g1", "general", m))
	assert.NotEmpty(t, m.ID)
	assert.False(t, m.Timestamp.IsZero())
}

func TestWatchMessagesKeepsArrivalOrderOnTies(t *testing.T) {
	s := New()
	for _, text := range []string{"a", "b", "c"} {
		require.NoError(t, s.AppendMessage(context.Background(), "g1", "general", &models.Message{
			Text: text, SenderID: "u1", Type: models.MessageTypeUser,
		}))
	}

	var latest []models.Message
	cancel, err := s.WatchMessages(context.Background(), "g1", "general", func(msgs []models.Message) { latest = msgs })
	require.NoError(t, err)
	defer cancel()

	require.Len(t, latest, 3)
	assert.Equal(t, "a", latest[0].Text)
	assert.Equal(t, "b", latest[1].Text)
	assert.Equal(t, "c", latest[2].Text)
}

func TestPresenceDefaultsAndListOnline(t *testing.T) {
	s := New()

	var latest string
	cancel, err := s.WatchStatus(context.Background(), "u1", func(status string) { latest = status })
	require.NoError(t, err)
	defer cancel()
	assert.Equal(t, models.StatusOffline, latest)

	require.NoError(t, s.SetStatus(context.Background(), "u1", models.StatusOnline))
	assert.Equal(t, models.StatusOnline, latest)

	online, err := s.ListOnline(context.Background())
	require.NoError(t, err)
	require.Len(t, online, 1)
	assert.Equal(t, "u1", online[0].UID)
}
