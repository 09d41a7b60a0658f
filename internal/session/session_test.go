package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlechat/huddle/internal/ai"
	"github.com/huddlechat/huddle/internal/auth"
	"github.com/huddlechat/huddle/internal/live"
	"github.com/huddlechat/huddle/internal/media"
	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/store"
	"github.com/huddlechat/huddle/internal/store/memstore"
)

func newTestManager(st *memstore.Store) *Manager {
	return NewManager(
		st,
		auth.NewLocalProvider(),
		media.NewMemoryBlobStore(""),
		&ai.MockResponder{Delay: time.Millisecond},
		"test-secret",
		time.Hour,
	)
}

func TestLoginStartsSessionAndPresence(t *testing.T) {
	st := memstore.New()
	m := newTestManager(st)

	token, s, err := m.Login(context.Background(), auth.MethodAnonymous, "")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.NotEmpty(t, token)

	id, resolved := s.Identity.Current()
	require.True(t, resolved)
	require.NotNil(t, id)
	assert.Equal(t, s.UID, id.UID)
	assert.True(t, id.Anonymous)

	_, loading := s.Profile.Current()
	assert.False(t, loading, "profile watch resolved against the in-memory store")

	online, err := st.ListOnline(context.Background())
	require.NoError(t, err)
	require.Len(t, online, 1)
	assert.Equal(t, s.UID, online[0].UID)
}

// fixedProvider returns the same identity for every sign-in, the way a
// real provider does for a returning user.
type fixedProvider struct{ uid string }

func (p *fixedProvider) SignIn(ctx context.Context, method auth.Method, credential string) (*models.Identity, error) {
	return &models.Identity{UID: p.uid, Anonymous: true}, nil
}

func (p *fixedProvider) SignOut(ctx context.Context, uid string) error { return nil }

// memberWatchCounter tracks how many member-group watches are live across
// the whole store.
type memberWatchCounter struct {
	store.Store
	mu     sync.Mutex
	active int
}

func (s *memberWatchCounter) WatchMemberGroups(ctx context.Context, uid string, fn func([]models.Group)) (store.CancelFunc, error) {
	cancel, err := s.Store.WatchMemberGroups(ctx, uid, fn)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.active++
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.active--
			s.mu.Unlock()
		})
		cancel()
	}, nil
}

func (s *memberWatchCounter) activeWatches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func TestRepeatedLoginDoesNotStackGroupWatches(t *testing.T) {
	st := &memberWatchCounter{Store: memstore.New()}
	m := NewManager(
		st,
		&fixedProvider{uid: "u1"},
		media.NewMemoryBlobStore(""),
		&ai.MockResponder{Delay: time.Millisecond},
		"test-secret",
		time.Hour,
	)

	var s *Session
	for i := 0; i < 3; i++ {
		var err error
		_, s, err = m.Login(context.Background(), auth.MethodAnonymous, "")
		require.NoError(t, err)
	}

	assert.Equal(t, 1, st.activeWatches(), "re-login reuses the session's watches")

	require.NoError(t, m.Logout(context.Background(), s.UID))
	assert.Equal(t, 0, st.activeWatches(), "logout releases the watch")
}

func TestLoginRejectsDisabledMethod(t *testing.T) {
	m := newTestManager(memstore.New())

	_, _, err := m.Login(context.Background(), auth.MethodGoogle, "some-token")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrMethodNotEnabled)
	assert.Equal(t,
		"This sign-in method is not enabled. Please enable it in your project's authentication settings.",
		auth.FriendlyMessage(err))
}

func TestAuthenticateResolvesLiveSession(t *testing.T) {
	m := newTestManager(memstore.New())

	token, s, err := m.Login(context.Background(), auth.MethodAnonymous, "")
	require.NoError(t, err)

	got, err := m.Authenticate(token)
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestAuthenticateRejectsGarbageToken(t *testing.T) {
	m := newTestManager(memstore.New())

	_, err := m.Authenticate("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticateRejectsTokenForDeadSession(t *testing.T) {
	m := newTestManager(memstore.New())

	token, s, err := m.Login(context.Background(), auth.MethodAnonymous, "")
	require.NoError(t, err)
	require.NoError(t, m.Logout(context.Background(), s.UID))

	_, err = m.Authenticate(token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestLogoutWritesOfflineAndClearsIdentity(t *testing.T) {
	st := memstore.New()
	m := newTestManager(st)

	_, s, err := m.Login(context.Background(), auth.MethodAnonymous, "")
	require.NoError(t, err)

	require.NoError(t, m.Logout(context.Background(), s.UID))

	online, err := st.ListOnline(context.Background())
	require.NoError(t, err)
	assert.Empty(t, online)

	id, resolved := s.Identity.Current()
	assert.True(t, resolved)
	assert.Nil(t, id, "signed-out identity reads as nil")
}

func TestLogoutUnknownUIDIsNoOp(t *testing.T) {
	m := newTestManager(memstore.New())
	assert.NoError(t, m.Logout(context.Background(), "ghost"))
}

func TestRouteStateFollowsOnboarding(t *testing.T) {
	st := memstore.New()
	m := newTestManager(st)

	_, s, err := m.Login(context.Background(), auth.MethodAnonymous, "")
	require.NoError(t, err)

	target, redirect := live.Route(s.RouteState(live.PathRoot))
	require.True(t, redirect)
	assert.Equal(t, live.PathOnboarding, target, "no profile yet")

	require.NoError(t, st.SetProfile(context.Background(), &models.Profile{UID: s.UID, DisplayName: "Ana"}))

	target, redirect = live.Route(s.RouteState(live.PathOnboarding))
	require.True(t, redirect)
	assert.Equal(t, live.PathGroups, target)
}

func TestComposerAttributesProfileIdentity(t *testing.T) {
	st := memstore.New()
	m := newTestManager(st)

	_, s, err := m.Login(context.Background(), auth.MethodAnonymous, "")
	require.NoError(t, err)

	require.NoError(t, st.SetProfile(context.Background(), &models.Profile{
		UID:         s.UID,
		DisplayName: "Ana",
		PhotoURL:    "http://example.com/ana.png",
	}))

	c := m.Composer(s, "g1", "general")
	c.SetDraft("hello")
	require.NoError(t, c.Send(context.Background()))
	c.Wait()

	var got []models.Message
	cancel, err := st.WatchMessages(context.Background(), "g1", "general", func(msgs []models.Message) { got = msgs })
	require.NoError(t, err)
	cancel()

	require.Len(t, got, 1)
	assert.Equal(t, s.UID, got[0].SenderID)
	assert.Equal(t, "Ana", got[0].SenderName)
	assert.Equal(t, "http://example.com/ana.png", got[0].SenderPhotoURL)
}
