// Package session owns one reactive core per authenticated user: the
// identity stream gates a profile view, presence publication and the group
// resolver, and the composer is built against the session's selected
// channel. Sessions are keyed by uid and referenced from requests by a
// signed bearer token.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/huddlechat/huddle/internal/ai"
	"github.com/huddlechat/huddle/internal/auth"
	"github.com/huddlechat/huddle/internal/live"
	"github.com/huddlechat/huddle/internal/media"
	"github.com/huddlechat/huddle/internal/store"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrNoSession    = errors.New("no active session for token")
)

// Session is the live state of one signed-in user.
type Session struct {
	UID      string
	Identity *live.IdentityStream
	Profile  *live.ProfileView
	Resolver *live.GroupResolver
	Feed     *live.MessageFeed
}

// RouteState snapshots the sources the navigation router derives from.
func (s *Session) RouteState(path string) live.RouteState {
	id, idResolved := s.Identity.Current()
	profile, loading := s.Profile.Current()
	return live.RouteState{
		IdentityResolved: idResolved,
		Identity:         id,
		ProfileResolved:  !loading,
		Profile:          profile,
		Path:             path,
	}
}

// Manager creates, resolves and tears down sessions.
type Manager struct {
	store     store.Store
	provider  auth.Provider
	presence  *live.PresencePublisher
	blobs     media.BlobStore
	responder ai.Responder

	jwtSecret string
	jwtExpiry time.Duration

	mu       sync.Mutex
	sessions map[string]*Session // keyed by uid
}

func NewManager(st store.Store, provider auth.Provider, blobs media.BlobStore, responder ai.Responder, jwtSecret string, jwtExpiry time.Duration) *Manager {
	return &Manager{
		store:     st,
		provider:  provider,
		presence:  live.NewPresencePublisher(st),
		blobs:     blobs,
		responder: responder,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
		sessions:  make(map[string]*Session),
	}
}

// Login signs in with the provider, starts (or reuses) the uid's session,
// publishes the identity, begins the profile watch and the group watches,
// and asserts online presence. It returns a bearer token for the session.
func (m *Manager) Login(ctx context.Context, method auth.Method, credential string) (string, *Session, error) {
	identity, err := m.provider.SignIn(ctx, method, credential)
	if err != nil {
		return "", nil, err
	}

	m.mu.Lock()
	s, ok := m.sessions[identity.UID]
	if !ok {
		s = &Session{
			UID:      identity.UID,
			Identity: live.NewIdentityStream(),
			Profile:  live.NewProfileView(m.store),
			Resolver: live.NewGroupResolver(m.store),
			Feed:     live.NewMessageFeed(m.store),
		}
		m.sessions[identity.UID] = s
	}
	m.mu.Unlock()

	s.Identity.Publish(identity)

	// Watches outlive the login request.
	s.Profile.SetUser(context.Background(), identity.UID)
	if err := s.Resolver.Start(context.Background(), identity.UID); err != nil {
		log.Printf("[session] group watches uid=%s failed: %v", identity.UID, err)
	}
	if err := m.presence.Online(ctx, identity.UID); err != nil {
		log.Printf("[session] online presence write uid=%s failed: %v", identity.UID, err)
	}

	token, err := m.mintToken(identity.UID)
	if err != nil {
		return "", nil, fmt.Errorf("mint session token: %w", err)
	}
	return token, s, nil
}

// Logout writes offline presence, then revokes the provider session, then
// publishes the signed-out identity and releases every watch the session
// holds.
func (m *Manager) Logout(ctx context.Context, uid string) error {
	m.mu.Lock()
	s, ok := m.sessions[uid]
	delete(m.sessions, uid)
	m.mu.Unlock()
	if !ok {
		return nil
	}

	if err := m.presence.Offline(ctx, uid); err != nil {
		log.Printf("[session] offline presence write uid=%s failed: %v", uid, err)
	}
	if err := m.provider.SignOut(ctx, uid); err != nil {
		log.Printf("[session] provider sign-out uid=%s failed: %v", uid, err)
	}

	s.Identity.Publish(nil)
	s.Profile.Close()
	s.Resolver.Close()
	s.Feed.Close()
	return nil
}

// Authenticate resolves a bearer token to its live session.
func (m *Manager) Authenticate(tokenString string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(m.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	uid, ok := claims["user_id"].(string)
	if !ok || uid == "" {
		return nil, ErrInvalidToken
	}

	m.mu.Lock()
	s, ok := m.sessions[uid]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}

// Composer builds a composer for the session against one channel,
// attributing messages to the onboarded profile when present.
func (m *Manager) Composer(s *Session, groupID, channelID string) *live.Composer {
	sender := live.Sender{UID: s.UID}
	if profile, _ := s.Profile.Current(); profile != nil {
		sender.DisplayName = profile.DisplayName
		sender.PhotoURL = profile.PhotoURL
	} else if id, _ := s.Identity.Current(); id != nil {
		sender.DisplayName = id.DisplayName
		sender.PhotoURL = id.PhotoURL
	}
	return live.NewComposer(m.store, m.blobs, m.responder, groupID, channelID, sender)
}

// Shutdown makes the best-effort offline write for every live session, the
// process-teardown analogue of the browser's unload handler. Deliveries
// are not guaranteed.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	uids := make([]string, 0, len(m.sessions))
	for uid := range m.sessions {
		uids = append(uids, uid)
	}
	m.mu.Unlock()
	for _, uid := range uids {
		m.presence.BestEffortOffline(uid)
	}
}

func (m *Manager) mintToken(uid string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": uid,
		"exp":     time.Now().Add(m.jwtExpiry).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.jwtSecret))
}

// Presence exposes the publisher for the route and presence handlers.
func (m *Manager) Presence() *live.PresencePublisher {
	return m.presence
}

// Store exposes the backing store for read-model handlers.
func (m *Manager) Store() store.Store {
	return m.store
}
