// Package live is the client-side view synchronization layer: it decides
// which backend collections to watch, folds live updates into the latest
// value of each source, and derives navigation and composition state from
// whatever values are currently held. No source mutates another's state;
// consumers read the latest values and recompute.
package live

import (
	"sync"

	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/store"
)

// IdentityStream holds the current authenticated identity, or nil. It is
// resolving until the auth provider delivers its first notification; after
// that, nil means logged out. Every provider notification replaces the
// value exactly once — no buffering, no history.
type IdentityStream struct {
	mu       sync.Mutex
	identity *models.Identity
	resolved bool

	subs    map[int]func(*models.Identity, bool)
	nextSub int
}

func NewIdentityStream() *IdentityStream {
	return &IdentityStream{subs: make(map[int]func(*models.Identity, bool))}
}

// Publish records a provider notification: a sign-in, a sign-out (nil), or
// a refresh producing the same identity.
func (s *IdentityStream) Publish(id *models.Identity) {
	s.mu.Lock()
	s.identity = id
	s.resolved = true
	fns := make([]func(*models.Identity, bool), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(id, true)
	}
}

// Current returns the latest identity and whether the stream has resolved.
func (s *IdentityStream) Current() (*models.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, s.resolved
}

// Subscribe registers fn for every subsequent notification and immediately
// delivers the current state.
func (s *IdentityStream) Subscribe(fn func(id *models.Identity, resolved bool)) store.CancelFunc {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	cur, resolved := s.identity, s.resolved
	s.mu.Unlock()

	fn(cur, resolved)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}
