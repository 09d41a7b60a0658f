package live

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/store"
)

// PresencePublisher writes the current user's online/offline status. The
// backend assigns the record timestamp.
type PresencePublisher struct {
	presence store.PresenceStore
}

func NewPresencePublisher(presence store.PresenceStore) *PresencePublisher {
	return &PresencePublisher{presence: presence}
}

// Online is called when an identity appears.
func (p *PresencePublisher) Online(ctx context.Context, uid string) error {
	return p.presence.SetStatus(ctx, uid, models.StatusOnline)
}

// Offline is called on explicit logout, before the session is revoked.
func (p *PresencePublisher) Offline(ctx context.Context, uid string) error {
	return p.presence.SetStatus(ctx, uid, models.StatusOffline)
}

// BestEffortOffline is the unload-time write: a short deadline, no retry,
// failure only logged. The execution context may disappear before the
// write lands; that is accepted.
func (p *PresencePublisher) BestEffortOffline(uid string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.presence.SetStatus(ctx, uid, models.StatusOffline); err != nil {
		log.Printf("[live] best-effort offline write uid=%s failed: %v", uid, err)
	}
}

// StatusView maintains the live online/offline value for one uid,
// defaulting to offline while unresolved or on error. It never writes.
type StatusView struct {
	presence store.PresenceStore

	mu     sync.Mutex
	uid    string
	status string
	cancel store.CancelFunc
	gen    int
}

func NewStatusView(presence store.PresenceStore) *StatusView {
	return &StatusView{presence: presence, status: models.StatusOffline}
}

// SetUser switches the view to a new uid, tearing the old watch down
// first. An empty uid clears the view to offline.
func (v *StatusView) SetUser(ctx context.Context, uid string) {
	v.mu.Lock()
	if uid == v.uid && v.cancel != nil {
		v.mu.Unlock()
		return
	}
	v.gen++
	gen := v.gen
	old := v.cancel
	v.cancel = nil
	v.uid = uid
	v.status = models.StatusOffline
	v.mu.Unlock()

	if old != nil {
		old()
	}
	if uid == "" {
		return
	}

	cancel, err := v.presence.WatchStatus(ctx, uid, func(status string) {
		v.mu.Lock()
		if gen == v.gen {
			v.status = status
		}
		v.mu.Unlock()
	})
	if err != nil {
		log.Printf("[live] status watch uid=%s failed: %v", uid, err)
		return
	}

	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		cancel()
		return
	}
	v.cancel = cancel
	v.mu.Unlock()
}

// Current returns the latest status for the watched uid.
func (v *StatusView) Current() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

func (v *StatusView) Close() {
	v.mu.Lock()
	v.gen++
	cancel := v.cancel
	v.cancel = nil
	v.status = models.StatusOffline
	v.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
