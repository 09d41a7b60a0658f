package live

import (
	"context"
	"log"
	"sync"

	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/store"
)

// ProfileView maintains the live profile of one uid. It is loading from
// the moment a uid is set until the first snapshot (existing or missing)
// arrives; a missing document yields a nil profile, which is the
// onboarding trigger rather than an error.
type ProfileView struct {
	profiles store.ProfileStore

	mu      sync.Mutex
	uid     string
	profile *models.Profile
	loading bool
	cancel  store.CancelFunc
	gen     int
}

func NewProfileView(profiles store.ProfileStore) *ProfileView {
	return &ProfileView{profiles: profiles}
}

// SetUser switches the view to a new uid, tearing down the previous watch
// first so two watches for different uids never overlap. An empty uid
// clears the view.
func (v *ProfileView) SetUser(ctx context.Context, uid string) {
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
	v.profile = nil
	v.loading = uid != ""
	v.mu.Unlock()

	if old != nil {
		old()
	}
	if uid == "" {
		return
	}

	cancel, err := v.profiles.WatchProfile(ctx, uid, func(p *models.Profile) {
		v.mu.Lock()
		if gen != v.gen {
			v.mu.Unlock()
			return
		}
		v.profile = p
		v.loading = false
		v.mu.Unlock()
	})
	if err != nil {
		log.Printf("[live] profile watch uid=%s failed: %v", uid, err)
		v.mu.Lock()
		if gen == v.gen {
			v.loading = false
		}
		v.mu.Unlock()
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

// Current returns the latest profile (nil when missing) and whether the
// first snapshot is still pending.
func (v *ProfileView) Current() (*models.Profile, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.profile, v.loading
}

func (v *ProfileView) Close() {
	v.mu.Lock()
	v.gen++
	cancel := v.cancel
	v.cancel = nil
	v.uid = ""
	v.profile = nil
	v.loading = false
	v.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
