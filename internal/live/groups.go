package live

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/store"
)

// GroupResolver maintains the two independent group views of one user —
// the groups they belong to and the discoverable public groups — plus the
// live channel list of the currently selected group. The member and public
// watches are independent; their updates may arrive in either order.
type GroupResolver struct {
	groups store.GroupStore

	mu           sync.Mutex
	uid          string
	startGen     int
	memberGroups []models.Group
	publicGroups []models.Group

	selectedGroupID string
	channels        []models.Channel
	selectedChannel *models.Channel
	channelGen      int
	channelCancel   store.CancelFunc

	cancels []store.CancelFunc
}

func NewGroupResolver(groups store.GroupStore) *GroupResolver {
	return &GroupResolver{groups: groups}
}

// Start begins the sidebar and discovery watches for uid. Calling it again
// for the same uid is a no-op; a different uid tears the old watches down
// first, so two watch pairs never run at once.
func (r *GroupResolver) Start(ctx context.Context, uid string) error {
	r.mu.Lock()
	if uid == r.uid && len(r.cancels) > 0 {
		r.mu.Unlock()
		return nil
	}
	r.startGen++
	gen := r.startGen
	old := r.cancels
	r.cancels = nil
	r.uid = uid
	r.memberGroups = nil
	r.publicGroups = nil
	r.mu.Unlock()

	for _, c := range old {
		c()
	}

	memberCancel, err := r.groups.WatchMemberGroups(ctx, uid, func(gs []models.Group) {
		r.mu.Lock()
		if gen == r.startGen {
			r.memberGroups = gs
		}
		r.mu.Unlock()
	})
	if err != nil {
		return fmt.Errorf("watch member groups: %w", err)
	}

	publicCancel, err := r.groups.WatchPublicGroups(ctx, func(gs []models.Group) {
		r.mu.Lock()
		if gen == r.startGen {
			r.publicGroups = gs
		}
		r.mu.Unlock()
	})
	if err != nil {
		memberCancel()
		return fmt.Errorf("watch public groups: %w", err)
	}

	r.mu.Lock()
	if gen != r.startGen {
		r.mu.Unlock()
		memberCancel()
		publicCancel()
		return nil
	}
	r.cancels = append(r.cancels, memberCancel, publicCancel)
	r.mu.Unlock()
	return nil
}

// SelectGroup switches the channel watch to groupID, tearing the previous
// watch down first. When the channel list goes from empty to non-empty and
// nothing is selected, the first channel in id order is selected
// automatically.
func (r *GroupResolver) SelectGroup(ctx context.Context, groupID string) {
	r.mu.Lock()
	if groupID == r.selectedGroupID && r.channelCancel != nil {
		r.mu.Unlock()
		return
	}
	r.channelGen++
	gen := r.channelGen
	old := r.channelCancel
	r.channelCancel = nil
	r.selectedGroupID = groupID
	r.channels = nil
	r.selectedChannel = nil
	r.mu.Unlock()

	if old != nil {
		old()
	}
	if groupID == "" {
		return
	}

	cancel, err := r.groups.WatchChannels(ctx, groupID, func(cs []models.Channel) {
		sort.Slice(cs, func(i, j int) bool { return cs[i].ID < cs[j].ID })
		r.mu.Lock()
		if gen != r.channelGen {
			r.mu.Unlock()
			return
		}
		r.channels = cs
		if r.selectedChannel == nil && len(cs) > 0 {
			first := cs[0]
			r.selectedChannel = &first
		}
		r.mu.Unlock()
	})
	if err != nil {
		log.Printf("[live] channels watch group=%s failed: %v", groupID, err)
		return
	}

	r.mu.Lock()
	if gen != r.channelGen {
		r.mu.Unlock()
		cancel()
		return
	}
	r.channelCancel = cancel
	r.mu.Unlock()
}

// SelectChannel picks a channel from the current list by id. Unknown ids
// are ignored.
func (r *GroupResolver) SelectChannel(channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.channels {
		if c.ID == channelID {
			ch := c
			r.selectedChannel = &ch
			return
		}
	}
}

func (r *GroupResolver) MemberGroups() []models.Group {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Group(nil), r.memberGroups...)
}

func (r *GroupResolver) PublicGroups() []models.Group {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Group(nil), r.publicGroups...)
}

func (r *GroupResolver) Channels() []models.Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Channel(nil), r.channels...)
}

// SelectedChannel returns the current channel, or nil when none is
// selected (a group with zero channels stays in this state).
func (r *GroupResolver) SelectedChannel() *models.Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selectedChannel == nil {
		return nil
	}
	ch := *r.selectedChannel
	return &ch
}

func (r *GroupResolver) Close() {
	r.mu.Lock()
	r.channelGen++
	r.startGen++
	cancels := r.cancels
	if r.channelCancel != nil {
		cancels = append(cancels, r.channelCancel)
	}
	r.cancels = nil
	r.channelCancel = nil
	r.mu.Unlock()
	for _, c := range cancels {
		c()
	}
}

// CreateGroupParams describes a new group. The password only applies to
// private groups; it is stored hashed and the join path does not check it.
type CreateGroupParams struct {
	Name     string
	Private  bool
	Password string
}

// CreateGroup writes the group record with the creator as sole member,
// then the default "general" channel. The two writes are sequential, not
// atomic: when the channel write fails the group exists with zero channels
// and the returned error reports the partial failure.
func (r *GroupResolver) CreateGroup(ctx context.Context, p CreateGroupParams) (*models.Group, error) {
	r.mu.Lock()
	uid := r.uid
	r.mu.Unlock()

	g := &models.Group{
		ID:      uuid.New().String(),
		Name:    p.Name,
		OwnerID: uid,
		Private: p.Private,
		IconURL: groupIconURL(p.Name),
		Members: []string{uid},
	}
	if p.Private && p.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash group password: %w", err)
		}
		g.PasswordHash = string(hash)
	}

	if err := r.groups.CreateGroup(ctx, g); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}

	general := &models.Channel{ID: models.DefaultChannelName, Name: models.DefaultChannelName}
	if err := r.groups.CreateChannel(ctx, g.ID, general); err != nil {
		return g, fmt.Errorf("create default channel: %w", err)
	}
	return g, nil
}

// JoinGroup adds uid to the group's member set. Joining a group the user
// already belongs to is a no-op.
func (r *GroupResolver) JoinGroup(ctx context.Context, groupID string) error {
	r.mu.Lock()
	uid := r.uid
	r.mu.Unlock()
	return r.groups.AddMember(ctx, groupID, uid)
}

func groupIconURL(name string) string {
	return "https://api.dicebear.com/7.x/initials/svg?seed=" + url.QueryEscape(name)
}
