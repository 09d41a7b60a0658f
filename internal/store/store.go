// Package store defines the persistence contracts the sync layer runs on.
// Implementations deliver an initial snapshot to every watch callback and
// keep delivering snapshots until the returned CancelFunc is invoked.
// Callbacks within one watch arrive in backend emission order; there is no
// ordering guarantee across watches.
package store

import (
	"context"
	"errors"

	"github.com/huddlechat/huddle/internal/models"
)

var (
	ErrNotFound = errors.New("document not found")
)

// CancelFunc stops a live watch. Calling it more than once is safe.
type CancelFunc func()

// ProfileStore persists onboarding profiles, one per uid.
type ProfileStore interface {
	GetProfile(ctx context.Context, uid string) (*models.Profile, error)
	SetProfile(ctx context.Context, p *models.Profile) error
	// WatchProfile delivers the profile for uid, or nil while no document
	// exists, on every change.
	WatchProfile(ctx context.Context, uid string, fn func(*models.Profile)) (CancelFunc, error)
}

// PresenceStore persists the coarse online/offline signal, one record per uid.
// The stored LastChanged timestamp is assigned by the backend.
type PresenceStore interface {
	SetStatus(ctx context.Context, uid string, status string) error
	// WatchStatus delivers models.StatusOnline or models.StatusOffline on
	// every change; a missing record reads as offline.
	WatchStatus(ctx context.Context, uid string, fn func(status string)) (CancelFunc, error)
	// ListOnline returns every record currently marked online.
	ListOnline(ctx context.Context) ([]models.PresenceRecord, error)
}

// GroupStore persists groups and their channel collections.
type GroupStore interface {
	CreateGroup(ctx context.Context, g *models.Group) error
	CreateChannel(ctx context.Context, groupID string, c *models.Channel) error
	// AddMember unions uid into the group's member set; adding an existing
	// member is a no-op.
	AddMember(ctx context.Context, groupID, uid string) error
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	WatchGroup(ctx context.Context, groupID string, fn func(*models.Group)) (CancelFunc, error)
	WatchMemberGroups(ctx context.Context, uid string, fn func([]models.Group)) (CancelFunc, error)
	WatchPublicGroups(ctx context.Context, fn func([]models.Group)) (CancelFunc, error)
	WatchChannels(ctx context.Context, groupID string, fn func([]models.Channel)) (CancelFunc, error)
}

// MessageStore persists the append-only message sequence of each channel.
type MessageStore interface {
	// AppendMessage writes m with a backend-assigned id and timestamp.
	AppendMessage(ctx context.Context, groupID, channelID string, m *models.Message) error
	// WatchMessages delivers the channel's full message sequence, ordered by
	// timestamp ascending, on every change.
	WatchMessages(ctx context.Context, groupID, channelID string, fn func([]models.Message)) (CancelFunc, error)
}

// Store bundles the per-entity contracts a backend adapter provides.
type Store interface {
	ProfileStore
	PresenceStore
	GroupStore
	MessageStore
}
