// Package firestoredb implements the store contracts on Cloud Firestore,
// using the same collection layout as the browser client this service
// fronts: users/{uid}, user_status/{uid} and
// groups/{id}/channels/{cid}/messages.
package firestoredb

import (
	"context"
	"log"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/store"
)

const (
	usersCollection    = "users"
	statusCollection   = "user_status"
	groupsCollection   = "groups"
	channelsCollection = "channels"
	messagesCollection = "messages"
)

type Store struct {
	client *firestore.Client
}

func New(ctx context.Context, projectID string, opts ...option.ClientOption) (*Store, error) {
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, err
	}
	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

var _ store.Store = (*Store)(nil)

// watchCtx pairs a cancellable context with a CancelFunc that is safe to
// call repeatedly.
func watchCtx(parent context.Context) (context.Context, store.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	var once sync.Once
	return ctx, func() { once.Do(cancel) }
}

// --- profiles ---

func (s *Store) profileRef(uid string) *firestore.DocumentRef {
	return s.client.Collection(usersCollection).Doc(uid)
}

func (s *Store) GetProfile(ctx context.Context, uid string) (*models.Profile, error) {
	snap, err := s.profileRef(uid).Get(ctx)
	if err != nil || !snap.Exists() {
		return nil, store.ErrNotFound
	}
	var p models.Profile
	if err := snap.DataTo(&p); err != nil {
		return nil, err
	}
	p.UID = uid
	return &p, nil
}

func (s *Store) SetProfile(ctx context.Context, p *models.Profile) error {
	_, err := s.profileRef(p.UID).Set(ctx, p)
	return err
}

func (s *Store) WatchProfile(ctx context.Context, uid string, fn func(*models.Profile)) (store.CancelFunc, error) {
	wctx, cancel := watchCtx(ctx)
	go func() {
		it := s.profileRef(uid).Snapshots(wctx)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if wctx.Err() == nil {
					log.Printf("[firestore] profile watch uid=%s error=%v", uid, err)
					fn(nil)
				}
				return
			}
			if !snap.Exists() {
				fn(nil)
				continue
			}
			var p models.Profile
			if err := snap.DataTo(&p); err != nil {
				log.Printf("[firestore] profile decode uid=%s error=%v", uid, err)
				fn(nil)
				continue
			}
			p.UID = uid
			fn(&p)
		}
	}()
	return cancel, nil
}

// --- presence ---

func (s *Store) statusRef(uid string) *firestore.DocumentRef {
	return s.client.Collection(statusCollection).Doc(uid)
}

func (s *Store) SetStatus(ctx context.Context, uid string, status string) error {
	_, err := s.statusRef(uid).Set(ctx, map[string]interface{}{
		"status":       status,
		"last_changed": firestore.ServerTimestamp,
	})
	return err
}

func (s *Store) WatchStatus(ctx context.Context, uid string, fn func(string)) (store.CancelFunc, error) {
	wctx, cancel := watchCtx(ctx)
	go func() {
		it := s.statusRef(uid).Snapshots(wctx)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if wctx.Err() == nil {
					log.Printf("[firestore] status watch uid=%s error=%v", uid, err)
					fn(models.StatusOffline)
				}
				return
			}
			status := models.StatusOffline
			if snap.Exists() {
				var rec models.PresenceRecord
				if err := snap.DataTo(&rec); err == nil && rec.Status != "" {
					status = rec.Status
				}
			}
			fn(status)
		}
	}()
	return cancel, nil
}

func (s *Store) ListOnline(ctx context.Context) ([]models.PresenceRecord, error) {
	it := s.client.Collection(statusCollection).
		Where("status", "==", models.StatusOnline).
		Documents(ctx)
	defer it.Stop()

	var out []models.PresenceRecord
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var rec models.PresenceRecord
		if err := snap.DataTo(&rec); err != nil {
			continue
		}
		rec.UID = snap.Ref.ID
		out = append(out, rec)
	}
	return out, nil
}

// --- groups ---

func (s *Store) groupRef(groupID string) *firestore.DocumentRef {
	return s.client.Collection(groupsCollection).Doc(groupID)
}

func (s *Store) CreateGroup(ctx context.Context, g *models.Group) error {
	ref := s.groupRef(g.ID)
	if g.ID == "" {
		ref = s.client.Collection(groupsCollection).NewDoc()
		g.ID = ref.ID
	}
	_, err := ref.Set(ctx, g)
	return err
}

func (s *Store) CreateChannel(ctx context.Context, groupID string, c *models.Channel) error {
	_, err := s.groupRef(groupID).Collection(channelsCollection).Doc(c.ID).Set(ctx, c)
	return err
}

func (s *Store) AddMember(ctx context.Context, groupID, uid string) error {
	_, err := s.groupRef(groupID).Update(ctx, []firestore.Update{
		{Path: "members", Value: firestore.ArrayUnion(uid)},
	})
	return err
}

func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	snap, err := s.groupRef(groupID).Get(ctx)
	if err != nil || !snap.Exists() {
		return nil, store.ErrNotFound
	}
	var g models.Group
	if err := snap.DataTo(&g); err != nil {
		return nil, err
	}
	g.ID = groupID
	return &g, nil
}

func (s *Store) WatchGroup(ctx context.Context, groupID string, fn func(*models.Group)) (store.CancelFunc, error) {
	wctx, cancel := watchCtx(ctx)
	go func() {
		it := s.groupRef(groupID).Snapshots(wctx)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if wctx.Err() == nil {
					log.Printf("[firestore] group watch id=%s error=%v", groupID, err)
					fn(nil)
				}
				return
			}
			if !snap.Exists() {
				fn(nil)
				continue
			}
			var g models.Group
			if err := snap.DataTo(&g); err != nil {
				log.Printf("[firestore] group decode id=%s error=%v", groupID, err)
				fn(nil)
				continue
			}
			g.ID = groupID
			fn(&g)
		}
	}()
	return cancel, nil
}

func (s *Store) WatchMemberGroups(ctx context.Context, uid string, fn func([]models.Group)) (store.CancelFunc, error) {
	q := s.client.Collection(groupsCollection).Where("members", "array-contains", uid)
	return s.watchGroupQuery(ctx, q, "member groups", fn)
}

func (s *Store) WatchPublicGroups(ctx context.Context, fn func([]models.Group)) (store.CancelFunc, error) {
	q := s.client.Collection(groupsCollection).Where("isPrivate", "==", false)
	return s.watchGroupQuery(ctx, q, "public groups", fn)
}

func (s *Store) watchGroupQuery(ctx context.Context, q firestore.Query, desc string, fn func([]models.Group)) (store.CancelFunc, error) {
	wctx, cancel := watchCtx(ctx)
	go func() {
		it := q.Snapshots(wctx)
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if wctx.Err() == nil {
					log.Printf("[firestore] %s watch error=%v", desc, err)
					fn(nil)
				}
				return
			}
			var out []models.Group
			for {
				snap, err := qs.Documents.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					log.Printf("[firestore] %s iterate error=%v", desc, err)
					break
				}
				var g models.Group
				if err := snap.DataTo(&g); err != nil {
					continue
				}
				g.ID = snap.Ref.ID
				out = append(out, g)
			}
			fn(out)
		}
	}()
	return cancel, nil
}

func (s *Store) WatchChannels(ctx context.Context, groupID string, fn func([]models.Channel)) (store.CancelFunc, error) {
	wctx, cancel := watchCtx(ctx)
	go func() {
		it := s.groupRef(groupID).Collection(channelsCollection).
			OrderBy(firestore.DocumentID, firestore.Asc).
			Snapshots(wctx)
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if wctx.Err() == nil {
					log.Printf("[firestore] channels watch group=%s error=%v", groupID, err)
					fn(nil)
				}
				return
			}
			var out []models.Channel
			for {
				snap, err := qs.Documents.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					log.Printf("[firestore] channels iterate group=%s error=%v", groupID, err)
					break
				}
				var c models.Channel
				if err := snap.DataTo(&c); err != nil {
					continue
				}
				c.ID = snap.Ref.ID
				out = append(out, c)
			}
			fn(out)
		}
	}()
	return cancel, nil
}

// --- messages ---

func (s *Store) messagesCol(groupID, channelID string) *firestore.CollectionRef {
	return s.groupRef(groupID).Collection(channelsCollection).Doc(channelID).Collection(messagesCollection)
}

func (s *Store) AppendMessage(ctx context.Context, groupID, channelID string, m *models.Message) error {
	ref := s.messagesCol(groupID, channelID).NewDoc()
	m.ID = ref.ID
	_, err := ref.Set(ctx, m)
	return err
}

func (s *Store) WatchMessages(ctx context.Context, groupID, channelID string, fn func([]models.Message)) (store.CancelFunc, error) {
	wctx, cancel := watchCtx(ctx)
	go func() {
		it := s.messagesCol(groupID, channelID).
			OrderBy("timestamp", firestore.Asc).
			Snapshots(wctx)
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if wctx.Err() == nil {
					log.Printf("[firestore] messages watch group=%s channel=%s error=%v", groupID, channelID, err)
					fn(nil)
				}
				return
			}
			var out []models.Message
			for {
				snap, err := qs.Documents.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					log.Printf("[firestore] messages iterate group=%s channel=%s error=%v", groupID, channelID, err)
					break
				}
				var m models.Message
				if err := snap.DataTo(&m); err != nil {
					continue
				}
				m.ID = snap.Ref.ID
				out = append(out, m)
			}
			fn(out)
		}
	}()
	return cancel, nil
}
