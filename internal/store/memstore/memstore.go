// Package memstore is a mutex-guarded, in-process implementation of the
// store contracts. It backs tests and local development where no external
// backend is configured.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/store"
)

type watcher struct {
	topic   string
	deliver func()
}

type Store struct {
	mu       sync.RWMutex
	profiles map[string]*models.Profile
	presence map[string]*models.PresenceRecord
	groups   map[string]*models.Group
	channels map[string][]models.Channel // groupID -> channels
	messages map[string][]models.Message // groupID+"/"+channelID -> messages, arrival order

	watchMu   sync.Mutex
	watchers  map[int]*watcher
	nextWatch int
}

func New() *Store {
	return &Store{
		profiles: make(map[string]*models.Profile),
		presence: make(map[string]*models.PresenceRecord),
		groups:   make(map[string]*models.Group),
		channels: make(map[string][]models.Channel),
		messages: make(map[string][]models.Message),
		watchers: make(map[int]*watcher),
	}
}

var _ store.Store = (*Store)(nil)

// topic names; a mutation notifies every watcher registered on its topic.
func topicProfile(uid string) string  { return "profile/" + uid }
func topicPresence(uid string) string { return "presence/" + uid }
func topicGroups() string             { return "groups" }
func topicChannels(gid string) string { return "channels/" + gid }
func topicMessages(gid, cid string) string {
	return "messages/" + gid + "/" + cid
}

func (s *Store) addWatcher(topic string, deliver func()) store.CancelFunc {
	s.watchMu.Lock()
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = &watcher{topic: topic, deliver: deliver}
	s.watchMu.Unlock()

	// Initial snapshot.
	deliver()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.watchMu.Lock()
			delete(s.watchers, id)
			s.watchMu.Unlock()
		})
	}
}

func (s *Store) notify(topic string) {
	s.watchMu.Lock()
	var fire []func()
	for _, w := range s.watchers {
		if w.topic == topic {
			fire = append(fire, w.deliver)
		}
	}
	s.watchMu.Unlock()
	for _, f := range fire {
		f()
	}
}

// --- profiles ---

func (s *Store) GetProfile(ctx context.Context, uid string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[uid]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) SetProfile(ctx context.Context, p *models.Profile) error {
	s.mu.Lock()
	cp := *p
	s.profiles[p.UID] = &cp
	s.mu.Unlock()
	s.notify(topicProfile(p.UID))
	return nil
}

func (s *Store) WatchProfile(ctx context.Context, uid string, fn func(*models.Profile)) (store.CancelFunc, error) {
	deliver := func() {
		s.mu.RLock()
		var cp *models.Profile
		if p, ok := s.profiles[uid]; ok {
			c := *p
			cp = &c
		}
		s.mu.RUnlock()
		fn(cp)
	}
	return s.addWatcher(topicProfile(uid), deliver), nil
}

// --- presence ---

func (s *Store) SetStatus(ctx context.Context, uid string, status string) error {
	s.mu.Lock()
	s.presence[uid] = &models.PresenceRecord{
		UID:         uid,
		Status:      status,
		LastChanged: time.Now().UTC(),
	}
	s.mu.Unlock()
	s.notify(topicPresence(uid))
	return nil
}

func (s *Store) WatchStatus(ctx context.Context, uid string, fn func(string)) (store.CancelFunc, error) {
	deliver := func() {
		s.mu.RLock()
		status := models.StatusOffline
		if rec, ok := s.presence[uid]; ok {
			status = rec.Status
		}
		s.mu.RUnlock()
		fn(status)
	}
	return s.addWatcher(topicPresence(uid), deliver), nil
}

func (s *Store) ListOnline(ctx context.Context) ([]models.PresenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.PresenceRecord
	for _, rec := range s.presence {
		if rec.Status == models.StatusOnline {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

// --- groups ---

func (s *Store) CreateGroup(ctx context.Context, g *models.Group) error {
	s.mu.Lock()
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	cp := *g
	cp.Members = append([]string(nil), g.Members...)
	s.groups[g.ID] = &cp
	s.mu.Unlock()
	s.notify(topicGroups())
	return nil
}

func (s *Store) CreateChannel(ctx context.Context, groupID string, c *models.Channel) error {
	s.mu.Lock()
	if _, ok := s.groups[groupID]; !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	s.channels[groupID] = append(s.channels[groupID], *c)
	s.mu.Unlock()
	s.notify(topicChannels(groupID))
	return nil
}

func (s *Store) AddMember(ctx context.Context, groupID, uid string) error {
	s.mu.Lock()
	g, ok := s.groups[groupID]
	if !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	if !g.HasMember(uid) {
		g.Members = append(g.Members, uid)
	}
	s.mu.Unlock()
	s.notify(topicGroups())
	return nil
}

func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyGroup(g), nil
}

func (s *Store) WatchGroup(ctx context.Context, groupID string, fn func(*models.Group)) (store.CancelFunc, error) {
	deliver := func() {
		s.mu.RLock()
		var cp *models.Group
		if g, ok := s.groups[groupID]; ok {
			cp = copyGroup(g)
		}
		s.mu.RUnlock()
		fn(cp)
	}
	return s.addWatcher(topicGroups(), deliver), nil
}

func (s *Store) WatchMemberGroups(ctx context.Context, uid string, fn func([]models.Group)) (store.CancelFunc, error) {
	deliver := func() {
		s.mu.RLock()
		out := s.selectGroups(func(g *models.Group) bool { return g.HasMember(uid) })
		s.mu.RUnlock()
		fn(out)
	}
	return s.addWatcher(topicGroups(), deliver), nil
}

func (s *Store) WatchPublicGroups(ctx context.Context, fn func([]models.Group)) (store.CancelFunc, error) {
	deliver := func() {
		s.mu.RLock()
		out := s.selectGroups(func(g *models.Group) bool { return !g.Private })
		s.mu.RUnlock()
		fn(out)
	}
	return s.addWatcher(topicGroups(), deliver), nil
}

func (s *Store) WatchChannels(ctx context.Context, groupID string, fn func([]models.Channel)) (store.CancelFunc, error) {
	deliver := func() {
		s.mu.RLock()
		out := append([]models.Channel(nil), s.channels[groupID]...)
		s.mu.RUnlock()
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		fn(out)
	}
	return s.addWatcher(topicChannels(groupID), deliver), nil
}

// selectGroups must be called with at least a read lock held.
func (s *Store) selectGroups(keep func(*models.Group) bool) []models.Group {
	var out []models.Group
	for _, g := range s.groups {
		if keep(g) {
			out = append(out, *copyGroup(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func copyGroup(g *models.Group) *models.Group {
	cp := *g
	cp.Members = append([]string(nil), g.Members...)
	return &cp
}

// --- messages ---

func (s *Store) AppendMessage(ctx context.Context, groupID, channelID string, m *models.Message) error {
	key := messageKey(groupID, channelID)
	s.mu.Lock()
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.Timestamp = time.Now().UTC()
	s.messages[key] = append(s.messages[key], *m)
	s.mu.Unlock()
	s.notify(topicMessages(groupID, channelID))
	return nil
}

func (s *Store) WatchMessages(ctx context.Context, groupID, channelID string, fn func([]models.Message)) (store.CancelFunc, error) {
	key := messageKey(groupID, channelID)
	deliver := func() {
		s.mu.RLock()
		out := append([]models.Message(nil), s.messages[key]...)
		s.mu.RUnlock()
		// Arrival order already breaks timestamp ties.
		sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
		fn(out)
	}
	return s.addWatcher(topicMessages(groupID, channelID), deliver), nil
}

func messageKey(groupID, channelID string) string {
	return strings.Join([]string{groupID, channelID}, "/")
}
