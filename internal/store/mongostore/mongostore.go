// Package mongostore implements the store contracts on MongoDB. Live
// watches pair an initial query with a collection change stream: every
// stream event triggers a re-query so subscribers always receive the full
// current snapshot. Change streams require a replica set deployment.
package mongostore

import (
	"context"
	"crypto/tls"
	"log"
	"sync"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/store"
)

type Store struct {
	client   *mongo.Client
	profiles *mongo.Collection
	presence *mongo.Collection
	groups   *mongo.Collection
	channels *mongo.Collection
	messages *mongo.Collection
}

func New(ctx context.Context, mongoURI, dbName string) (*Store, error) {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI).SetTLSConfig(tlsCfg))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	s := &Store{
		client:   client,
		profiles: db.Collection("profiles"),
		presence: db.Collection("presence"),
		groups:   db.Collection("groups"),
		channels: db.Collection("channels"),
		messages: db.Collection("messages"),
	}

	// Best-effort indexes.
	_, _ = s.channels.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "group_id", Value: 1}},
	})
	_, _ = s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "channel_id", Value: 1}, {Key: "timestamp", Value: 1}},
	})

	return s, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

var _ store.Store = (*Store)(nil)

type channelDoc struct {
	ID      string `bson:"_id"`
	GroupID string `bson:"group_id"`
	Name    string `bson:"name"`
}

type messageDoc struct {
	models.Message `bson:",inline"`
	GroupID        string `bson:"group_id"`
	ChannelID      string `bson:"channel_id"`
}

// watch runs deliver once for the initial snapshot, then again on every
// change-stream event for col until the returned CancelFunc fires.
func (s *Store) watch(ctx context.Context, col *mongo.Collection, desc string, deliver func(ctx context.Context)) (store.CancelFunc, error) {
	wctx, cancel := context.WithCancel(ctx)

	cs, err := col.Watch(wctx, mongo.Pipeline{})
	if err != nil {
		cancel()
		return nil, err
	}

	deliver(wctx)

	go func() {
		defer cs.Close(context.Background())
		for cs.Next(wctx) {
			deliver(wctx)
		}
		if err := cs.Err(); err != nil && wctx.Err() == nil {
			log.Printf("[mongo] %s change stream error=%v", desc, err)
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

// --- profiles ---

func (s *Store) GetProfile(ctx context.Context, uid string) (*models.Profile, error) {
	var p models.Profile
	if err := s.profiles.FindOne(ctx, bson.M{"_id": uid}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) SetProfile(ctx context.Context, p *models.Profile) error {
	_, err := s.profiles.ReplaceOne(ctx, bson.M{"_id": p.UID}, p, options.Replace().SetUpsert(true))
	return err
}

func (s *Store) WatchProfile(ctx context.Context, uid string, fn func(*models.Profile)) (store.CancelFunc, error) {
	return s.watch(ctx, s.profiles, "profile", func(ctx context.Context) {
		p, err := s.GetProfile(ctx, uid)
		if err != nil && err != store.ErrNotFound {
			log.Printf("[mongo] profile query uid=%s error=%v", uid, err)
			p = nil
		}
		fn(p)
	})
}

// --- presence ---

func (s *Store) SetStatus(ctx context.Context, uid string, status string) error {
	_, err := s.presence.UpdateByID(ctx, uid,
		bson.M{
			"$set":         bson.M{"status": status},
			"$currentDate": bson.M{"last_changed": true},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *Store) WatchStatus(ctx context.Context, uid string, fn func(string)) (store.CancelFunc, error) {
	return s.watch(ctx, s.presence, "presence", func(ctx context.Context) {
		status := models.StatusOffline
		var rec models.PresenceRecord
		if err := s.presence.FindOne(ctx, bson.M{"_id": uid}).Decode(&rec); err == nil && rec.Status != "" {
			status = rec.Status
		}
		fn(status)
	})
}

func (s *Store) ListOnline(ctx context.Context) ([]models.PresenceRecord, error) {
	cur, err := s.presence.Find(ctx, bson.M{"status": models.StatusOnline})
	if err != nil {
		return nil, err
	}
	var out []models.PresenceRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- groups ---

func (s *Store) CreateGroup(ctx context.Context, g *models.Group) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	_, err := s.groups.InsertOne(ctx, g)
	return err
}

func (s *Store) CreateChannel(ctx context.Context, groupID string, c *models.Channel) error {
	_, err := s.channels.InsertOne(ctx, channelDoc{ID: c.ID, GroupID: groupID, Name: c.Name})
	return err
}

func (s *Store) AddMember(ctx context.Context, groupID, uid string) error {
	res, err := s.groups.UpdateByID(ctx, groupID, bson.M{"$addToSet": bson.M{"members": uid}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	var g models.Group
	if err := s.groups.FindOne(ctx, bson.M{"_id": groupID}).Decode(&g); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (s *Store) WatchGroup(ctx context.Context, groupID string, fn func(*models.Group)) (store.CancelFunc, error) {
	return s.watch(ctx, s.groups, "group", func(ctx context.Context) {
		g, err := s.GetGroup(ctx, groupID)
		if err != nil && err != store.ErrNotFound {
			log.Printf("[mongo] group query id=%s error=%v", groupID, err)
			g = nil
		}
		fn(g)
	})
}

func (s *Store) WatchMemberGroups(ctx context.Context, uid string, fn func([]models.Group)) (store.CancelFunc, error) {
	return s.watch(ctx, s.groups, "member groups", func(ctx context.Context) {
		fn(s.queryGroups(ctx, bson.M{"members": uid}))
	})
}

func (s *Store) WatchPublicGroups(ctx context.Context, fn func([]models.Group)) (store.CancelFunc, error) {
	return s.watch(ctx, s.groups, "public groups", func(ctx context.Context) {
		fn(s.queryGroups(ctx, bson.M{"is_private": false}))
	})
}

func (s *Store) queryGroups(ctx context.Context, filter bson.M) []models.Group {
	cur, err := s.groups.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		log.Printf("[mongo] groups query error=%v", err)
		return nil
	}
	var out []models.Group
	if err := cur.All(ctx, &out); err != nil {
		log.Printf("[mongo] groups decode error=%v", err)
		return nil
	}
	return out
}

func (s *Store) WatchChannels(ctx context.Context, groupID string, fn func([]models.Channel)) (store.CancelFunc, error) {
	return s.watch(ctx, s.channels, "channels", func(ctx context.Context) {
		cur, err := s.channels.Find(ctx, bson.M{"group_id": groupID},
			options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
		if err != nil {
			log.Printf("[mongo] channels query group=%s error=%v", groupID, err)
			fn(nil)
			return
		}
		var docs []channelDoc
		if err := cur.All(ctx, &docs); err != nil {
			log.Printf("[mongo] channels decode group=%s error=%v", groupID, err)
			fn(nil)
			return
		}
		out := make([]models.Channel, 0, len(docs))
		for _, d := range docs {
			out = append(out, models.Channel{ID: d.ID, Name: d.Name})
		}
		fn(out)
	})
}

// --- messages ---

func (s *Store) AppendMessage(ctx context.Context, groupID, channelID string, m *models.Message) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	// $currentDate gives the message a server-assigned timestamp.
	_, err := s.messages.UpdateByID(ctx, m.ID,
		bson.M{
			"$set": bson.M{
				"group_id":         groupID,
				"channel_id":       channelID,
				"text":             m.Text,
				"sender_id":        m.SenderID,
				"sender_name":      m.SenderName,
				"sender_photo_url": m.SenderPhotoURL,
				"type":             m.Type,
			},
			"$currentDate": bson.M{"timestamp": true},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *Store) WatchMessages(ctx context.Context, groupID, channelID string, fn func([]models.Message)) (store.CancelFunc, error) {
	return s.watch(ctx, s.messages, "messages", func(ctx context.Context) {
		cur, err := s.messages.Find(ctx,
			bson.M{"group_id": groupID, "channel_id": channelID},
			options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}}))
		if err != nil {
			log.Printf("[mongo] messages query group=%s channel=%s error=%v", groupID, channelID, err)
			fn(nil)
			return
		}
		var docs []messageDoc
		if err := cur.All(ctx, &docs); err != nil {
			log.Printf("[mongo] messages decode group=%s channel=%s error=%v", groupID, channelID, err)
			fn(nil)
			return
		}
		out := make([]models.Message, 0, len(docs))
		for _, d := range docs {
			out = append(out, d.Message)
		}
		fn(out)
	})
}
