package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func contextWithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}

// snapshotMessages takes one delivery from the channel's message watch and
// tears the watch down again.
func snapshotMessages(ctx context.Context, messages store.MessageStore, groupID, channelID string) ([]models.Message, error) {
	out := make(chan []models.Message, 1)
	cancel, err := messages.WatchMessages(ctx, groupID, channelID, func(msgs []models.Message) {
		select {
		case out <- msgs:
		default:
		}
	})
	if err != nil {
		return nil, err
	}
	defer cancel()

	select {
	case msgs := <-out:
		return msgs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// snapshotGroup takes one delivery from the group's document watch; a
// missing group delivers nil.
func snapshotGroup(ctx context.Context, groups store.GroupStore, groupID string) (*models.Group, error) {
	out := make(chan *models.Group, 1)
	cancel, err := groups.WatchGroup(ctx, groupID, func(g *models.Group) {
		select {
		case out <- g:
		default:
		}
	})
	if err != nil {
		return nil, err
	}
	defer cancel()

	select {
	case g := <-out:
		return g, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// snapshotChannels takes one delivery from the group's channel watch.
func snapshotChannels(ctx context.Context, groups store.GroupStore, groupID string) ([]models.Channel, error) {
	out := make(chan []models.Channel, 1)
	cancel, err := groups.WatchChannels(ctx, groupID, func(cs []models.Channel) {
		select {
		case out <- cs:
		default:
		}
	})
	if err != nil {
		return nil, err
	}
	defer cancel()

	select {
	case cs := <-out:
		return cs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// snapshotStatus takes one delivery from the uid's presence watch.
func snapshotStatus(ctx context.Context, presence store.PresenceStore, uid string) (string, error) {
	out := make(chan string, 1)
	cancel, err := presence.WatchStatus(ctx, uid, func(status string) {
		select {
		case out <- status:
		default:
		}
	})
	if err != nil {
		return "", err
	}
	defer cancel()

	select {
	case status := <-out:
		return status, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
