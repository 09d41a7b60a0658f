package live

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/huddlechat/huddle/internal/models"
)

func TestIdentityStreamStartsUnresolved(t *testing.T) {
	s := NewIdentityStream()
	id, resolved := s.Current()
	assert.Nil(t, id)
	assert.False(t, resolved)
}

func TestIdentityStreamPublishResolves(t *testing.T) {
	s := NewIdentityStream()
	s.Publish(&models.Identity{UID: "u1", DisplayName: "Ana"})

	id, resolved := s.Current()
	assert.True(t, resolved)
	assert.Equal(t, "u1", id.UID)

	// Sign-out: nil with resolved still true.
	s.Publish(nil)
	id, resolved = s.Current()
	assert.True(t, resolved)
	assert.Nil(t, id)
}

func TestIdentityStreamSubscribeDeliversCurrentImmediately(t *testing.T) {
	s := NewIdentityStream()
	s.Publish(&models.Identity{UID: "u1"})

	var got []string
	cancel := s.Subscribe(func(id *models.Identity, resolved bool) {
		if id != nil {
			got = append(got, id.UID)
		} else {
			got = append(got, "<nil>")
		}
	})
	defer cancel()

	assert.Equal(t, []string{"u1"}, got)

	s.Publish(&models.Identity{UID: "u2"})
	assert.Equal(t, []string{"u1", "u2"}, got)
}

func TestIdentityStreamCancelStopsDelivery(t *testing.T) {
	s := NewIdentityStream()

	count := 0
	cancel := s.Subscribe(func(id *models.Identity, resolved bool) { count++ })
	assert.Equal(t, 1, count)

	cancel()
	cancel() // safe to call twice

	s.Publish(&models.Identity{UID: "u1"})
	assert.Equal(t, 1, count)
}
