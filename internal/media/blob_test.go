package media

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBlobStorePutAndGet(t *testing.T) {
	s := NewMemoryBlobStore("")

	url, err := s.Put(context.Background(), "chat_media/g1/cat.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "mem://blobs/chat_media/g1/cat.png", url)

	data, ok := s.Get("chat_media/g1/cat.png")
	require.True(t, ok)
	assert.Equal(t, "png-bytes", string(data))

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestScreenedBlobStorePassesNonImagesThrough(t *testing.T) {
	inner := NewMemoryBlobStore("")
	s := &ScreenedBlobStore{Inner: inner}

	url, err := s.Put(context.Background(), "voice_messages/g1/1.webm", "audio/webm", strings.NewReader("webm-bytes"))
	require.NoError(t, err)
	assert.Contains(t, url, "voice_messages/g1/1.webm")

	_, ok := inner.Get("voice_messages/g1/1.webm")
	assert.True(t, ok, "non-image uploads skip screening entirely")
}
