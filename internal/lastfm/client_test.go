package lastfm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClient_RequiresSession(t *testing.T) {
	c := New("key", "secret")
	track := ScrobbleTrack{Artist: "a", Track: "t", Timestamp: time.Unix(1000, 0)}

	assert.False(t, c.IsAuthenticated())
	assert.ErrorIs(t, c.UpdateNowPlaying(track), ErrNotAuthenticated)
	assert.ErrorIs(t, c.Scrobble(track), ErrNotAuthenticated)
	assert.ErrorIs(t, c.ScrobbleBatch([]ScrobbleTrack{track}), ErrNotAuthenticated)

	c.SetSessionKey("sk")
	assert.True(t, c.IsAuthenticated())
	assert.Equal(t, "sk", c.SessionKey())
	assert.NoError(t, c.ScrobbleBatch(nil))
}

func TestTrackParams(t *testing.T) {
	p := trackParams(ScrobbleTrack{
		Artist:      "Band",
		Track:       "Song",
		Album:       "LP",
		AlbumArtist: "Band",
		Duration:    3*time.Minute + 400*time.Millisecond,
	})
	assert.Equal(t, "Band", p["artist"])
	assert.Equal(t, "Song", p["track"])
	assert.Equal(t, "LP", p["album"])
	assert.Equal(t, 180, p["duration"])
	assert.NotContains(t, p, "albumArtist")

	p = trackParams(ScrobbleTrack{Artist: "Feat", Track: "Song", AlbumArtist: "Various"})
	assert.Equal(t, "Various", p["albumArtist"])
	assert.NotContains(t, p, "album")
	assert.NotContains(t, p, "duration")
}
