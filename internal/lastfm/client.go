package lastfm

import (
	"errors"
	"fmt"

	"github.com/shkh/lastfm-go/lastfm"
)

// ErrNotAuthenticated is returned by submissions made without a session key.
var ErrNotAuthenticated = errors.New("lastfm: no session key")

// MaxBatch is the most plays one scrobble request may carry.
const MaxBatch = 50

// Scrobbler is the part of the Last.fm API the reporter uses.
type Scrobbler interface {
	IsAuthenticated() bool
	UpdateNowPlaying(track ScrobbleTrack) error
	Scrobble(track ScrobbleTrack) error
	ScrobbleBatch(tracks []ScrobbleTrack) error
}

var _ Scrobbler = (*Client)(nil)

// Client submits plays through the Last.fm web API.
type Client struct {
	api        *lastfm.Api
	sessionKey string
}

func New(apiKey, apiSecret string) *Client {
	return &Client{api: lastfm.New(apiKey, apiSecret)}
}

func (c *Client) SetSessionKey(key string) {
	c.sessionKey = key
	c.api.SetSession(key)
}

func (c *Client) SessionKey() string   { return c.sessionKey }
func (c *Client) IsAuthenticated() bool { return c.sessionKey != "" }

// UpdateNowPlaying announces the track as currently playing.
func (c *Client) UpdateNowPlaying(track ScrobbleTrack) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if _, err := c.api.Track.UpdateNowPlaying(trackParams(track)); err != nil {
		return fmt.Errorf("update now playing %q: %w", track.Track, err)
	}
	return nil
}

// Scrobble records one play.
func (c *Client) Scrobble(track ScrobbleTrack) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	p := trackParams(track)
	p["timestamp"] = track.Timestamp.Unix()
	if _, err := c.api.Track.Scrobble(p); err != nil {
		return fmt.Errorf("scrobble %q: %w", track.Track, err)
	}
	return nil
}

// ScrobbleBatch records up to MaxBatch plays in one request; extra plays
// are ignored.
func (c *Client) ScrobbleBatch(tracks []ScrobbleTrack) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	tracks = tracks[:min(len(tracks), MaxBatch)]
	if len(tracks) == 0 {
		return nil
	}

	var (
		artists    = make([]string, len(tracks))
		titles     = make([]string, len(tracks))
		albums     = make([]string, len(tracks))
		timestamps = make([]int64, len(tracks))
	)
	for i, t := range tracks {
		artists[i], titles[i], albums[i] = t.Artist, t.Track, t.Album
		timestamps[i] = t.Timestamp.Unix()
	}
	p := lastfm.P{"artist": artists, "track": titles, "album": albums, "timestamp": timestamps}
	if _, err := c.api.Track.Scrobble(p); err != nil {
		return fmt.Errorf("scrobble batch of %d: %w", len(tracks), err)
	}
	return nil
}

func trackParams(t ScrobbleTrack) lastfm.P {
	p := lastfm.P{"artist": t.Artist, "track": t.Track}
	if t.Album != "" {
		p["album"] = t.Album
	}
	if t.AlbumArtist != "" && t.AlbumArtist != t.Artist {
		p["albumArtist"] = t.AlbumArtist
	}
	if t.Duration > 0 {
		p["duration"] = int(t.Duration.Seconds())
	}
	return p
}
