package lastfm

import (
	"time"

	"github.com/llehouerou/wavestream/internal/playback"
	"github.com/llehouerou/wavestream/internal/state"
)

// ScrobbleTrack contains track metadata for scrobbling.
type ScrobbleTrack struct {
	Artist      string
	Track       string
	Album       string
	AlbumArtist string
	Duration    time.Duration
	Timestamp   time.Time // When playback started
}

func fromTrack(t playback.Track, startedAt time.Time) ScrobbleTrack {
	return ScrobbleTrack{
		Artist:    t.Artist,
		Track:     t.Title,
		Album:     t.Album,
		Duration:  t.Duration,
		Timestamp: startedAt,
	}
}

func fromPending(p state.PendingScrobble) ScrobbleTrack {
	return ScrobbleTrack{
		Artist:    p.Artist,
		Track:     p.Track,
		Album:     p.Album,
		Duration:  time.Duration(p.DurationSecs) * time.Second,
		Timestamp: p.Timestamp,
	}
}

func toPending(trackID string, st ScrobbleTrack) state.PendingScrobble {
	return state.PendingScrobble{
		TrackID:      trackID,
		Artist:       st.Artist,
		Track:        st.Track,
		Album:        st.Album,
		DurationSecs: int(st.Duration.Seconds()),
		Timestamp:    st.Timestamp,
	}
}

// ScrobbleState tracks the listening progress of the current track.
type ScrobbleState struct {
	Track     playback.Track
	StartedAt time.Time     // When playback started
	Listened  time.Duration // Time actually played
	lastPos   time.Duration
	playing   bool
	maxPos    time.Duration
}

// duration returns the track length, estimated from the furthest position
// reached when unknown.
func (s *ScrobbleState) duration() time.Duration {
	if s.Track.Duration > 0 {
		return s.Track.Duration
	}
	return s.maxPos
}

// Eligible reports whether the play qualifies as a scrobble: the track is
// longer than 30 seconds and was played for half its length or 4 minutes,
// whichever comes first.
func (s *ScrobbleState) Eligible() bool {
	if s.Track.Artist == "" || s.Track.Title == "" {
		return false
	}
	d := s.duration()
	if d <= MinTrackLength {
		return false
	}
	return s.Listened >= min(d/2, MaxListenThreshold)
}
