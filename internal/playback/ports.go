package playback

import (
	"context"
	"time"
)

// Refresher fetches a fresh stream URL for a track whose URL expired.
// An empty URL with a nil error means the album page no longer offers the
// track.
type Refresher interface {
	Refresh(ctx context.Context, trackID, albumURL string) (string, error)
}

// Reporter receives listening history. Calls are made while the
// controller holds its lock, so implementations must not block.
type Reporter interface {
	StartTrack(t Track)
	UpdateProgress(pos time.Duration, playing bool)
	StopTrack(sendImmediately bool)
}

// SessionState is the persisted part of a session, read once at startup.
type SessionState struct {
	Tracks   []Track
	Index    int
	TrackID  string
	Position time.Duration
	Volume   float64
	Muted    bool
	Repeat   RepeatMode
	Shuffle  bool
}

type nopReporter struct{}

func (nopReporter) StartTrack(Track)                   {}
func (nopReporter) UpdateProgress(time.Duration, bool) {}
func (nopReporter) StopTrack(bool)                     {}
