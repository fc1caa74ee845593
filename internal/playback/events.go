package playback

import "time"

// Events delivered through a Subscription.
type (
	StateChange struct {
		Previous Phase
		Current  Phase
	}

	// TrackChange announces a different expected track: after a
	// navigation intent, an automatic advance or a finished crossfade.
	// A repeat=track restart does not produce one.
	TrackChange struct {
		Previous      *Track
		Current       *Track
		PreviousIndex int
		Index         int
	}

	QueueChange struct {
		Tracks []Track
		Index  int
	}

	ModeChange struct {
		RepeatMode RepeatMode
		Shuffle    bool
	}

	// PositionChange follows time updates and applied seeks.
	PositionChange struct {
		Position time.Duration
		Duration time.Duration
	}

	VolumeChange struct {
		Volume float64
		Muted  bool
	}

	// ErrorEvent reports a failure the listener should see.
	ErrorEvent struct {
		Err *PlaybackError
	}
)
