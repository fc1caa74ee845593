// internal/playback/state.go
package playback

import "github.com/llehouerou/wavestream/internal/playlist"

// Phase is the session state as seen by observers.
//
//	Idle -> Loading -> Ready -> Playing <-> Paused
//	Loading/Playing/Paused -> Buffering -> (previous phase)
//	any -> Error
//
// A crossfade runs as an overlay on Playing and is reported separately.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
	PhasePlaying
	PhasePaused
	PhaseBuffering
	PhaseError
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseLoading:
		return "Loading"
	case PhaseReady:
		return "Ready"
	case PhasePlaying:
		return "Playing"
	case PhasePaused:
		return "Paused"
	case PhaseBuffering:
		return "Buffering"
	case PhaseError:
		return "Error"
	default:
		return "Unknown"
	}
}

// IsActive returns true if a track is loaded or being loaded.
func (p Phase) IsActive() bool {
	switch p {
	case PhaseLoading, PhaseReady, PhasePlaying, PhasePaused, PhaseBuffering:
		return true
	default:
		return false
	}
}

// RepeatMode defines the repeat behavior.
type RepeatMode = playlist.RepeatMode

const (
	RepeatOff   = playlist.RepeatOff
	RepeatAll   = playlist.RepeatAll
	RepeatTrack = playlist.RepeatTrack
)
