package playback

import (
	"time"

	"github.com/llehouerou/wavestream/internal/player"
)

// Event is anything the controller reacts to: user intents, output
// events and completions of its own asynchronous work.
type Event interface {
	isEvent()
}

// Intents.
type (
	PlayIntent     struct{}
	PauseIntent    struct{}
	ToggleIntent   struct{}
	StopIntent     struct{}
	NextIntent     struct{}
	PreviousIntent struct{}
	RetryIntent    struct{}
	JumpIntent     struct{ Index int }
	SeekIntent     struct{ Position time.Duration }
	SeekByIntent   struct{ Delta time.Duration }
	VolumeIntent   struct{ Volume float64 }
	MuteIntent     struct{ Muted bool }
	RepeatIntent   struct{ Mode RepeatMode }
	ShuffleIntent  struct{ Enabled bool }
	RemoveIntent   struct{ Index int }
	AddIntent      struct{ Tracks []Track }
	LoadIntent     struct {
		Tracks []Track
		Start  int
	}
)

// OutputEvent wraps an event emitted by one of the outputs.
type OutputEvent struct {
	player.Event
}

// Completions of asynchronous work, tagged with the generation that
// started them.
type (
	loadDone struct {
		gen uint64
		url string
		err error
	}
	refreshDone struct {
		gen uint64
		id  string
		url string
		err error
	}
	crossfadeDone struct {
		gen    uint64
		target Track
		same   bool
		err    error
	}
	retryDue struct {
		gen uint64
	}
)

func (PlayIntent) isEvent()     {}
func (PauseIntent) isEvent()    {}
func (ToggleIntent) isEvent()   {}
func (StopIntent) isEvent()     {}
func (NextIntent) isEvent()     {}
func (PreviousIntent) isEvent() {}
func (RetryIntent) isEvent()    {}
func (JumpIntent) isEvent()     {}
func (SeekIntent) isEvent()     {}
func (SeekByIntent) isEvent()   {}
func (VolumeIntent) isEvent()   {}
func (MuteIntent) isEvent()     {}
func (RepeatIntent) isEvent()   {}
func (ShuffleIntent) isEvent()  {}
func (RemoveIntent) isEvent()   {}
func (AddIntent) isEvent()      {}
func (LoadIntent) isEvent()     {}
func (OutputEvent) isEvent()    {}
func (loadDone) isEvent()       {}
func (refreshDone) isEvent()    {}
func (crossfadeDone) isEvent()  {}
func (retryDue) isEvent()       {}
