package player

// State is the transport state of one output.
//
// Load leaves the output Paused at position 0, so the caller decides when
// audio starts. Reaching the end of the stream also leaves it Paused.
// Stop returns to Stopped and clears the source.
//
//	Stopped --Load--> Paused <--Play/Pause--> Playing
//	any --Stop--> Stopped
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	}
	return "Unknown"
}

// Loaded reports whether a source is loaded.
func (s State) Loaded() bool {
	return s != Stopped
}
