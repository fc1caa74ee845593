package playback

const eventBufferSize = 16

// Subscription carries controller events to one observer. Sends never
// block: an event is dropped when its channel buffer is full.
type Subscription struct {
	StateChanged    <-chan StateChange
	TrackChanged    <-chan TrackChange
	PositionChanged <-chan PositionChange
	QueueChanged    <-chan QueueChange
	ModeChanged     <-chan ModeChange
	VolumeChanged   <-chan VolumeChange
	Error           <-chan ErrorEvent

	// Done is closed when the controller shuts down.
	Done <-chan struct{}

	state    chan StateChange
	track    chan TrackChange
	position chan PositionChange
	queue    chan QueueChange
	mode     chan ModeChange
	volume   chan VolumeChange
	errs     chan ErrorEvent
	done     chan struct{}
}

func newSubscription() *Subscription {
	s := &Subscription{
		state:    make(chan StateChange, eventBufferSize),
		track:    make(chan TrackChange, eventBufferSize),
		position: make(chan PositionChange, eventBufferSize),
		queue:    make(chan QueueChange, eventBufferSize),
		mode:     make(chan ModeChange, eventBufferSize),
		volume:   make(chan VolumeChange, eventBufferSize),
		errs:     make(chan ErrorEvent, eventBufferSize),
		done:     make(chan struct{}),
	}
	s.StateChanged, s.TrackChanged, s.PositionChanged = s.state, s.track, s.position
	s.QueueChanged, s.ModeChanged, s.VolumeChanged = s.queue, s.mode, s.volume
	s.Error, s.Done = s.errs, s.done
	return s
}

func (s *Subscription) close() { close(s.done) }

// offer sends e without blocking and reports whether it was queued.
func offer[T any](ch chan T, e T) bool {
	select {
	case ch <- e:
		return true
	default:
		return false
	}
}
