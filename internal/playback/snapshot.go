package playback

import "time"

// Snapshot is a consistent view of the session.
type Snapshot struct {
	Phase    Phase
	Track    *Track
	Index    int
	Position time.Duration
	Duration time.Duration
	Volume   float64
	Muted    bool
	Repeat   RepeatMode
	Shuffle  bool

	WantsPlaying bool
	Crossfading  bool
	Generation   uint64
	Unit         string // name of the active output
	Size         int64  // bytes of the loaded source, 0 if unknown
	Err          *PlaybackError
	Queue        []Track
}

// Snapshot returns the current session state. While a seek is pending the
// position is the requested one.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	track := copyTrack(c.queue.Current())
	if track != nil && c.current != nil && c.current.ID == track.ID {
		track = copyTrack(c.current)
	}
	pos := c.position
	if c.pendingSeek != nil {
		pos = *c.pendingSeek
	}
	active := c.xf.Active()
	return Snapshot{
		Phase:        c.phase,
		Track:        track,
		Index:        c.queue.BaseIndex(),
		Position:     pos,
		Duration:     c.duration,
		Volume:       c.volume,
		Muted:        c.muted,
		Repeat:       c.queue.RepeatMode(),
		Shuffle:      c.queue.Shuffle(),
		WantsPlaying: c.wantsPlaying,
		Crossfading:  c.crossfading,
		Generation:   c.gen,
		Unit:         active.Name(),
		Size:         active.Size(),
		Err:          c.lastErr,
		Queue:        c.queue.Tracks(),
	}
}

// SessionState returns what should be persisted for the session.
func (c *Controller) SessionState() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := SessionState{
		Tracks:   c.queue.Tracks(),
		Index:    c.queue.BaseIndex(),
		Position: c.position,
		Volume:   c.volume,
		Muted:    c.muted,
		Repeat:   c.queue.RepeatMode(),
		Shuffle:  c.queue.Shuffle(),
	}
	if cur := c.queue.Current(); cur != nil {
		st.TrackID = cur.ID
	}
	return st
}

// Convenience wrappers around Dispatch.

func (c *Controller) Play()                          { c.Dispatch(PlayIntent{}) }
func (c *Controller) Pause()                         { c.Dispatch(PauseIntent{}) }
func (c *Controller) Toggle()                        { c.Dispatch(ToggleIntent{}) }
func (c *Controller) Stop()                          { c.Dispatch(StopIntent{}) }
func (c *Controller) Next()                          { c.Dispatch(NextIntent{}) }
func (c *Controller) Previous()                      { c.Dispatch(PreviousIntent{}) }
func (c *Controller) Retry()                         { c.Dispatch(RetryIntent{}) }
func (c *Controller) JumpTo(index int)               { c.Dispatch(JumpIntent{Index: index}) }
func (c *Controller) Seek(pos time.Duration)         { c.Dispatch(SeekIntent{Position: pos}) }
func (c *Controller) SeekBy(delta time.Duration)     { c.Dispatch(SeekByIntent{Delta: delta}) }
func (c *Controller) SetVolume(v float64)            { c.Dispatch(VolumeIntent{Volume: v}) }
func (c *Controller) SetMuted(muted bool)            { c.Dispatch(MuteIntent{Muted: muted}) }
func (c *Controller) SetRepeatMode(m RepeatMode)     { c.Dispatch(RepeatIntent{Mode: m}) }
func (c *Controller) SetShuffle(enabled bool)        { c.Dispatch(ShuffleIntent{Enabled: enabled}) }
func (c *Controller) Remove(index int)               { c.Dispatch(RemoveIntent{Index: index}) }
func (c *Controller) Add(tracks ...Track)            { c.Dispatch(AddIntent{Tracks: tracks}) }
func (c *Controller) Load(tracks []Track, start int) { c.Dispatch(LoadIntent{Tracks: tracks, Start: start}) }
