package playback

// Subscribe returns a new subscription. Events are dropped for subscribers
// that fall behind.
func (c *Controller) Subscribe() *Subscription {
	sub := newSubscription()
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	c.subs = append(c.subs, sub)
	return sub
}

func (c *Controller) broadcast(send func(*Subscription)) {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	for _, sub := range c.subs {
		send(sub)
	}
}

func (c *Controller) setPhase(p Phase) {
	if p == c.phase {
		return
	}
	prev := c.phase
	c.phase = p
	c.logger.Debug().Stringer("from", prev).Stringer("to", p).Uint64("gen", c.gen).Msg("phase")
	e := StateChange{Previous: prev, Current: p}
	c.broadcast(func(s *Subscription) { offer(s.state, e) })
}

// notifyTrack announces the expected track if it differs from the last
// announced one.
func (c *Controller) notifyTrack() {
	idx := c.queue.BaseIndex()
	if c.notified != nil && c.current != nil &&
		c.notified.ID == c.current.ID && c.notifiedIdx == idx {
		return
	}
	e := TrackChange{
		Previous:      c.notified,
		Current:       copyTrack(c.current),
		PreviousIndex: c.notifiedIdx,
		Index:         idx,
	}
	c.notified = copyTrack(c.current)
	c.notifiedIdx = idx
	c.logger.Info().Str("track", e.Current.ID).Int("index", idx).Msg("track changed")
	c.broadcast(func(s *Subscription) { offer(s.track, e) })
}

func (c *Controller) notifyQueue() {
	e := QueueChange{Tracks: c.queue.Tracks(), Index: c.queue.BaseIndex()}
	c.broadcast(func(s *Subscription) { offer(s.queue, e) })
}

func (c *Controller) notifyMode() {
	e := ModeChange{RepeatMode: c.queue.RepeatMode(), Shuffle: c.queue.Shuffle()}
	c.broadcast(func(s *Subscription) { offer(s.mode, e) })
}

func (c *Controller) notifyPosition() {
	e := PositionChange{Position: c.position, Duration: c.duration}
	c.broadcast(func(s *Subscription) { offer(s.position, e) })
}

func (c *Controller) notifyVolume() {
	e := VolumeChange{Volume: c.volume, Muted: c.muted}
	c.broadcast(func(s *Subscription) { offer(s.volume, e) })
}

func (c *Controller) notifyError(pe *PlaybackError) {
	e := ErrorEvent{Err: pe}
	c.broadcast(func(s *Subscription) { offer(s.errs, e) })
}
