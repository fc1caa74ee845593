// Package playback reconciles what the user wants to hear with what the
// outputs are actually doing.
//
// All state lives behind a single Dispatch entry point. Asynchronous work
// (loads, URL refreshes, crossfades, retry timers) runs in goroutines that
// report back through Dispatch with the generation they were started
// under; completions from an older generation are dropped.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/llehouerou/wavestream/internal/crossfade"
	"github.com/llehouerou/wavestream/internal/errmsg"
	"github.com/llehouerou/wavestream/internal/loadattempt"
	"github.com/llehouerou/wavestream/internal/player"
	"github.com/llehouerou/wavestream/internal/playlist"
)

// Defaults used when a Config field is zero.
const (
	DefaultEndTolerance     = 500 * time.Millisecond
	DefaultPauseGuard       = 2 * time.Second
	DefaultRestoreTolerance = 500 * time.Millisecond
	DefaultRestartThreshold = 3 * time.Second
	DefaultRefreshTimeout   = 15 * time.Second
)

// Config tunes the controller.
type Config struct {
	// CrossfadeLead is how long before the natural end a crossfade starts.
	// Zero uses the crossfade duration.
	CrossfadeLead time.Duration
	// EndTolerance is the distance from the end within which an ended
	// event is always genuine.
	EndTolerance time.Duration
	// PauseGuard is how long after a pause an ended event away from the
	// end is ignored.
	PauseGuard time.Duration
	// RestoreTolerance is the minimum drift for a restored position to
	// trigger a seek.
	RestoreTolerance time.Duration
	// RestartThreshold is the position past which Previous restarts the
	// current track.
	RestartThreshold time.Duration
	RefreshTimeout   time.Duration
	MaxAttempts      int
	RetryBackoff     time.Duration
}

func (c Config) withDefaults() Config {
	if c.EndTolerance <= 0 {
		c.EndTolerance = DefaultEndTolerance
	}
	if c.PauseGuard <= 0 {
		c.PauseGuard = DefaultPauseGuard
	}
	if c.RestoreTolerance <= 0 {
		c.RestoreTolerance = DefaultRestoreTolerance
	}
	if c.RestartThreshold <= 0 {
		c.RestartThreshold = DefaultRestartThreshold
	}
	if c.RefreshTimeout <= 0 {
		c.RefreshTimeout = DefaultRefreshTimeout
	}
	return c
}

// Option configures a Controller.
type Option func(*Controller)

// WithRefresher sets the stream URL refresher. Without one, expired URLs
// are retried as-is.
func WithRefresher(r Refresher) Option {
	return func(c *Controller) { c.refresher = r }
}

// WithReporter sets the listening history reporter.
func WithReporter(r Reporter) Option {
	return func(c *Controller) { c.reporter = r }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

type restorePoint struct {
	trackID  string
	position time.Duration
}

// Controller is the playback session controller.
type Controller struct {
	cfg       Config
	xf        *crossfade.Coordinator
	queue     *playlist.PlayingQueue
	tracker   *loadattempt.Tracker
	refresher Refresher
	reporter  Reporter
	logger    zerolog.Logger
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu sync.Mutex

	// generation identifies the expected load; loadedGen is the generation
	// whose source is decodable on the active output.
	gen       uint64
	loadedGen uint64

	phase       Phase
	resumePhase Phase // phase to return to when buffering ends
	current     *Track
	expectedID  string
	expectedURL string

	wantsPlaying bool
	autoPlay     bool
	volume       float64
	muted        bool

	position    time.Duration
	duration    time.Duration
	pendingSeek *time.Duration
	restore     *restorePoint
	restored    bool

	lastPause    time.Time
	crossfading  bool
	xfTriggered  uint64 // generation for which a crossfade was already attempted
	started      bool   // reporter saw StartTrack for the current generation
	notified     *Track // last track announced through TrackChange
	notifiedIdx  int
	lastErr      *PlaybackError
	retryTimer   *time.Timer
	loadCancel   context.CancelFunc
	loadIdle     chan struct{} // closed when the last issued load returned
	closed       bool

	subs   []*Subscription
	subsMu sync.RWMutex
}

// New creates a controller driving xf and q.
func New(xf *crossfade.Coordinator, q *playlist.PlayingQueue, cfg Config, opts ...Option) *Controller {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:         cfg,
		xf:          xf,
		queue:       q,
		tracker:     loadattempt.New(loadattempt.Policy{MaxAttempts: cfg.MaxAttempts, Backoff: cfg.RetryBackoff}),
		reporter:    nopReporter{},
		logger:      zerolog.Nop(),
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
		volume:      xf.Volume(),
		notifiedIdx: -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "playback").Logger()
	return c
}

// Dispatch applies one event. It never blocks on I/O.
func (c *Controller) Dispatch(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.handle(ev)
}

func (c *Controller) handle(ev Event) {
	switch e := ev.(type) {
	case PlayIntent:
		c.play()
	case PauseIntent:
		c.pause()
	case ToggleIntent:
		if c.wantsPlaying {
			c.pause()
		} else {
			c.play()
		}
	case StopIntent:
		c.stop()
	case NextIntent:
		c.next()
	case PreviousIntent:
		c.previous()
	case RetryIntent:
		c.retry()
	case JumpIntent:
		c.jumpTo(e.Index)
	case SeekIntent:
		c.seek(e.Position)
	case SeekByIntent:
		c.seek(c.position + e.Delta)
	case VolumeIntent:
		c.setVolume(e.Volume, c.muted)
	case MuteIntent:
		c.setVolume(c.volume, e.Muted)
	case RepeatIntent:
		c.queue.SetRepeatMode(e.Mode)
		c.notifyMode()
	case ShuffleIntent:
		c.queue.SetShuffle(e.Enabled)
		c.notifyMode()
		c.notifyQueue()
	case RemoveIntent:
		c.remove(e.Index)
	case AddIntent:
		c.queue.Add(e.Tracks...)
		c.notifyQueue()
	case LoadIntent:
		c.load(e.Tracks, e.Start)
	case OutputEvent:
		c.onOutput(e.Event)
	case loadDone:
		c.onLoadDone(e)
	case refreshDone:
		c.onRefreshDone(e)
	case crossfadeDone:
		c.onCrossfadeDone(e)
	case retryDue:
		c.onRetryDue(e)
	default:
		c.logger.Warn().Type("event", ev).Msg("unknown event")
	}
}

// Run forwards output events into Dispatch until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	go c.xf.Run(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-c.xf.Events():
			c.Dispatch(OutputEvent{Event: e})
		}
	}
}

// Close stops asynchronous work and ends all subscriptions.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.cancel()
	c.stopRetryTimer()
	c.xf.Cancel()
	if c.started {
		c.reporter.StopTrack(false)
		c.started = false
	}
	c.mu.Unlock()

	c.subsMu.Lock()
	for _, sub := range c.subs {
		sub.close()
	}
	c.subs = nil
	c.subsMu.Unlock()
	return nil
}

// Restore applies a persisted session. Only the first call has an effect.
// The current track is preloaded without playing; its saved position is
// applied once the output is ready.
func (c *Controller) Restore(st SessionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.restored || c.closed {
		return
	}
	c.restored = true

	c.queue.Replace(st.Index, st.Tracks...)
	c.queue.SetRepeatMode(st.Repeat)
	if st.Shuffle {
		c.queue.SetShuffle(true)
	}
	c.setVolume(st.Volume, st.Muted)
	c.notifyQueue()
	c.notifyMode()

	cur := c.queue.Current()
	if cur == nil {
		return
	}
	c.loadCurrent(false)
	if st.TrackID == cur.ID && st.Position > 0 {
		c.restore = &restorePoint{trackID: cur.ID, position: st.Position}
		c.position = st.Position
	}
	c.logger.Info().Str("track", cur.ID).Dur("position", st.Position).Msg("session restored")
}

// --- intents ---

func (c *Controller) play() {
	if c.queue.IsEmpty() {
		c.logger.Debug().Err(ErrEmptyQueue).Msg("play ignored")
		return
	}
	c.wantsPlaying = true
	switch c.phase {
	case PhaseError:
		if cur := c.queue.Current(); cur != nil {
			c.tracker.Reset(cur.ID)
		}
		c.loadCurrent(true)
	case PhaseIdle:
		if c.queue.Current() == nil {
			c.queue.JumpTo(0)
		}
		c.loadCurrent(false)
	case PhaseLoading, PhaseBuffering:
		c.autoPlay = true
	case PhaseReady, PhasePaused:
		c.autoPlay = true
		if c.loadedGen == c.gen {
			c.reconcileAutoPlay()
		}
	case PhasePlaying:
	}
}

func (c *Controller) pause() {
	c.wantsPlaying = false
	c.autoPlay = false
	c.lastPause = c.now()
	c.cancelCrossfade()
	switch c.phase {
	case PhasePlaying, PhaseBuffering:
		c.xf.Active().Pause()
		c.setPhase(PhasePaused)
		c.reporter.UpdateProgress(c.position, false)
	}
}

func (c *Controller) stop() {
	c.cancelCrossfade()
	if c.started {
		c.reporter.StopTrack(false)
		c.started = false
	}
	c.xf.Active().Stop()
	c.bumpGeneration("stop")
	c.wantsPlaying = false
	c.autoPlay = false
	c.position = 0
	c.pendingSeek = nil
	c.setPhase(PhaseIdle)
	c.notifyPosition()
}

// changeTrack cancels any crossfade, moves the queue and force-loads the
// new current track, reporting the old one as skipped.
func (c *Controller) changeTrack(move func() *Track) bool {
	c.cancelCrossfade()
	if move() == nil {
		return false
	}
	if c.started {
		c.reporter.StopTrack(false)
		c.started = false
	}
	c.loadCurrent(true)
	return true
}

func (c *Controller) next() {
	c.queue.ExpandForLoopIfNeeded()
	if !c.changeTrack(c.queue.Advance) {
		c.logger.Debug().Msg("no next track")
	}
}

func (c *Controller) previous() {
	if c.position > c.cfg.RestartThreshold && c.loadedGen == c.gen {
		c.seek(0)
		return
	}
	if !c.changeTrack(c.queue.Retreat) {
		c.seek(0)
	}
}

func (c *Controller) jumpTo(index int) {
	if index == c.queue.BaseIndex() && c.isLoaded() {
		if c.wantsPlaying && c.phase != PhasePlaying {
			c.reconcileAutoPlay()
		}
		return
	}
	if !c.changeTrack(func() *Track { return c.queue.JumpTo(index) }) {
		c.logger.Debug().Int("index", index).Msg("jump out of range")
	}
}

func (c *Controller) retry() {
	cur := c.queue.Current()
	if cur == nil {
		c.logger.Debug().Err(ErrNoCurrentTrack).Msg("retry ignored")
		return
	}
	c.tracker.Reset(cur.ID)
	c.wantsPlaying = true
	c.loadCurrent(true)
}

func (c *Controller) load(tracks []Track, start int) {
	c.cancelCrossfade()
	c.queue.Replace(start, tracks...)
	c.notifyQueue()

	cur := c.queue.Current()
	if cur == nil {
		c.stop()
		return
	}
	if c.started && !c.isLoadedTrack(cur) {
		c.reporter.StopTrack(false)
		c.started = false
	}
	c.wantsPlaying = true
	c.loadCurrent(false)
}

func (c *Controller) remove(index int) {
	wasCurrent := index == c.queue.BaseIndex()
	if !c.queue.RemoveAt(index) {
		return
	}
	c.notifyQueue()
	if !wasCurrent {
		return
	}
	if c.started {
		c.reporter.StopTrack(false)
		c.started = false
	}
	if c.queue.Current() == nil {
		c.stop()
		return
	}
	if c.phase.IsActive() {
		c.cancelCrossfade()
		c.loadCurrent(true)
	}
}

func (c *Controller) seek(pos time.Duration) {
	active := c.xf.Active()
	ready := c.isLoaded()
	dur := c.duration
	if ready {
		if d := active.Duration(); d > 0 {
			dur = d
		}
	}
	if dur <= 0 {
		c.logger.Debug().Err(ErrSeekUnavailable).Msg("seek rejected")
		return
	}
	pos = min(max(pos, 0), dur)
	c.cancelCrossfade()
	c.xfTriggered = 0

	if !ready {
		c.pendingSeek = &pos
		c.position = pos
		c.notifyPosition()
		return
	}
	if err := active.Seek(pos); err != nil {
		c.logger.Warn().Err(err).Str("op", string(errmsg.OpPlaybackSeek)).Msg("seek failed")
		return
	}
	c.position = pos
	c.notifyPosition()
}

func (c *Controller) setVolume(v float64, muted bool) {
	c.volume = min(max(v, 0), 1)
	c.muted = muted
	eff := c.volume
	if muted {
		eff = 0
	}
	c.xf.SetVolume(eff)
	c.notifyVolume()
}

// --- loading ---

func (c *Controller) isLoaded() bool {
	if c.loadedGen != c.gen {
		return false
	}
	active := c.xf.Active()
	return !active.Loading() && player.SourceMatches(active.Source(), c.expectedURL)
}

func (c *Controller) isLoadedTrack(t *Track) bool {
	return t.ID == c.expectedID && t.StreamURL == c.expectedURL && c.isLoaded()
}

func (c *Controller) bumpGeneration(reason string) {
	c.gen++
	c.stopRetryTimer()
	c.logger.Debug().Uint64("gen", c.gen).Str("reason", reason).Msg("generation")
}

func (c *Controller) stopRetryTimer() {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
}

// loadCurrent makes the queue's current track the expected one and starts
// loading it on the active output. Without force, a track that is already
// loaded is left alone.
func (c *Controller) loadCurrent(force bool) {
	t := c.queue.Current()
	if t == nil {
		c.stop()
		return
	}
	if !force && c.isLoadedTrack(t) {
		if c.wantsPlaying && c.phase != PhasePlaying {
			c.autoPlay = true
			c.reconcileAutoPlay()
		}
		return
	}

	if t.ID != c.expectedID {
		c.tracker.Retain(t.ID)
		c.started = false
	}
	c.bumpGeneration("load")
	c.current = copyTrack(t)
	c.expectedID = t.ID
	c.expectedURL = t.StreamURL
	c.autoPlay = c.wantsPlaying
	c.position = 0
	c.duration = t.Duration
	c.pendingSeek = nil
	c.lastErr = nil
	c.setPhase(PhaseLoading)
	c.notifyTrack()

	if t.StreamURL == "" {
		c.onLoadFailure(fmt.Errorf("%w: no stream URL", player.ErrExpired))
		return
	}

	active := c.xf.Active()
	gen, url := c.gen, t.StreamURL
	c.logger.Debug().Uint64("gen", gen).Str("track", t.ID).Str("unit", active.Name()).Msg("loading")

	// loads run one at a time in issue order so that an older load can
	// never land on the output after a newer one
	if c.loadCancel != nil {
		c.loadCancel()
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.loadCancel = cancel
	prev, idle := c.loadIdle, make(chan struct{})
	c.loadIdle = idle
	go func() {
		defer close(idle)
		defer cancel()
		if prev != nil {
			<-prev
		}
		err := active.Load(ctx, url)
		c.Dispatch(loadDone{gen: gen, url: url, err: err})
	}()
}

func (c *Controller) onLoadDone(e loadDone) {
	if e.gen != c.gen {
		c.logger.Debug().Uint64("gen", e.gen).Uint64("current", c.gen).Msg("stale load completion dropped")
		return
	}
	if e.err != nil {
		c.onLoadFailure(e.err)
		return
	}

	active := c.xf.Active()
	c.loadedGen = c.gen
	if d := active.Duration(); d > 0 {
		c.duration = d
	}
	c.fillMetadata(active.Metadata())
	c.setPhase(PhaseReady)
	c.applyRestore(active)
	c.applyPendingSeek(active)
	if c.autoPlay {
		c.reconcileAutoPlay()
	}
}

// reconcileAutoPlay starts playback once the active output holds the
// expected source and is no longer loading.
func (c *Controller) reconcileAutoPlay() {
	active := c.xf.Active()
	if active.Loading() || !player.SourceMatches(active.Source(), c.expectedURL) {
		c.logger.Debug().Str("loaded", active.Source()).Msg("auto-play deferred")
		return
	}
	c.startPlayback()
}

func (c *Controller) startPlayback() {
	active := c.xf.Active()
	if err := active.Play(); err != nil {
		if errors.Is(err, player.ErrNoSource) {
			c.autoPlay = c.wantsPlaying
			return
		}
		c.fail(ErrPlaybackRejected, errmsg.OpPlaybackStart, err)
		return
	}
	c.autoPlay = false
	c.setPhase(PhasePlaying)
	if !c.started && c.current != nil {
		c.reportStart()
	}
}

func (c *Controller) reportStart() {
	c.started = true
	t := *c.current
	if t.Duration <= 0 {
		t.Duration = c.duration
	}
	c.reporter.StartTrack(t)
}

func (c *Controller) onLoadFailure(err error) {
	t := c.current
	if t == nil {
		return
	}
	refreshable := t.CanRefresh() && c.refresher != nil
	d := c.tracker.Decide(t.ID, err, refreshable)
	log := c.logger.With().Str("track", t.ID).Int("attempts", d.Attempts).Err(err).Logger()

	switch d.Action {
	case loadattempt.Ignore:
		log.Debug().Msg("aborted load swallowed")
	case loadattempt.Refresh:
		log.Info().Msg("stream URL expired, refreshing")
		c.setPhase(PhaseLoading)
		gen, id, album := c.gen, t.ID, t.AlbumURL
		go func() {
			ctx, cancel := context.WithTimeout(c.ctx, c.cfg.RefreshTimeout)
			defer cancel()
			url, rerr := c.refresher.Refresh(ctx, id, album)
			c.Dispatch(refreshDone{gen: gen, id: id, url: url, err: rerr})
		}()
	case loadattempt.Retry:
		log.Info().Dur("delay", d.Delay).Msg("load failed, retrying")
		c.setPhase(PhaseLoading)
		gen := c.gen
		c.stopRetryTimer()
		c.retryTimer = time.AfterFunc(d.Delay, func() {
			c.Dispatch(retryDue{gen: gen})
		})
	case loadattempt.GiveUp:
		c.fail(ErrExhaustedRetries, errmsg.OpTrackLoad, fmt.Errorf("%w: %w", classifyLoad(err), err))
	case loadattempt.Reject:
		c.fail(ErrPlaybackRejected, errmsg.OpPlaybackStart, err)
	}
}

func classifyLoad(err error) error {
	if errors.Is(err, player.ErrExpired) {
		return ErrExpiredSource
	}
	return ErrTransientLoad
}

func (c *Controller) onRefreshDone(e refreshDone) {
	if e.gen != c.gen {
		c.logger.Debug().Uint64("gen", e.gen).Msg("stale refresh dropped")
		return
	}
	if e.err != nil || e.url == "" {
		err := e.err
		if err == nil {
			err = errors.New("no fresh stream URL offered")
		}
		c.onLoadFailure(fmt.Errorf("%s: %w", errmsg.OpStreamRefresh, err))
		return
	}
	n := c.queue.UpdateStreamURL(e.id, e.url)
	c.logger.Info().Str("track", e.id).Int("entries", n).Msg("stream URL refreshed")
	c.notifyQueue()
	c.loadCurrent(true)
}

func (c *Controller) onRetryDue(e retryDue) {
	if e.gen != c.gen {
		return
	}
	c.retryTimer = nil
	c.loadCurrent(true)
}

func (c *Controller) fail(kind error, op errmsg.Op, cause error) {
	c.wantsPlaying = false
	c.autoPlay = false
	pe := newPlaybackError(kind, op, c.current, cause)
	c.lastErr = pe
	c.setPhase(PhaseError)
	c.logger.Warn().Str("track", pe.TrackID).Err(cause).Msg(pe.Message)
	c.notifyError(pe)
}

func (c *Controller) fillMetadata(md *player.Metadata) {
	if md == nil || c.current == nil {
		return
	}
	if c.current.Title == "" {
		c.current.Title = md.Title
	}
	if c.current.Artist == "" {
		c.current.Artist = md.Artist
	}
	if c.current.Album == "" {
		c.current.Album = md.Album
	}
}

func (c *Controller) applyRestore(active player.Output) {
	rp := c.restore
	if rp == nil {
		return
	}
	c.restore = nil
	if rp.trackID != c.expectedID || c.crossfading || active.State() == player.Playing {
		return
	}
	drift := rp.position - active.Position()
	if drift < 0 {
		drift = -drift
	}
	if drift <= c.cfg.RestoreTolerance {
		return
	}
	pos := rp.position
	if c.duration > 0 {
		pos = min(pos, c.duration)
	}
	if err := active.Seek(pos); err != nil {
		c.logger.Warn().Err(err).Msg("restore seek failed")
		return
	}
	c.pendingSeek = nil
	c.position = pos
	c.notifyPosition()
}

func (c *Controller) applyPendingSeek(active player.Output) {
	if c.pendingSeek == nil {
		return
	}
	pos := *c.pendingSeek
	c.pendingSeek = nil
	if err := active.Seek(pos); err != nil {
		c.logger.Warn().Err(err).Msg("pending seek failed")
		return
	}
	c.position = pos
	c.notifyPosition()
}

// --- output events ---

func (c *Controller) onOutput(e player.Event) {
	// standby events never drive the session
	if !c.xf.IsActive(e.Unit) {
		return
	}
	if c.crossfading {
		switch e.Kind {
		case player.EventTimeUpdate, player.EventDurationChange, player.EventEnded:
			return
		}
	}
	current := c.isLoaded()

	switch e.Kind {
	case player.EventTimeUpdate:
		if !current {
			return
		}
		c.position = e.Position
		if c.phase == PhaseBuffering {
			c.setPhase(c.resumePhase)
		}
		c.reporter.UpdateProgress(e.Position, c.phase == PhasePlaying)
		c.notifyPosition()
		c.maybeStartCrossfade()
	case player.EventDurationChange:
		if current && e.Duration > 0 {
			c.duration = e.Duration
		}
	case player.EventWaiting:
		if current && (c.phase == PhasePlaying || c.phase == PhasePaused) {
			c.resumePhase = c.phase
			c.setPhase(PhaseBuffering)
		}
	case player.EventCanPlay:
		if c.phase == PhaseBuffering {
			c.setPhase(c.resumePhase)
		}
	case player.EventEnded:
		if current {
			c.onEnded()
		}
	case player.EventError:
		if current {
			c.loadedGen = 0
			c.onLoadFailure(e.Err)
		}
	}
}

func (c *Controller) onEnded() {
	switch c.phase {
	case PhasePlaying, PhasePaused, PhaseBuffering:
	default:
		return
	}
	pos := max(c.position, c.xf.Active().Position())
	atEnd := c.duration > 0 && c.duration-pos <= c.cfg.EndTolerance
	if !atEnd && !c.lastPause.IsZero() && c.now().Sub(c.lastPause) < c.cfg.PauseGuard {
		c.logger.Debug().Dur("position", pos).Msg("ended right after pause ignored")
		return
	}
	c.onGenuineEnd()
}

func (c *Controller) onGenuineEnd() {
	if c.started {
		c.reporter.StopTrack(true)
		c.started = false
	}
	active := c.xf.Active()

	switch {
	case c.queue.RepeatMode() == RepeatTrack:
		if err := active.Seek(0); err != nil {
			c.loadCurrent(true)
			return
		}
		c.position = 0
		c.notifyPosition()
		if c.wantsPlaying {
			c.startPlayback()
		}
	case c.queue.HasNext():
		c.queue.Advance()
		c.loadCurrent(true)
	case c.queue.RepeatMode() == RepeatAll:
		c.cancelCrossfade()
		active.Stop()
		c.loadedGen = 0
		c.queue.RestartLoop()
		c.notifyQueue()
		c.loadCurrent(true)
	default:
		c.cancelCrossfade()
		active.Stop()
		c.bumpGeneration("end of queue")
		c.wantsPlaying = false
		c.autoPlay = false
		c.position = 0
		c.setPhase(PhaseIdle)
		c.notifyPosition()
	}
}

// --- crossfade ---

func (c *Controller) maybeStartCrossfade() {
	fade := c.xf.Duration()
	if fade <= 0 || c.crossfading || c.xfTriggered == c.gen || c.phase != PhasePlaying {
		return
	}
	lead := c.cfg.CrossfadeLead
	if lead <= 0 {
		lead = fade
	}
	if c.duration <= 0 || c.duration-c.position > lead {
		return
	}
	c.xfTriggered = c.gen

	same := c.queue.RepeatMode() == RepeatTrack
	var next *Track
	if same {
		next = c.queue.Current()
	} else {
		c.queue.ExpandForLoopIfNeeded()
		next = c.queue.Peek(1)
	}
	if next == nil || next.StreamURL == "" {
		return
	}

	target := *next
	gen := c.gen
	c.crossfading = true
	c.logger.Info().Str("to", target.ID).Dur("fade", fade).Msg("crossfade started")
	go func() {
		err := c.xf.CrossfadeTo(c.ctx, target.StreamURL)
		c.Dispatch(crossfadeDone{gen: gen, target: target, same: same, err: err})
	}()
}

func (c *Controller) cancelCrossfade() {
	if !c.crossfading {
		return
	}
	c.xf.Cancel()
	c.crossfading = false
	c.xfTriggered = 0
}

func (c *Controller) onCrossfadeDone(e crossfadeDone) {
	if e.gen != c.gen {
		c.logger.Debug().Uint64("gen", e.gen).Msg("stale crossfade completion dropped")
		return
	}
	c.crossfading = false
	if errors.Is(e.err, crossfade.ErrCancelled) {
		return
	}

	if c.started {
		c.reporter.StopTrack(true)
		c.started = false
	}
	if !e.same {
		c.queue.Advance()
	}
	t := c.queue.Current()
	if t == nil {
		t = &e.target
	}
	if t.ID != c.expectedID {
		c.tracker.Retain(t.ID)
	}
	c.bumpGeneration("crossfade")
	c.current = copyTrack(t)
	c.expectedID = t.ID
	c.expectedURL = e.target.StreamURL
	c.position = 0
	c.duration = t.Duration
	c.pendingSeek = nil
	c.notifyTrack()

	if e.err != nil {
		// the incoming track goes through the ordinary failure path on
		// the new active output
		c.logger.Warn().Err(e.err).Str("track", t.ID).Msg("crossfade fell back")
		c.setPhase(PhaseLoading)
		c.onLoadFailure(e.err)
		return
	}

	active := c.xf.Active()
	// already loaded: the load path must not reset the position
	c.loadedGen = c.gen
	if d := active.Duration(); d > 0 {
		c.duration = d
	}
	c.position = active.Position()
	c.fillMetadata(active.Metadata())
	if !c.wantsPlaying {
		active.Pause()
		c.setPhase(PhasePaused)
		return
	}
	c.setPhase(PhasePlaying)
	c.reportStart()
	c.notifyPosition()
}
