package player

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/rs/zerolog"
)

const (
	// SpeakerRate is shared by every output so two can mix during a crossfade.
	SpeakerRate = beep.SampleRate(44100)

	timeUpdateInterval = 250 * time.Millisecond
)

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(SpeakerRate, SpeakerRate.N(time.Second/10))
	})
	return speakerErr
}

// Verify Player implements Output at compile time.
var _ Output = (*Player)(nil)

// Player is an Output that buffers a remote source, decodes it with beep
// and plays it through the shared speaker mixer.
type Player struct {
	name   string
	client *http.Client
	logger zerolog.Logger
	events chan Event

	mu       sync.Mutex
	loadSeq  uint64
	cancel   context.CancelFunc
	loading  bool
	source   string
	size     int64
	meta     *Metadata
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	state    State
	gain     float64

	// streamID identifies the stream registered with the speaker; the end
	// callback runs under the speaker lock and only touches atomics.
	streamID atomic.Uint64
	queued   atomic.Bool

	closeOnce sync.Once
	done      chan struct{}
}

// Option configures a Player.
type Option func(*Player)

// WithHTTPClient sets the client used to fetch sources.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Player) { p.client = c }
}

// WithLogger sets the player logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Player) { p.logger = l }
}

// New creates a stopped player and starts its time update loop.
func New(name string, opts ...Option) *Player {
	p := &Player{
		name:   name,
		client: &http.Client{Timeout: 2 * time.Minute},
		logger: zerolog.Nop(),
		events: make(chan Event, 64),
		state:  Stopped,
		gain:   1,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With().Str("component", "player").Str("unit", name).Logger()
	go p.tickLoop()
	return p
}

func (p *Player) Name() string { return p.name }

func (p *Player) Events() <-chan Event { return p.events }

// emit never blocks; a slow listener loses time updates, not the player.
func (p *Player) emit(e Event) {
	e.Unit = p.name
	select {
	case p.events <- e:
	default:
		p.logger.Debug().Stringer("event", e.Kind).Msg("event dropped")
	}
}

// Load fetches and decodes url. It leaves the player Paused at 0.
func (p *Player) Load(ctx context.Context, url string) error {
	p.mu.Lock()
	p.abortLocked()
	p.releaseLocked()
	p.loadSeq++
	seq := p.loadSeq
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.loading = true
	p.source = url
	p.mu.Unlock()

	p.emit(Event{Kind: EventWaiting})

	streamer, format, size, meta, err := p.fetchAndDecode(ctx, url)

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq != p.loadSeq {
		if streamer != nil {
			_ = streamer.Close()
		}
		return ErrAborted
	}
	cancel()
	p.cancel = nil
	p.loading = false
	if err != nil {
		p.source = ""
		if errors.Is(err, context.Canceled) {
			err = ErrAborted
		}
		if !errors.Is(err, ErrAborted) {
			p.emit(Event{Kind: EventError, Err: err})
		}
		return err
	}

	p.streamer = streamer
	p.format = format
	p.size = size
	p.meta = meta
	var s beep.Streamer = streamer
	if format.SampleRate != SpeakerRate {
		s = beep.Resample(4, format.SampleRate, SpeakerRate, streamer)
	}
	p.ctrl = &beep.Ctrl{Streamer: s, Paused: true}
	p.volume = &effects.Volume{Streamer: p.ctrl, Base: 2}
	p.applyGainLocked()
	p.state = Paused

	d := format.SampleRate.D(streamer.Len())
	p.logger.Debug().Dur("duration", d).Int64("bytes", size).Msg("source ready")
	p.emit(Event{Kind: EventDurationChange, Duration: d})
	p.emit(Event{Kind: EventCanPlay, Duration: d})
	return nil
}

func (p *Player) fetchAndDecode(ctx context.Context, url string) (beep.StreamSeekCloser, beep.Format, int64, *Metadata, error) {
	f, err := fetch(ctx, p.client, url)
	if err != nil {
		return nil, beep.Format{}, 0, nil, err
	}
	if ctx.Err() != nil {
		return nil, beep.Format{}, 0, nil, ErrAborted
	}
	c := detectCodec(f.contentType, url, f.data)
	streamer, format, err := decode(c, f.data)
	if err != nil {
		return nil, beep.Format{}, 0, nil, &LoadError{URL: url, Err: fmt.Errorf("decode %s: %w", c, err)}
	}
	p.logger.Debug().Str("format", describeFormat(c, format)).Str("url", url).Msg("decoded")
	return streamer, format, int64(len(f.data)), readMetadata(f.data), nil
}

// Play starts or resumes playback.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil || p.loading {
		return ErrNoSource
	}
	if err := initSpeaker(); err != nil {
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
	speaker.Lock()
	p.ctrl.Paused = false
	speaker.Unlock()
	if !p.queued.Load() {
		p.queueLocked()
	}
	p.state = Playing
	return nil
}

// queueLocked registers the volume chain with the speaker mixer.
func (p *Player) queueLocked() {
	id := p.streamID.Add(1)
	p.queued.Store(true)
	speaker.Play(beep.Seq(p.volume, beep.Callback(func() {
		if p.streamID.Load() != id {
			return
		}
		p.queued.Store(false)
		p.emit(Event{Kind: EventEnded})
	})))
}

// Pause pauses playback.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Playing || p.ctrl == nil {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
	p.state = Paused
}

// Seek moves to an absolute position, clamped to the source length.
func (p *Player) Seek(pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil || p.loading {
		return ErrNoSource
	}
	n := max(0, min(p.format.SampleRate.N(pos), p.streamer.Len()))
	speaker.Lock()
	err := p.streamer.Seek(n)
	speaker.Unlock()
	if err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	p.emit(Event{Kind: EventTimeUpdate, Position: p.format.SampleRate.D(n)})
	return nil
}

// SetGain sets the linear output gain (0.0 to 1.0).
func (p *Player) SetGain(gain float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gain = clampGain(gain)
	p.applyGainLocked()
}

func (p *Player) applyGainLocked() {
	if p.volume == nil {
		return
	}
	speaker.Lock()
	p.volume.Volume = gainToVolume(p.gain)
	p.volume.Silent = p.gain <= 0
	speaker.Unlock()
}

func (p *Player) Gain() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gain
}

// Stop aborts any load, releases the source and resets the position.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.abortLocked()
	p.releaseLocked()
	p.source = ""
}

func (p *Player) abortLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.loading {
		p.loadSeq++
		p.loading = false
	}
}

func (p *Player) releaseLocked() {
	// invalidate the end callback of the stream being dropped
	p.streamID.Add(1)
	p.queued.Store(false)
	if p.ctrl != nil {
		speaker.Lock()
		p.ctrl.Streamer = nil
		speaker.Unlock()
	}
	if p.streamer != nil {
		_ = p.streamer.Close()
	}
	p.streamer = nil
	p.ctrl = nil
	p.volume = nil
	p.meta = nil
	p.size = 0
	p.state = Stopped
}

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil {
		return 0
	}
	return p.format.SampleRate.D(p.streamer.Position())
}

func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil {
		return 0
	}
	return p.format.SampleRate.D(p.streamer.Len())
}

func (p *Player) Source() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source
}

func (p *Player) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

func (p *Player) Metadata() *Metadata {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.meta
}

func (p *Player) Size() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

// Close stops playback and the time update loop.
func (p *Player) Close() {
	p.Stop()
	p.closeOnce.Do(func() { close(p.done) })
}

func (p *Player) tickLoop() {
	ticker := time.NewTicker(timeUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

func (p *Player) tick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil {
		return
	}
	if p.state == Playing && !p.queued.Load() {
		// the speaker drained the stream; the end event is already out
		p.state = Paused
		speaker.Lock()
		p.ctrl.Paused = true
		speaker.Unlock()
		return
	}
	if p.state == Playing {
		p.emit(Event{Kind: EventTimeUpdate, Position: p.format.SampleRate.D(p.streamer.Position())})
	}
}
