// Package crossfade moves playback between two outputs, either with a timed
// equal-power gain ramp or with an immediate gapless handoff.
package crossfade

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/llehouerou/wavestream/internal/player"
)

// DefaultStep is the interval between two gain updates of a ramp.
const DefaultStep = 50 * time.Millisecond

var (
	// ErrCancelled is returned when Cancel or a newer transition superseded
	// the one in flight. The active output is left untouched.
	ErrCancelled = errors.New("crossfade cancelled")
	// ErrHardSkip is returned when the standby output could not load. The
	// old active output has been stopped and the roles swapped, so the
	// caller owns loading the incoming track on the new active output.
	ErrHardSkip = errors.New("crossfade fell back to hard skip")
)

// Config holds the ramp timing.
type Config struct {
	Duration time.Duration
	Step     time.Duration
}

// Coordinator owns two outputs: one active (audible) and one standby.
type Coordinator struct {
	units  [2]player.Output
	step   time.Duration
	logger zerolog.Logger
	events chan player.Event

	mu       sync.Mutex
	duration time.Duration
	active   int
	volume   float64
	seq      uint64
	inFlight bool
	cancel   context.CancelFunc
}

// New creates a coordinator with a active and b standby.
func New(a, b player.Output, cfg Config, logger zerolog.Logger) *Coordinator {
	step := cfg.Step
	if step <= 0 {
		step = DefaultStep
	}
	return &Coordinator{
		units:    [2]player.Output{a, b},
		step:     step,
		duration: max(0, cfg.Duration),
		volume:   1,
		logger:   logger.With().Str("component", "crossfade").Logger(),
		events:   make(chan player.Event, 128),
	}
}

// Active returns the audible output.
func (c *Coordinator) Active() player.Output {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.units[c.active]
}

// Standby returns the output not currently audible.
func (c *Coordinator) Standby() player.Output {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.units[1-c.active]
}

// IsActive reports whether unit names the active output.
func (c *Coordinator) IsActive(unit string) bool {
	return c.Active().Name() == unit
}

// InFlight reports whether a transition is running.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Duration returns the configured ramp length. Zero means crossfading is
// disabled.
func (c *Coordinator) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// SetVolume sets the target gain. A running ramp picks it up on its next
// step; otherwise it is applied to the active output immediately.
func (c *Coordinator) SetVolume(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = min(1, max(0, v))
	if !c.inFlight {
		c.units[c.active].SetGain(c.volume)
	}
}

// Volume returns the target gain.
func (c *Coordinator) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// Cancel aborts the transition in flight, if any. The standby output is
// stopped and the active output gets its full gain back.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

func (c *Coordinator) cancelLocked() {
	if !c.inFlight {
		return
	}
	c.seq++
	c.inFlight = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.units[1-c.active].Stop()
	c.units[c.active].SetGain(c.volume)
	c.logger.Debug().Msg("transition cancelled")
}

// CrossfadeTo loads url into the standby output and ramps it in over the
// configured duration while the active output ramps out. On success the
// roles are swapped and the old active output is stopped.
//
// If the standby output loads but refuses to start alongside the active one,
// the active output is stopped and the standby is started from zero at full
// gain; that still counts as success.
func (c *Coordinator) CrossfadeTo(ctx context.Context, url string) error {
	return c.transition(ctx, url, c.Duration())
}

// Handoff swaps to url without overlap once it is decodable.
func (c *Coordinator) Handoff(ctx context.Context, url string) error {
	return c.transition(ctx, url, 0)
}

func (c *Coordinator) transition(ctx context.Context, url string, fade time.Duration) error {
	c.mu.Lock()
	c.cancelLocked()
	c.seq++
	seq := c.seq
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.inFlight = true
	out, in := c.units[c.active], c.units[1-c.active]
	c.mu.Unlock()
	defer cancel()

	log := c.logger.With().Str("from", out.Name()).Str("to", in.Name()).Dur("fade", fade).Logger()
	log.Debug().Str("url", url).Msg("transition started")

	in.SetGain(0)
	if err := in.Load(ctx, url); err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if seq != c.seq || errors.Is(err, player.ErrAborted) || ctx.Err() != nil {
			return ErrCancelled
		}
		log.Warn().Err(err).Msg("standby load failed, hard skip")
		out.Stop()
		in.SetGain(c.volume)
		c.swapLocked()
		return fmt.Errorf("%w: %w", ErrHardSkip, err)
	}

	if err := in.Play(); err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if seq != c.seq {
			return ErrCancelled
		}
		log.Warn().Err(err).Msg("standby refused to start, playing it alone")
		out.Stop()
		c.swapLocked()
		in.SetGain(c.volume)
		if serr := in.Seek(0); serr != nil {
			log.Debug().Err(serr).Msg("seek to start failed")
		}
		return in.Play()
	}

	if fade > 0 {
		if err := c.ramp(ctx, seq, out, in, fade); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return ErrCancelled
	}
	in.SetGain(c.volume)
	out.Stop()
	out.SetGain(c.volume)
	c.swapLocked()
	log.Debug().Msg("transition complete")
	return nil
}

// ramp applies an equal-power curve: the summed power of both outputs stays
// at the target volume throughout.
func (c *Coordinator) ramp(ctx context.Context, seq uint64, out, in player.Output, fade time.Duration) error {
	steps := max(1, int(fade/c.step))
	ticker := time.NewTicker(c.step)
	defer ticker.Stop()

	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return ErrCancelled
		case <-ticker.C:
		}
		c.mu.Lock()
		if seq != c.seq {
			c.mu.Unlock()
			return ErrCancelled
		}
		t := float64(i) / float64(steps)
		out.SetGain(c.volume * math.Cos(t*math.Pi/2))
		in.SetGain(c.volume * math.Sin(t*math.Pi/2))
		c.mu.Unlock()
	}
	return nil
}

func (c *Coordinator) swapLocked() {
	c.active = 1 - c.active
	c.inFlight = false
	c.cancel = nil
}

// Events returns the merged event stream of both outputs. It is fed by Run.
func (c *Coordinator) Events() <-chan player.Event { return c.events }

// Run forwards events from both outputs until ctx is done.
func (c *Coordinator) Run(ctx context.Context) {
	a, b := c.units[0].Events(), c.units[1].Events()
	for {
		var e player.Event
		select {
		case <-ctx.Done():
			return
		case e = <-a:
		case e = <-b:
		}
		select {
		case c.events <- e:
		case <-ctx.Done():
			return
		}
	}
}
