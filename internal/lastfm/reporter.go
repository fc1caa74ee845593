package lastfm

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/llehouerou/wavestream/internal/errmsg"
	"github.com/llehouerou/wavestream/internal/playback"
	"github.com/llehouerou/wavestream/internal/state"
)

const (
	// MinTrackLength is the shortest track Last.fm accepts.
	MinTrackLength = 30 * time.Second
	// MaxListenThreshold caps the listening time needed for a scrobble.
	MaxListenThreshold = 4 * time.Minute

	// RetryInterval is how often pending scrobbles are resubmitted.
	RetryInterval = 5 * time.Minute
	// MaxPendingAttempts drops a pending scrobble after that many failures.
	MaxPendingAttempts = 10

	// position jumps larger than this are seeks, not listening
	maxProgressStep = 5 * time.Second
	jobBuffer       = 64
)

// Store is the persistence the reporter needs. state.Manager implements it.
type Store interface {
	MarkScrobbled(trackID string, startedAt time.Time) (bool, error)
	AddPendingScrobble(s state.PendingScrobble) error
	PendingScrobbles(limit int) ([]state.PendingScrobble, error)
	DeletePendingScrobble(id int64) error
	UpdatePendingScrobbleAttempt(id int64, errMsg string) error
}

type jobKind int

const (
	jobNowPlaying jobKind = iota
	jobScrobble
	jobRetry
)

type job struct {
	kind      jobKind
	trackID   string
	track     ScrobbleTrack
	immediate bool
}

// Reporter implements playback.Reporter on top of Last.fm. The playback
// hooks only update in-memory state and queue work; network and database
// calls happen in Run.
type Reporter struct {
	client Scrobbler
	store  Store
	logger zerolog.Logger
	now    func() time.Time

	mu  sync.Mutex
	cur *ScrobbleState

	jobs chan job
}

var _ playback.Reporter = (*Reporter)(nil)

// NewReporter creates a reporter. Run must be started for anything to be
// submitted.
func NewReporter(client Scrobbler, store Store, logger zerolog.Logger) *Reporter {
	return &Reporter{
		client: client,
		store:  store,
		logger: logger.With().Str("component", "lastfm").Logger(),
		now:    time.Now,
		jobs:   make(chan job, jobBuffer),
	}
}

// StartTrack begins tracking a play and announces it as now playing.
func (r *Reporter) StartTrack(t playback.Track) {
	r.mu.Lock()
	prev := r.finishLocked()
	r.cur = &ScrobbleState{Track: t, StartedAt: r.now()}
	r.mu.Unlock()

	if prev != nil {
		r.enqueue(*prev)
	}
	r.enqueue(job{kind: jobNowPlaying, trackID: t.ID, track: fromTrack(t, r.now())})
}

// UpdateProgress accumulates listened time from consecutive positions
// reported while playing.
func (r *Reporter) UpdateProgress(pos time.Duration, playing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.cur
	if s == nil {
		return
	}
	if s.playing && playing {
		if step := pos - s.lastPos; step > 0 && step <= maxProgressStep {
			s.Listened += step
		}
	}
	s.lastPos = pos
	s.playing = playing
	s.maxPos = max(s.maxPos, pos)
}

// StopTrack ends the current play. An eligible play is submitted right away
// when sendImmediately is set, otherwise it is queued for the next retry.
func (r *Reporter) StopTrack(sendImmediately bool) {
	r.mu.Lock()
	j := r.finishLocked()
	r.mu.Unlock()
	if j == nil {
		return
	}
	j.immediate = sendImmediately
	r.enqueue(*j)
}

// Current returns a copy of the play being tracked.
func (r *Reporter) Current() (ScrobbleState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cur == nil {
		return ScrobbleState{}, false
	}
	return *r.cur, true
}

func (r *Reporter) finishLocked() *job {
	s := r.cur
	r.cur = nil
	if s == nil {
		return nil
	}
	if !s.Eligible() {
		r.logger.Debug().
			Str("track", s.Track.ID).
			Dur("listened", s.Listened).
			Msg("play not eligible for scrobbling")
		return nil
	}
	st := fromTrack(s.Track, s.StartedAt)
	st.Duration = s.duration()
	return &job{kind: jobScrobble, trackID: s.Track.ID, track: st}
}

func (r *Reporter) enqueue(j job) {
	select {
	case r.jobs <- j:
	default:
		r.logger.Warn().Str("track", j.trackID).Msg("reporter queue full, dropping")
	}
}

// RetryPending asks Run to resubmit pending scrobbles now.
func (r *Reporter) RetryPending() {
	r.enqueue(job{kind: jobRetry})
}

// Run processes queued work and retries pending scrobbles every
// RetryInterval until ctx is done. Scrobbles still queued at shutdown are
// stored as pending.
func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(RetryInterval)
	defer ticker.Stop()

	if ctx.Err() == nil {
		r.retryPending()
	}
	for {
		if err := ctx.Err(); err != nil {
			r.drain()
			return err
		}
		select {
		case <-ctx.Done():
			continue
		case j := <-r.jobs:
			r.process(j)
		case <-ticker.C:
			r.retryPending()
		}
	}
}

func (r *Reporter) drain() {
	for {
		select {
		case j := <-r.jobs:
			if j.kind == jobScrobble {
				j.immediate = false
				r.process(j)
			}
		default:
			return
		}
	}
}

func (r *Reporter) process(j job) {
	switch j.kind {
	case jobNowPlaying:
		if !r.client.IsAuthenticated() {
			return
		}
		if err := r.client.UpdateNowPlaying(j.track); err != nil {
			r.logger.Debug().Err(err).Str("op", string(errmsg.OpLastfmNowPlaying)).Str("track", j.trackID).Msg("now playing failed")
		}
	case jobScrobble:
		r.scrobble(j)
	case jobRetry:
		r.retryPending()
	}
}

// scrobble writes the idempotency marker first so a play is never
// submitted twice, even across restarts.
func (r *Reporter) scrobble(j job) {
	fresh, err := r.store.MarkScrobbled(j.trackID, j.track.Timestamp)
	if err != nil {
		r.logger.Error().Err(err).Str("track", j.trackID).Msg("mark scrobbled")
		return
	}
	if !fresh {
		r.logger.Debug().Str("track", j.trackID).Msg("already scrobbled")
		return
	}

	if j.immediate && r.client.IsAuthenticated() {
		err := r.client.Scrobble(j.track)
		if err == nil {
			r.logger.Info().Str("track", j.trackID).Msg("scrobbled")
			return
		}
		r.logger.Warn().Err(err).Str("op", string(errmsg.OpLastfmScrobble)).Str("track", j.trackID).Msg("scrobble failed, queued")
	}
	if err := r.store.AddPendingScrobble(toPending(j.trackID, j.track)); err != nil {
		r.logger.Error().Err(err).Str("track", j.trackID).Msg("queue scrobble")
	}
}

func (r *Reporter) retryPending() {
	if !r.client.IsAuthenticated() {
		return
	}
	pending, err := r.store.PendingScrobbles(MaxBatch)
	if err != nil {
		r.logger.Error().Err(err).Msg("load pending scrobbles")
		return
	}

	batch := make([]state.PendingScrobble, 0, len(pending))
	for _, p := range pending {
		if p.Attempts >= MaxPendingAttempts {
			r.logger.Warn().Str("track", p.TrackID).Str("error", p.LastError).Msg("dropping pending scrobble")
			if err := r.store.DeletePendingScrobble(p.ID); err != nil {
				r.logger.Error().Err(err).Msg("delete pending scrobble")
			}
			continue
		}
		batch = append(batch, p)
	}
	if len(batch) == 0 {
		return
	}

	tracks := make([]ScrobbleTrack, len(batch))
	for i, p := range batch {
		tracks[i] = fromPending(p)
	}
	if err := r.client.ScrobbleBatch(tracks); err != nil {
		r.logger.Warn().Err(err).Int("count", len(batch)).Msg("pending scrobbles failed")
		for _, p := range batch {
			if err := r.store.UpdatePendingScrobbleAttempt(p.ID, err.Error()); err != nil {
				r.logger.Error().Err(err).Msg("update pending scrobble")
			}
		}
		return
	}
	for _, p := range batch {
		if err := r.store.DeletePendingScrobble(p.ID); err != nil {
			r.logger.Error().Err(err).Msg("delete pending scrobble")
		}
	}
	r.logger.Info().Int("count", len(batch)).Msg("pending scrobbles submitted")
}
