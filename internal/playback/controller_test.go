package playback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/wavestream/internal/crossfade"
	"github.com/llehouerou/wavestream/internal/player"
	"github.com/llehouerou/wavestream/internal/playlist"
)

var errNetwork = errors.New("connection reset")

type fakeReporter struct {
	mu       sync.Mutex
	calls    []string
	progress time.Duration
	playing  bool
}

func (r *fakeReporter) StartTrack(t Track) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "start:"+t.ID)
}

func (r *fakeReporter) UpdateProgress(pos time.Duration, playing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress, r.playing = pos, playing
}

func (r *fakeReporter) StopTrack(sendImmediately bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf("stop:%t", sendImmediately))
}

func (r *fakeReporter) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeRefresher struct {
	mu    sync.Mutex
	url   string
	err   error
	gate  chan struct{}
	calls []string
}

func (f *fakeRefresher) Refresh(ctx context.Context, trackID, albumURL string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, trackID+"@"+albumURL)
	gate, url, err := f.gate, f.url, f.err
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return url, err
}

func (f *fakeRefresher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type harness struct {
	c   *Controller
	a   *player.Mock
	b   *player.Mock
	q   *playlist.PlayingQueue
	rep *fakeReporter
}

func newHarness(t *testing.T, fade time.Duration, opts ...Option) *harness {
	t.Helper()
	a, b := player.NewMock("a"), player.NewMock("b")
	xf := crossfade.New(a, b, crossfade.Config{Duration: fade}, zerolog.Nop())
	q := playlist.NewQueue()
	rep := &fakeReporter{}
	c := New(xf, q, Config{}, append([]Option{WithReporter(rep)}, opts...)...)
	t.Cleanup(func() { _ = c.Close() })
	return &harness{c: c, a: a, b: b, q: q, rep: rep}
}

func (h *harness) emit(unit string, kind player.EventKind, pos time.Duration) {
	h.c.Dispatch(OutputEvent{Event: player.Event{Unit: unit, Kind: kind, Position: pos}})
}

func (h *harness) tick(unit string, pos time.Duration) {
	h.emit(unit, player.EventTimeUpdate, pos)
}

func (h *harness) ended(unit string) {
	h.emit(unit, player.EventEnded, 0)
}

func track(id string, d time.Duration) Track {
	return Track{
		ID:        id,
		StreamURL: "http://cdn.test/" + id + ".mp3",
		AlbumURL:  "http://band.test/album/x",
		Duration:  d,
		Title:     strings.ToUpper(id),
		Artist:    "Band",
	}
}

var (
	trackA = track("a", 180*time.Second)
	trackB = track("b", 200*time.Second)
	trackC = track("c", 150*time.Second)
)

func TestController_LoadPlaysFirstTrack(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		sub := h.c.Subscribe()

		h.c.Load([]Track{trackA, trackB}, 0)
		synctest.Wait()

		snap := h.c.Snapshot()
		assert.Equal(t, PhasePlaying, snap.Phase)
		assert.Equal(t, "a", snap.Track.ID)
		assert.Equal(t, 0, snap.Index)
		assert.True(t, snap.WantsPlaying)
		assert.Equal(t, 180*time.Second, snap.Duration)
		assert.Equal(t, []string{"load:" + trackA.StreamURL, "play"}, h.a.Calls())
		assert.Equal(t, []string{"start:a"}, h.rep.Calls())

		tc := <-sub.TrackChanged
		assert.Equal(t, "a", tc.Current.ID)
		assert.Nil(t, tc.Previous)
	})
}

func TestController_EndedNearEndAdvances(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		h.c.Load([]Track{trackA, trackB}, 0)
		synctest.Wait()

		h.tick("a", 179600*time.Millisecond)
		h.ended("a")
		synctest.Wait()

		snap := h.c.Snapshot()
		assert.Equal(t, PhasePlaying, snap.Phase)
		assert.Equal(t, 1, snap.Index)
		assert.Equal(t, "b", snap.Track.ID)
		assert.Contains(t, h.a.Calls(), "load:"+trackB.StreamURL)
		assert.Equal(t, []string{"start:a", "stop:true", "start:b"}, h.rep.Calls())
	})
}

func TestController_EndedRightAfterPauseIgnored(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		h.c.Load([]Track{trackA, trackB}, 0)
		synctest.Wait()
		h.tick("a", 60*time.Second)

		h.c.Pause()
		time.Sleep(time.Second)
		h.ended("a")
		synctest.Wait()

		snap := h.c.Snapshot()
		assert.Equal(t, PhasePaused, snap.Phase)
		assert.Equal(t, 0, snap.Index)
		assert.NotContains(t, h.a.Calls(), "load:"+trackB.StreamURL)

		// outside the guard window an early end is genuine
		time.Sleep(2 * time.Second)
		h.ended("a")
		synctest.Wait()

		snap = h.c.Snapshot()
		assert.Equal(t, 1, snap.Index)
		assert.Equal(t, PhaseReady, snap.Phase, "paused session stays paused on the next track")
	})
}

func TestController_EndedAtEndAfterPauseIsGenuine(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		h.c.Load([]Track{trackA, trackB}, 0)
		synctest.Wait()
		h.tick("a", 179800*time.Millisecond)

		h.c.Pause()
		h.ended("a")
		synctest.Wait()

		assert.Equal(t, 1, h.c.Snapshot().Index)
	})
}

func TestController_EndedIgnoredOutsidePlayback(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		h.a.Hold()
		h.c.Load([]Track{trackA, trackB}, 0)
		synctest.Wait()

		h.ended("a")
		h.ended("b")
		h.a.Release()
		synctest.Wait()

		snap := h.c.Snapshot()
		assert.Equal(t, 0, snap.Index)
		assert.Equal(t, PhasePlaying, snap.Phase)
	})
}

func TestController_EndOfQueueGoesIdle(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		h.c.Load([]Track{trackA}, 0)
		synctest.Wait()

		h.tick("a", 179800*time.Millisecond)
		h.ended("a")
		synctest.Wait()

		snap := h.c.Snapshot()
		assert.Equal(t, PhaseIdle, snap.Phase)
		assert.False(t, snap.WantsPlaying)
		assert.Equal(t, "stop", h.a.Calls()[len(h.a.Calls())-1])
		assert.Equal(t, []string{"start:a", "stop:true"}, h.rep.Calls())

		// play again from idle reloads the same track
		h.c.Play()
		synctest.Wait()
		assert.Equal(t, PhasePlaying, h.c.Snapshot().Phase)
	})
}

func TestController_RepeatAllSingleTrackReloads(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		h.c.Load([]Track{trackA}, 0)
		h.c.SetRepeatMode(RepeatAll)
		synctest.Wait()
		h.a.ResetCalls()

		h.tick("a", 179900*time.Millisecond)
		h.ended("a")
		synctest.Wait()

		snap := h.c.Snapshot()
		assert.Equal(t, PhasePlaying, snap.Phase)
		assert.Equal(t, 0, snap.Index)
		assert.Equal(t, time.Duration(0), snap.Position)
		assert.Equal(t, []string{"stop", "load:" + trackA.StreamURL, "play"}, h.a.Calls())
		assert.Equal(t, []string{"start:a", "stop:true", "start:a"}, h.rep.Calls())
	})
}

func TestController_RepeatAllWrapsToFirst(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		h.c.Load([]Track{trackA, trackB}, 1)
		h.c.SetRepeatMode(RepeatAll)
		synctest.Wait()

		h.tick("a", 199900*time.Millisecond)
		h.ended("a")
		synctest.Wait()

		snap := h.c.Snapshot()
		assert.Equal(t, 0, snap.Index)
		assert.Equal(t, "a", snap.Track.ID)
		assert.Equal(t, PhasePlaying, snap.Phase)
	})
}

func TestController_RepeatTrackRestartsInPlace(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		h.c.Load([]Track{trackA, trackB}, 0)
		h.c.SetRepeatMode(RepeatTrack)
		synctest.Wait()
		h.a.ResetCalls()

		h.tick("a", 179900*time.Millisecond)
		h.ended("a")
		synctest.Wait()

		snap := h.c.Snapshot()
		assert.Equal(t, 0, snap.Index)
		assert.Equal(t, PhasePlaying, snap.Phase)
		assert.Equal(t, []string{"seek:0s", "play"}, h.a.Calls())
		assert.Equal(t, []string{"start:a", "stop:true", "start:a"}, h.rep.Calls())
	})
}

func TestController_ExpiredURLRefreshesOnce(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ref := &fakeRefresher{url: "http://cdn.test/a-fresh.mp3", gate: make(chan struct{})}
		h := newHarness(t, 0, WithRefresher(ref))
		h.a.FailNext(trackA.StreamURL, &player.LoadError{URL: trackA.StreamURL, Status: 410, Err: player.ErrExpired})

		h.c.Load([]Track{trackA, trackB}, 0)
		synctest.Wait()

		assert.Equal(t, PhaseLoading, h.c.Snapshot().Phase)
		assert.Empty(t, h.rep.Calls(), "nothing reported before playback starts")
		assert.Equal(t, []string{"a@" + trackA.AlbumURL}, ref.Calls())

		close(ref.gate)
		synctest.Wait()

		snap := h.c.Snapshot()
		assert.Equal(t, PhasePlaying, snap.Phase)
		assert.Equal(t, "http://cdn.test/a-fresh.mp3", snap.Track.StreamURL)
		assert.Equal(t, "http://cdn.test/a-fresh.mp3", snap.Queue[0].StreamURL)
		assert.Equal(t, []string{
			"load:" + trackA.StreamURL,
			"load:http://cdn.test/a-fresh.mp3",
			"play",
		}, h.a.Calls())
		assert.Equal(t, []string{"start:a"}, h.rep.Calls())
		assert.Len(t, ref.Calls(), 1)
	})
}

func TestController_RefreshFailureGivesUp(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ref := &fakeRefresher{err: errors.New("album page gone")}
		h := newHarness(t, 0, WithRefresher(ref))
		sub := h.c.Subscribe()
		h.a.FailNext(trackA.StreamURL, player.ErrExpired)

		h.c.Load([]Track{trackA}, 0)
		synctest.Wait()

		snap := h.c.Snapshot()
		require.Equal(t, PhaseError, snap.Phase)
		require.NotNil(t, snap.Err)
		assert.ErrorIs(t, snap.Err, ErrExhaustedRetries)
		assert.True(t, snap.Err.Retryable)
		assert.True(t, strings.HasSuffix(snap.Err.Message, "(press play to retry)"), snap.Err.Message)
		assert.False(t, snap.WantsPlaying)

		ev := <-sub.Error
		assert.Equal(t, "a", ev.Err.TrackID)
	})
}

func TestController_ExhaustedRetriesThenManualPlay(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		h.a.FailNext(trackA.StreamURL, errNetwork, errNetwork)

		h.c.Load([]Track{trackA}, 0)
		synctest.Wait()
		assert.Equal(t, PhaseLoading, h.c.Snapshot().Phase, "first failure waits for backoff")

		time.Sleep(time.Second)
		synctest.Wait()

		snap := h.c.Snapshot()
		require.Equal(t, PhaseError, snap.Phase)
		assert.ErrorIs(t, snap.Err, ErrExhaustedRetries)
		assert.ErrorIs(t, snap.Err, ErrTransientLoad)
		assert.ErrorIs(t, snap.Err, errNetwork)
		assert.Equal(t, 2, h.c.tracker.Attempts("a"))
		assert.Empty(t, h.rep.Calls())

		h.c.Play()
		synctest.Wait()

		snap = h.c.Snapshot()
		assert.Equal(t, PhasePlaying, snap.Phase)
		assert.Nil(t, snap.Err)
		assert.Equal(t, 0, h.c.tracker.Attempts("a"))
	})
}

func TestController_RejectedPlayIsNotCounted(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		h.a.FailNextPlay(player.ErrRejected)

		h.c.Load([]Track{trackA}, 0)
		synctest.Wait()

		snap := h.c.Snapshot()
		require.Equal(t, PhaseError, snap.Phase)
		assert.ErrorIs(t, snap.Err, ErrPlaybackRejected)
		assert.True(t, snap.Err.Retryable)
		assert.Equal(t, 0, h.c.tracker.Attempts("a"))

		h.c.Play()
		synctest.Wait()
		assert.Equal(t, PhasePlaying, h.c.Snapshot().Phase)
	})
}

func TestController_LoadSameTrackIsIdempotent(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		h.c.Load([]Track{trackA, trackB}, 0)
		synctest.Wait()
		gen := h.c.Snapshot().Generation
		h.a.ResetCalls()

		h.c.Load([]Track{trackA, trackB}, 0)
		h.c.JumpTo(0)
		synctest.Wait()

		snap := h.c.Snapshot()
		assert.Empty(t, h.a.Calls())
		assert.Equal(t, gen, snap.Generation)
		assert.Equal(t, PhasePlaying, snap.Phase)
		assert.Equal(t, []string{"start:a"}, h.rep.Calls())
	})
}

func TestController_StaleCompletionDiscarded(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		h.a.Hold()
		h.c.Load([]Track{trackA, trackB}, 0)
		synctest.Wait()

		h.c.Next()
		synctest.Wait()
		h.a.Release()
		synctest.Wait()

		snap := h.c.Snapshot()
		assert.Equal(t, PhasePlaying, snap.Phase)
		assert.Equal(t, "b", snap.Track.ID)
		assert.Nil(t, snap.Err)

		h.c.Dispatch(loadDone{gen: 1, url: trackA.StreamURL, err: errNetwork})
		h.c.Dispatch(retryDue{gen: 1})
		synctest.Wait()

		assert.Equal(t, PhasePlaying, h.c.Snapshot().Phase)
		assert.Equal(t, 0, h.c.tracker.Attempts("b"))
	})
}

func TestController_RapidPlayPauseFollowsLastIntent(t *testing.T) {
	tests := []struct {
		name    string
		intents []Event
		want    Phase
	}{
		{"ends paused", []Event{PauseIntent{}, PlayIntent{}, PauseIntent{}}, PhaseReady},
		{"ends playing", []Event{PauseIntent{}, PlayIntent{}, PauseIntent{}, PlayIntent{}}, PhasePlaying},
		{"toggle twice", []Event{ToggleIntent{}, ToggleIntent{}}, PhasePlaying},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				h := newHarness(t, 0)
				h.a.Hold()
				h.c.Load([]Track{trackA}, 0)
				synctest.Wait()

				for _, ev := range tt.intents {
					h.c.Dispatch(ev)
				}
				h.a.Release()
				synctest.Wait()

				assert.Equal(t, tt.want, h.c.Snapshot().Phase)
			})
		})
	}
}

func TestController_SeekWhilePlaying(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		h.c.Load([]Track{trackA}, 0)
		synctest.Wait()

		h.c.Seek(42 * time.Second)
		assert.Equal(t, 42*time.Second, h.c.Snapshot().Position)

		h.c.Seek(10 * time.Minute)
		assert.Equal(t, 180*time.Second, h.c.Snapshot().Position)

		h.c.SeekBy(-200 * time.Second)
		assert.Equal(t, time.Duration(0), h.c.Snapshot().Position)

		assert.Equal(t, []string{"load:" + trackA.StreamURL, "play", "seek:42s", "seek:3m0s", "seek:0s"}, h.a.Calls())
	})
}

func TestController_SeekBeforeReadyIsDeferred(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		h.a.Hold()
		h.c.Load([]Track{trackA}, 0)
		synctest.Wait()

		h.c.Seek(30 * time.Second)

		assert.Equal(t, 30*time.Second, h.c.Snapshot().Position)
		assert.NotContains(t, h.a.Calls(), "seek:30s")

		h.a.Release()
		synctest.Wait()

		snap := h.c.Snapshot()
		assert.Equal(t, PhasePlaying, snap.Phase)
		assert.Equal(t, 30*time.Second, snap.Position)
		assert.Equal(t, []string{"load:" + trackA.StreamURL, "seek:30s", "play"}, h.a.Calls())
	})
}

func TestController_SeekWithoutDurationRejected(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		h.a.Hold()
		h.c.Load([]Track{track("live", 0)}, 0)
		synctest.Wait()

		h.c.Seek(30 * time.Second)

		assert.Equal(t, time.Duration(0), h.c.Snapshot().Position)
		h.a.Release()
		synctest.Wait()
		assert.NotContains(t, h.a.Calls(), "seek:30s")
	})
}

func TestController_CrossfadeAdvancesOnce(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 2*time.Second)
		h.c.Load([]Track{trackA, trackB, trackC}, 0)
		synctest.Wait()

		h.tick("a", 178500*time.Millisecond)
		synctest.Wait()

		snap := h.c.Snapshot()
		assert.True(t, snap.Crossfading)
		assert.Equal(t, 0, snap.Index)
		assert.Equal(t, "a", snap.Unit)

		// frozen while fading: neither a late end nor time updates move it
		h.ended("a")
		h.tick("a", 179*time.Second)
		assert.Equal(t, 0, h.c.Snapshot().Index)
		assert.Equal(t, 178500*time.Millisecond, h.c.Snapshot().Position)

		time.Sleep(2100 * time.Millisecond)
		synctest.Wait()

		snap = h.c.Snapshot()
		assert.False(t, snap.Crossfading)
		assert.Equal(t, 1, snap.Index)
		assert.Equal(t, "b", snap.Track.ID)
		assert.Equal(t, "b", snap.Unit)
		assert.Equal(t, PhasePlaying, snap.Phase)
		assert.Equal(t, []string{"start:a", "stop:true", "start:b"}, h.rep.Calls())
		assert.Equal(t, []string{"load:" + trackB.StreamURL, "play"}, h.b.Calls())

		// the old active output no longer drives the session
		h.ended("a")
		synctest.Wait()
		assert.Equal(t, 1, h.c.Snapshot().Index)
	})
}

func TestController_CrossfadeRepeatTrackStaysOnTrack(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, time.Second)
		h.c.Load([]Track{trackA, trackB}, 0)
		h.c.SetRepeatMode(RepeatTrack)
		synctest.Wait()

		h.tick("a", 179500*time.Millisecond)
		time.Sleep(1100 * time.Millisecond)
		synctest.Wait()

		snap := h.c.Snapshot()
		assert.Equal(t, 0, snap.Index)
		assert.Equal(t, "a", snap.Track.ID)
		assert.Equal(t, "b", snap.Unit)
		assert.Equal(t, []string{"start:a", "stop:true", "start:a"}, h.rep.Calls())
	})
}

func TestController_PauseCancelsCrossfade(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 2*time.Second)
		h.c.Load([]Track{trackA, trackB}, 0)
		synctest.Wait()

		h.tick("a", 178500*time.Millisecond)
		time.Sleep(500 * time.Millisecond)
		h.c.Pause()
		synctest.Wait()

		snap := h.c.Snapshot()
		assert.False(t, snap.Crossfading)
		assert.Equal(t, PhasePaused, snap.Phase)
		assert.Equal(t, "a", snap.Unit)
		assert.Equal(t, 0, snap.Index)
		assert.Equal(t, "stop", h.b.Calls()[len(h.b.Calls())-1])
	})
}

func TestController_CrossfadeLoadFailureFallsBack(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, time.Second)
		h.b.FailNext(trackB.StreamURL, errNetwork)
		h.c.Load([]Track{trackA, trackB}, 0)
		synctest.Wait()

		h.tick("a", 179500*time.Millisecond)
		synctest.Wait()

		snap := h.c.Snapshot()
		assert.Equal(t, 1, snap.Index)
		assert.Equal(t, "b", snap.Unit)
		assert.Equal(t, PhaseLoading, snap.Phase)

		time.Sleep(time.Second)
		synctest.Wait()

		snap = h.c.Snapshot()
		assert.Equal(t, PhasePlaying, snap.Phase)
		assert.Equal(t, "b", snap.Track.ID)
	})
}

func TestController_NextAndPrevious(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		h.c.Load([]Track{trackA, trackB, trackC}, 0)
		synctest.Wait()

		h.c.Next()
		synctest.Wait()
		assert.Equal(t, 1, h.c.Snapshot().Index)

		h.tick("a", 10*time.Second)
		h.a.ResetCalls()
		h.c.Previous()
		synctest.Wait()
		assert.Equal(t, 1, h.c.Snapshot().Index, "past the threshold previous restarts")
		assert.Equal(t, []string{"seek:0s"}, h.a.Calls())

		h.c.Previous()
		synctest.Wait()
		assert.Equal(t, 0, h.c.Snapshot().Index)

		h.c.Next()
		h.c.Next()
		h.c.Next()
		synctest.Wait()
		assert.Equal(t, 2, h.c.Snapshot().Index, "no wrap with repeat off")

		assert.Equal(t, []string{
			"start:a", "stop:false",
			"start:b", "stop:false",
			"start:a", "stop:false",
			"start:c",
		}, h.rep.Calls())
	})
}

func TestController_NextWrapsWithRepeatAll(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		h.c.Load([]Track{trackA, trackB}, 1)
		h.c.SetRepeatMode(RepeatAll)
		synctest.Wait()

		h.c.Next()
		synctest.Wait()

		snap := h.c.Snapshot()
		assert.Equal(t, 0, snap.Index)
		assert.Equal(t, "a", snap.Track.ID)
	})
}

func TestController_StopGoesIdle(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		h.c.Load([]Track{trackA}, 0)
		synctest.Wait()
		gen := h.c.Snapshot().Generation

		h.c.Stop()

		snap := h.c.Snapshot()
		assert.Equal(t, PhaseIdle, snap.Phase)
		assert.Greater(t, snap.Generation, gen)
		assert.Equal(t, []string{"start:a", "stop:false"}, h.rep.Calls())
	})
}

func TestController_RemoveCurrentLoadsFollowing(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		h.c.Load([]Track{trackA, trackB}, 0)
		synctest.Wait()

		h.c.Remove(0)
		synctest.Wait()

		snap := h.c.Snapshot()
		assert.Equal(t, "b", snap.Track.ID)
		assert.Equal(t, PhasePlaying, snap.Phase)
		assert.Len(t, snap.Queue, 1)

		h.c.Remove(0)
		synctest.Wait()
		assert.Equal(t, PhaseIdle, h.c.Snapshot().Phase)
		assert.Nil(t, h.c.Snapshot().Track)
	})
}

func TestController_VolumeAndMute(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		sub := h.c.Subscribe()

		h.c.SetVolume(0.4)
		h.c.SetMuted(true)
		h.c.SetMuted(false)
		h.c.SetVolume(3)

		assert.Equal(t, []float64{0.4, 0, 0.4, 1}, h.a.Gains())
		snap := h.c.Snapshot()
		assert.Equal(t, 1.0, snap.Volume)
		assert.False(t, snap.Muted)

		v := <-sub.VolumeChanged
		assert.Equal(t, 0.4, v.Volume)
	})
}

func TestController_BufferingReturnsToPlaying(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		h.c.Load([]Track{trackA}, 0)
		synctest.Wait()

		h.emit("a", player.EventWaiting, 0)
		assert.Equal(t, PhaseBuffering, h.c.Snapshot().Phase)

		h.emit("a", player.EventCanPlay, 0)
		assert.Equal(t, PhasePlaying, h.c.Snapshot().Phase)
	})
}

func TestController_RestoreAppliesSavedPosition(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)

		h.c.Restore(SessionState{
			Tracks:   []Track{trackA, trackB},
			Index:    1,
			TrackID:  "b",
			Position: 95 * time.Second,
			Volume:   0.4,
			Repeat:   RepeatAll,
		})
		synctest.Wait()

		snap := h.c.Snapshot()
		assert.Equal(t, PhaseReady, snap.Phase)
		assert.Equal(t, 1, snap.Index)
		assert.Equal(t, 95*time.Second, snap.Position)
		assert.Equal(t, 0.4, snap.Volume)
		assert.Equal(t, RepeatAll, snap.Repeat)
		assert.Equal(t, []string{"load:" + trackB.StreamURL, "seek:1m35s"}, h.a.Calls())
		assert.Empty(t, h.rep.Calls())

		// only the first restore counts
		h.c.Restore(SessionState{Tracks: []Track{trackC}})
		assert.Equal(t, "b", h.c.Snapshot().Track.ID)

		h.c.Play()
		synctest.Wait()
		assert.Equal(t, PhasePlaying, h.c.Snapshot().Phase)
		assert.Equal(t, []string{"start:b"}, h.rep.Calls())
	})
}

func TestController_RestoreWithinToleranceSkipsSeek(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)

		h.c.Restore(SessionState{
			Tracks:   []Track{trackA},
			TrackID:  "a",
			Position: 300 * time.Millisecond,
			Volume:   1,
		})
		synctest.Wait()

		assert.Equal(t, []string{"load:" + trackA.StreamURL}, h.a.Calls())
	})
}

func TestController_SessionState(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		h.c.Load([]Track{trackA, trackB}, 1)
		h.c.SetShuffle(false)
		synctest.Wait()
		h.tick("a", 12*time.Second)

		st := h.c.SessionState()

		assert.Equal(t, "b", st.TrackID)
		assert.Equal(t, 1, st.Index)
		assert.Equal(t, 12*time.Second, st.Position)
		assert.Len(t, st.Tracks, 2)
	})
}

func TestController_RunForwardsOutputEvents(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		h.c.Load([]Track{trackA}, 0)
		synctest.Wait()

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- h.c.Run(ctx) }()

		h.a.Emit(player.Event{Kind: player.EventTimeUpdate, Position: 5 * time.Second})
		synctest.Wait()
		assert.Equal(t, 5*time.Second, h.c.Snapshot().Position)

		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	})
}

func TestController_CloseStopsDispatch(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, 0)
		sub := h.c.Subscribe()
		h.c.Load([]Track{trackA}, 0)
		synctest.Wait()

		require.NoError(t, h.c.Close())
		<-sub.Done
		h.c.Next()

		assert.Equal(t, []string{"start:a", "stop:false"}, h.rep.Calls())
		assert.NoError(t, h.c.Close())
	})
}
