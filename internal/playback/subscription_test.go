package playback

import (
	"testing"
	"testing/synctest"
	"time"
)

func TestSubscription_DeliversEachKind(t *testing.T) {
	sub := newSubscription()

	offer(sub.state, StateChange{Previous: PhaseIdle, Current: PhaseLoading})
	offer(sub.track, TrackChange{Index: 3})
	offer(sub.position, PositionChange{Position: 12 * time.Second})
	offer(sub.queue, QueueChange{Tracks: []Track{{ID: "a"}}})
	offer(sub.mode, ModeChange{RepeatMode: RepeatTrack})
	offer(sub.volume, VolumeChange{Volume: 0.25})
	offer(sub.errs, ErrorEvent{Err: &PlaybackError{Kind: ErrAborted, TrackID: "a"}})

	if e := <-sub.StateChanged; e.Current != PhaseLoading {
		t.Errorf("state = %v, want Loading", e.Current)
	}
	if e := <-sub.TrackChanged; e.Index != 3 {
		t.Errorf("track index = %d, want 3", e.Index)
	}
	if e := <-sub.PositionChanged; e.Position != 12*time.Second {
		t.Errorf("position = %v, want 12s", e.Position)
	}
	if e := <-sub.QueueChanged; len(e.Tracks) != 1 {
		t.Errorf("queue = %v, want one track", e.Tracks)
	}
	if e := <-sub.ModeChanged; e.RepeatMode != RepeatTrack {
		t.Errorf("repeat = %v, want RepeatTrack", e.RepeatMode)
	}
	if e := <-sub.VolumeChanged; e.Volume != 0.25 {
		t.Errorf("volume = %v, want 0.25", e.Volume)
	}
	if e := <-sub.Error; e.Err.TrackID != "a" {
		t.Errorf("error track = %q, want a", e.Err.TrackID)
	}
}

func TestSubscription_DropsWhenFull(t *testing.T) {
	sub := newSubscription()

	queued := 0
	for range eventBufferSize + 3 {
		if offer(sub.position, PositionChange{}) {
			queued++
		}
	}
	if queued != eventBufferSize {
		t.Errorf("queued %d events, want %d", queued, eventBufferSize)
	}
	if len(sub.PositionChanged) != eventBufferSize {
		t.Errorf("buffered %d events, want %d", len(sub.PositionChanged), eventBufferSize)
	}
}

func TestSubscription_CloseUnblocksWaiters(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		sub := newSubscription()
		stopped := false
		go func() {
			<-sub.Done
			stopped = true
		}()
		synctest.Wait()
		if stopped {
			t.Fatal("Done closed before close()")
		}
		sub.close()
		synctest.Wait()
		if !stopped {
			t.Error("Done not closed after close()")
		}
	})
}
