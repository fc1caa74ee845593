package notify

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/llehouerou/wavestream/internal/playback"
)

const trackTimeout = 5000

// TrackWatcher shows a notification each time the playing track changes,
// replacing the previous one.
type TrackWatcher struct {
	n      Notifier
	logger zerolog.Logger
	lastID uint32
}

// NewTrackWatcher creates a watcher that sends through n.
func NewTrackWatcher(n Notifier, logger zerolog.Logger) *TrackWatcher {
	return &TrackWatcher{n: n, logger: logger}
}

// Run consumes changes until ctx is cancelled or done is closed.
func (w *TrackWatcher) Run(ctx context.Context, changes <-chan playback.TrackChange, done <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case e, ok := <-changes:
			if !ok {
				return
			}
			w.show(e.Current)
		}
	}
}

func (w *TrackWatcher) show(t *playback.Track) {
	if t == nil {
		return
	}
	id, err := w.n.Notify(trackNotification(t, w.lastID))
	if err != nil {
		w.logger.Warn().Err(err).Str("track", t.ID).Msg("track notification failed")
		return
	}
	w.lastID = id
}

func trackNotification(t *playback.Track, replaces uint32) Notification {
	title := t.Title
	if title == "" {
		title = t.ID
	}
	return Notification{
		Title:      title,
		Body:       strings.Join(lo.Compact([]string{t.Artist, t.Album}), " - "),
		Icon:       "audio-x-generic",
		Timeout:    trackTimeout,
		ReplacesID: replaces,
		Urgency:    UrgencyLow,
	}
}
