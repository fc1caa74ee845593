package playback

import (
	"errors"

	"github.com/llehouerou/wavestream/internal/errmsg"
)

// Error kinds. Every *PlaybackError unwraps to one of these.
var (
	ErrTransientLoad    = errors.New("transient load error")
	ErrExpiredSource    = errors.New("stream URL expired")
	ErrAborted          = errors.New("load superseded")
	ErrExhaustedRetries = errors.New("gave up loading track")
	ErrPlaybackRejected = errors.New("playback rejected")
)

// Intent errors. These are logged and never change the session state.
var (
	ErrEmptyQueue      = errors.New("queue is empty")
	ErrNoCurrentTrack  = errors.New("no current track")
	ErrSeekUnavailable = errors.New("track duration unknown")
	ErrClosed          = errors.New("controller closed")
)

// PlaybackError is the user-facing error published to observers.
type PlaybackError struct {
	Kind      error
	TrackID   string
	Message   string
	Retryable bool
	Err       error
}

func (e *PlaybackError) Error() string {
	return e.Message
}

// Unwrap exposes both the kind and the underlying cause to errors.Is.
func (e *PlaybackError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newPlaybackError(kind error, op errmsg.Op, t *Track, cause error) *PlaybackError {
	var id, name string
	if t != nil {
		id, name = t.ID, t.DisplayName()
	}
	if cause == nil {
		cause = kind
	}
	return &PlaybackError{
		Kind:      kind,
		TrackID:   id,
		Message:   errmsg.Retryable(errmsg.FormatWith(op, name, cause)),
		Retryable: true,
		Err:       cause,
	}
}
