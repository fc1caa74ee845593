package player

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
)

var (
	// ErrExpired means the source URL is no longer valid (HTTP 410/403).
	ErrExpired = errors.New("source expired")
	// ErrAborted means the load was superseded by another Load or Stop.
	ErrAborted = errors.New("load aborted")
	// ErrRejected means the output refused to start playback.
	ErrRejected = errors.New("playback rejected")
	// ErrNoSource is returned by operations that need a loaded source.
	ErrNoSource = errors.New("no source loaded")
	// ErrUnsupportedFormat is returned when no decoder matches the source.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// LoadError describes a failed fetch of a source.
type LoadError struct {
	URL    string
	Status int // HTTP status, 0 for transport errors
	Err    error
}

func (e *LoadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("load %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.URL, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// EventKind identifies an output lifecycle event.
type EventKind int

const (
	EventCanPlay EventKind = iota
	EventTimeUpdate
	EventDurationChange
	EventEnded
	EventError
	EventWaiting
)

// String returns the event name.
func (k EventKind) String() string {
	switch k {
	case EventCanPlay:
		return "canplay"
	case EventTimeUpdate:
		return "timeupdate"
	case EventDurationChange:
		return "durationchange"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	case EventWaiting:
		return "waiting"
	default:
		return "unknown"
	}
}

// Event is emitted by an Output. Unit names the emitting output so that
// listeners sharing one channel across outputs can tell them apart.
type Event struct {
	Unit     string
	Kind     EventKind
	Position time.Duration
	Duration time.Duration
	Err      error
}

// Metadata holds tags read from the loaded source.
type Metadata struct {
	Title  string
	Artist string
	Album  string
}

// Output is one decodable audio source with transport controls.
//
// At most one load is active per output. Calling Load again (or Stop)
// makes the previous Load return ErrAborted, but callers must still
// discard late results themselves.
type Output interface {
	Name() string
	Load(ctx context.Context, url string) error
	Play() error
	Pause()
	Seek(pos time.Duration) error
	SetGain(gain float64)
	Gain() float64
	Stop()
	State() State
	Position() time.Duration
	Duration() time.Duration
	Source() string
	Loading() bool
	Metadata() *Metadata
	Size() int64
	Events() <-chan Event
}

// proxySourceParam is the query parameter a local proxy uses to carry the
// original source URL.
const proxySourceParam = "src"

// SourceMatches reports whether the loaded source is the expected one,
// either exactly or through a proxy URL carrying it in ?src=.
func SourceMatches(loaded, expected string) bool {
	if loaded == "" || expected == "" {
		return false
	}
	if loaded == expected {
		return true
	}
	u, err := url.Parse(loaded)
	if err != nil {
		return false
	}
	return u.Query().Get(proxySourceParam) == expected
}
