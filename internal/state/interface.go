package state

import (
	"time"

	"github.com/llehouerou/wavestream/internal/playback"
)

// SessionStore persists the playback session.
type SessionStore interface {
	SaveSession(st playback.SessionState)
	Flush() error
	LoadSession() (*playback.SessionState, error)
}

// ScrobbleStore keeps scrobble markers and the pending submission queue.
type ScrobbleStore interface {
	MarkScrobbled(trackID string, startedAt time.Time) (bool, error)
	AddPendingScrobble(s PendingScrobble) error
	PendingScrobbles(limit int) ([]PendingScrobble, error)
	DeletePendingScrobble(id int64) error
	UpdatePendingScrobbleAttempt(id int64, errMsg string) error
}

// Interface is everything Manager offers; Mock implements it for tests.
type Interface interface {
	SessionStore
	ScrobbleStore
	Close() error
}

var (
	_ Interface = (*Manager)(nil)
	_ Interface = (*Mock)(nil)
)
