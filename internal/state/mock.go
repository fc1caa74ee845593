package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/llehouerou/wavestream/internal/playback"
)

// Mock is an in-memory test double for Manager.
type Mock struct {
	mu      sync.Mutex
	session *playback.SessionState
	saves   int
	markers map[string]bool
	pending []PendingScrobble
	nextID  int64
	closed  bool
	addErr  error
}

// NewMock creates a new mock state manager for testing.
func NewMock() *Mock {
	return &Mock{markers: make(map[string]bool)}
}

func (m *Mock) SaveSession(st playback.SessionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = &st
	m.saves++
}

func (m *Mock) Flush() error { return nil }

func (m *Mock) LoadSession() (*playback.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, nil //nolint:nilnil // nil session means nothing saved yet
	}
	st := *m.session
	return &st, nil
}

func (m *Mock) MarkScrobbled(trackID string, startedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%s@%d", trackID, startedAt.Unix())
	if m.markers[key] {
		return false, nil
	}
	m.markers[key] = true
	return true, nil
}

func (m *Mock) AddPendingScrobble(s PendingScrobble) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.nextID++
	s.ID = m.nextID
	m.pending = append(m.pending, s)
	return nil
}

func (m *Mock) PendingScrobbles(limit int) ([]PendingScrobble, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := min(limit, len(m.pending))
	return append([]PendingScrobble(nil), m.pending[:n]...), nil
}

func (m *Mock) DeletePendingScrobble(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.pending {
		if p.ID == id {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Mock) UpdatePendingScrobbleAttempt(id int64, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.pending {
		if m.pending[i].ID == id {
			m.pending[i].Attempts++
			m.pending[i].LastError = errMsg
		}
	}
	return nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Test helpers

func (m *Mock) SetSession(st *playback.SessionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = st
}

// Saves returns how many times SaveSession was called.
func (m *Mock) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Pending returns a copy of the queued scrobbles.
func (m *Mock) Pending() []PendingScrobble {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PendingScrobble(nil), m.pending...)
}

// Markers returns the number of scrobble markers written.
func (m *Mock) Markers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.markers)
}

// FailAddPending makes AddPendingScrobble return err.
func (m *Mock) FailAddPending(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addErr = err
}

func (m *Mock) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
