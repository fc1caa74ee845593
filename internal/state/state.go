// Package state persists the playback session and listening history in
// SQLite.
package state

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/llehouerou/wavestream/internal/playback"
)

const (
	appName      = "wavestream"
	dbFileName   = "wavestream.db"
	saveDebounce = 500 * time.Millisecond
)

type Manager struct {
	db        *sql.DB
	saveMu    sync.Mutex
	saveTimer *time.Timer
	pending   *playback.SessionState
	now       func() time.Time
}

// Open opens the database at path, or under the XDG data directory when
// path is empty.
func Open(path string) (*Manager, error) {
	if path == "" {
		var err error
		if path, err = getDBPath(); err != nil {
			return nil, err
		}
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	m, err := NewManager(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

// NewManager wraps an open database, creating the schema if needed.
func NewManager(db *sql.DB) (*Manager, error) {
	if err := initSchema(db); err != nil {
		return nil, err
	}
	return &Manager{db: db, now: time.Now}, nil
}

func (m *Manager) Close() error {
	_ = m.Flush()
	return m.db.Close()
}

func (m *Manager) DB() *sql.DB {
	return m.db
}

// SaveSession schedules st to be written. Saves are coalesced: while one
// is pending, later calls only replace the state it will write.
func (m *Manager) SaveSession(st playback.SessionState) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.pending = &st
	if m.saveTimer != nil {
		return
	}
	m.saveTimer = time.AfterFunc(saveDebounce, func() {
		m.saveMu.Lock()
		pending := m.pending
		m.pending = nil
		m.saveTimer = nil
		m.saveMu.Unlock()

		if pending != nil {
			_ = saveSession(context.Background(), m.db, *pending, m.now())
		}
	})
}

// Flush writes any pending session immediately.
func (m *Manager) Flush() error {
	m.saveMu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
		m.saveTimer = nil
	}
	pending := m.pending
	m.pending = nil
	m.saveMu.Unlock()

	if pending == nil {
		return nil
	}
	return saveSession(context.Background(), m.db, *pending, m.now())
}

// LoadSession returns the saved session, or nil if none was saved.
func (m *Manager) LoadSession() (*playback.SessionState, error) {
	return loadSession(m.db)
}

func getDBPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}
