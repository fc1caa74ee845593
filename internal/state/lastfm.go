package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbutil "github.com/llehouerou/wavestream/internal/db"
)

// LastfmSession is the linked Last.fm account.
type LastfmSession struct {
	Username   string
	SessionKey string
	LinkedAt   time.Time
}

// PendingScrobble is a play waiting to be submitted.
type PendingScrobble struct {
	ID           int64
	TrackID      string
	Artist       string
	Track        string
	Album        string
	DurationSecs int
	Timestamp    time.Time
	Attempts     int
	LastError    string
	CreatedAt    time.Time
}

// GetLastfmSession returns the linked account, or nil when none is stored.
func (m *Manager) GetLastfmSession() (*LastfmSession, error) {
	var (
		s        LastfmSession
		linkedAt int64
	)
	err := m.db.QueryRow(
		`SELECT username, session_key, linked_at FROM lastfm_session WHERE id = 1`,
	).Scan(&s.Username, &s.SessionKey, &linkedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // no linked account
	}
	if err != nil {
		return nil, fmt.Errorf("read lastfm session: %w", err)
	}
	s.LinkedAt = time.Unix(linkedAt, 0)
	return &s, nil
}

// SaveLastfmSession replaces the linked account.
func (m *Manager) SaveLastfmSession(username, sessionKey string) error {
	_, err := m.db.Exec(`
		INSERT INTO lastfm_session (id, username, session_key, linked_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			session_key = excluded.session_key,
			linked_at = excluded.linked_at`,
		username, sessionKey, m.now().Unix())
	if err != nil {
		return fmt.Errorf("save lastfm session: %w", err)
	}
	return nil
}

// MarkScrobbled records the play of trackID that started at startedAt.
// It returns false when that play was already recorded.
func (m *Manager) MarkScrobbled(trackID string, startedAt time.Time) (bool, error) {
	res, err := m.db.Exec(
		`INSERT OR IGNORE INTO scrobble_markers (track_id, started_at, created_at) VALUES (?, ?, ?)`,
		trackID, startedAt.Unix(), m.now().Unix())
	if err != nil {
		return false, fmt.Errorf("mark scrobbled %s: %w", trackID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark scrobbled %s: %w", trackID, err)
	}
	return n == 1, nil
}

// AddPendingScrobble queues a play for a later submission attempt.
func (m *Manager) AddPendingScrobble(s PendingScrobble) error {
	_, err := m.db.Exec(`
		INSERT INTO lastfm_pending_scrobbles
			(track_id, artist, track, album, duration_seconds, timestamp, attempts, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, NULL, ?)`,
		s.TrackID, s.Artist, s.Track, dbutil.NullString(s.Album), s.DurationSecs,
		s.Timestamp.Unix(), m.now().Unix())
	if err != nil {
		return fmt.Errorf("queue scrobble %s: %w", s.TrackID, err)
	}
	return nil
}

// PendingScrobbles returns up to limit queued plays, oldest first.
func (m *Manager) PendingScrobbles(limit int) ([]PendingScrobble, error) {
	rows, err := m.db.Query(`
		SELECT id, track_id, artist, track, album, duration_seconds, timestamp, attempts, last_error, created_at
		FROM lastfm_pending_scrobbles
		ORDER BY created_at, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending scrobbles: %w", err)
	}
	defer rows.Close()

	var out []PendingScrobble
	for rows.Next() {
		s, err := scanPending(rows)
		if err != nil {
			return nil, fmt.Errorf("list pending scrobbles: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanPending(rows *sql.Rows) (PendingScrobble, error) {
	var (
		s                    PendingScrobble
		album, lastError     sql.NullString
		duration             sql.NullInt64
		timestamp, createdAt int64
	)
	if err := rows.Scan(&s.ID, &s.TrackID, &s.Artist, &s.Track, &album, &duration,
		&timestamp, &s.Attempts, &lastError, &createdAt); err != nil {
		return s, err
	}
	s.Album = dbutil.NullStringValue(album)
	s.LastError = dbutil.NullStringValue(lastError)
	s.DurationSecs = int(duration.Int64)
	s.Timestamp = time.Unix(timestamp, 0)
	s.CreatedAt = time.Unix(createdAt, 0)
	return s, nil
}

// DeletePendingScrobble removes a queued play.
func (m *Manager) DeletePendingScrobble(id int64) error {
	if _, err := m.db.Exec(`DELETE FROM lastfm_pending_scrobbles WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete pending scrobble %d: %w", id, err)
	}
	return nil
}

// UpdatePendingScrobbleAttempt counts a failed attempt and keeps its error.
func (m *Manager) UpdatePendingScrobbleAttempt(id int64, errMsg string) error {
	_, err := m.db.Exec(
		`UPDATE lastfm_pending_scrobbles SET attempts = attempts + 1, last_error = ? WHERE id = ?`,
		dbutil.NullString(errMsg), id)
	if err != nil {
		return fmt.Errorf("update pending scrobble %d: %w", id, err)
	}
	return nil
}

// PruneHistory drops scrobble markers and queued plays older than maxAge
// in one transaction.
func (m *Manager) PruneHistory(maxAge time.Duration) error {
	cutoff := m.now().Add(-maxAge).Unix()
	return dbutil.WithTx(context.Background(), m.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM scrobble_markers WHERE created_at < ?`, cutoff); err != nil {
			return fmt.Errorf("prune scrobble markers: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM lastfm_pending_scrobbles WHERE created_at < ?`, cutoff); err != nil {
			return fmt.Errorf("prune pending scrobbles: %w", err)
		}
		return nil
	})
}
