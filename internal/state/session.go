package state

import (
	"context"
	"database/sql"
	"errors"
	"time"

	dbutil "github.com/llehouerou/wavestream/internal/db"
	"github.com/llehouerou/wavestream/internal/playback"
	"github.com/llehouerou/wavestream/internal/playlist"
)

func loadSession(db *sql.DB) (*playback.SessionState, error) {
	var st playback.SessionState
	var trackID sql.NullString
	var positionMs int64
	var repeat int
	row := db.QueryRow(`
		SELECT current_index, track_id, position_ms, volume, muted, repeat_mode, shuffle
		FROM session_state WHERE id = 1
	`)
	err := row.Scan(&st.Index, &trackID, &positionMs, &st.Volume, &st.Muted, &repeat, &st.Shuffle)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // nil session means nothing saved yet
	}
	if err != nil {
		return nil, err
	}
	st.TrackID = dbutil.NullStringValue(trackID)
	st.Position = time.Duration(positionMs) * time.Millisecond
	st.Repeat = playlist.RepeatMode(repeat)

	rows, err := db.Query(`
		SELECT track_id, stream_url, album_url, title, artist, album, duration_ms
		FROM queue_tracks
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var t playback.Track
		var albumURL, title, artist, album sql.NullString
		var durationMs sql.NullInt64

		err := rows.Scan(&t.ID, &t.StreamURL, &albumURL, &title, &artist, &album, &durationMs)
		if err != nil {
			return nil, err
		}

		t.AlbumURL = dbutil.NullStringValue(albumURL)
		t.Title = dbutil.NullStringValue(title)
		t.Artist = dbutil.NullStringValue(artist)
		t.Album = dbutil.NullStringValue(album)
		t.Duration = dbutil.MillisValue(durationMs)
		st.Tracks = append(st.Tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &st, nil
}

func saveSession(ctx context.Context, sqlDB *sql.DB, st playback.SessionState, now time.Time) error {
	return dbutil.WithTx(ctx, sqlDB, func(tx *sql.Tx) error {
		// Clear existing queue
		_, err := tx.Exec(`DELETE FROM queue_tracks`)
		if err != nil {
			return err
		}

		_, err = tx.Exec(`
			INSERT INTO session_state (id, current_index, track_id, position_ms, volume, muted, repeat_mode, shuffle, saved_at)
			VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				current_index = excluded.current_index,
				track_id = excluded.track_id,
				position_ms = excluded.position_ms,
				volume = excluded.volume,
				muted = excluded.muted,
				repeat_mode = excluded.repeat_mode,
				shuffle = excluded.shuffle,
				saved_at = excluded.saved_at
		`, st.Index, dbutil.NullString(st.TrackID), st.Position.Milliseconds(), st.Volume, st.Muted, int(st.Repeat), st.Shuffle, now.Unix())
		if err != nil {
			return err
		}

		stmt, err := tx.Prepare(`
			INSERT INTO queue_tracks (position, track_id, stream_url, album_url, title, artist, album, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := range st.Tracks {
			t := &st.Tracks[i]
			_, err = stmt.Exec(i, t.ID, t.StreamURL, t.AlbumURL, t.Title, t.Artist, t.Album, dbutil.NullMillis(t.Duration))
			if err != nil {
				return err
			}
		}
		return nil
	})
}
