package refresh

import (
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/llehouerou/wavestream/internal/playlist"
)

// albumDocument is the JSON form of an album page.
type albumDocument struct {
	Title  string       `json:"title"`
	Artist string       `json:"artist"`
	Tracks []albumTrack `json:"tracks"`
}

type albumTrack struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Artist    string            `json:"artist"`
	Duration  float64           `json:"duration"` // seconds
	StreamURL string            `json:"stream_url"`
	Files     map[string]string `json:"file"`
}

// tracks converts the document to queue entries. Tracks without an id or
// a playable file are skipped.
func (d *albumDocument) tracks(albumURL string) []playlist.Track {
	return lo.FilterMap(d.Tracks, func(t albumTrack, _ int) (playlist.Track, bool) {
		u := t.streamURL()
		return playlist.Track{
			ID:        t.ID,
			StreamURL: u,
			AlbumURL:  albumURL,
			Duration:  time.Duration(t.Duration * float64(time.Second)),
			Title:     t.Title,
			Artist:    lo.Ternary(t.Artist != "", t.Artist, d.Artist),
			Album:     d.Title,
		}, t.ID != "" && u != ""
	})
}

// streamURL picks the direct URL if present, else the preferred format,
// else the first non-empty file by format name.
func (t *albumTrack) streamURL() string {
	if t.StreamURL != "" {
		return t.StreamURL
	}
	for _, f := range preferredFormats {
		if u := t.Files[f]; u != "" {
			return u
		}
	}
	keys := lo.Keys(lo.OmitByValues(t.Files, []string{""}))
	if len(keys) == 0 {
		return ""
	}
	slices.Sort(keys)
	return t.Files[keys[0]]
}
