package playlist

import (
	"slices"
	"time"
)

// Track is a streamable entry. Only StreamURL changes after creation, when
// an expired URL is refreshed.
type Track struct {
	ID        string
	StreamURL string        // empty or expired until refreshed
	AlbumURL  string        // album page used to refresh StreamURL
	Duration  time.Duration // zero when unknown until probed
	Title     string
	Artist    string
	Album     string
}

// CanRefresh reports whether an expired stream URL can be renewed.
func (t *Track) CanRefresh() bool {
	return t.AlbumURL != ""
}

// DisplayName returns "Artist - Title", falling back to the ID.
func (t *Track) DisplayName() string {
	switch {
	case t.Artist != "" && t.Title != "":
		return t.Artist + " - " + t.Title
	case t.Title != "":
		return t.Title
	default:
		return t.ID
	}
}

// Playlist is the ordered list of tracks behind a Queue.
type Playlist struct {
	tracks []Track
}

func NewPlaylist() *Playlist {
	return &Playlist{}
}

func (p *Playlist) Add(tracks ...Track) {
	p.tracks = append(p.tracks, tracks...)
}

func (p *Playlist) valid(i int) bool {
	return i >= 0 && i < len(p.tracks)
}

// Remove deletes the track at index and reports whether it existed.
func (p *Playlist) Remove(index int) bool {
	if !p.valid(index) {
		return false
	}
	p.tracks = slices.Delete(p.tracks, index, index+1)
	return true
}

func (p *Playlist) Clear() {
	p.tracks = nil
}

// Tracks returns a copy of the tracks.
func (p *Playlist) Tracks() []Track {
	return slices.Clone(p.tracks)
}

// Track returns the track at index, or nil. The pointer aliases the
// playlist entry.
func (p *Playlist) Track(index int) *Track {
	if !p.valid(index) {
		return nil
	}
	return &p.tracks[index]
}

func (p *Playlist) Len() int {
	return len(p.tracks)
}

// SetStreamURL replaces the stream URL of every entry with id and returns
// how many entries changed.
func (p *Playlist) SetStreamURL(id, url string) int {
	n := 0
	for i := range p.tracks {
		if p.tracks[i].ID == id {
			p.tracks[i].StreamURL = url
			n++
		}
	}
	return n
}

// IndexOf returns the first index of id, or -1.
func (p *Playlist) IndexOf(id string) int {
	return slices.IndexFunc(p.tracks, func(t Track) bool { return t.ID == id })
}

// Move relocates the track at from so that it ends up at index to.
func (p *Playlist) Move(from, to int) bool {
	if !p.valid(from) || !p.valid(to) {
		return false
	}
	t := p.tracks[from]
	p.tracks = slices.Insert(slices.Delete(p.tracks, from, from+1), to, t)
	return true
}
