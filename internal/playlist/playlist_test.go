package playlist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(tracks []Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}

func abc() *Playlist {
	p := NewPlaylist()
	p.Add(Track{ID: "a"}, Track{ID: "b"}, Track{ID: "c"})
	return p
}

func TestPlaylist_AddRemoveClear(t *testing.T) {
	p := NewPlaylist()
	assert.Zero(t, p.Len())
	p.Add()
	assert.Zero(t, p.Len())

	p.Add(Track{ID: "a"}, Track{ID: "b"}, Track{ID: "c"})
	assert.Equal(t, []string{"a", "b", "c"}, ids(p.Tracks()))

	assert.True(t, p.Remove(1))
	assert.Equal(t, []string{"a", "c"}, ids(p.Tracks()))
	for _, i := range []int{-1, 2, 10} {
		assert.False(t, p.Remove(i), "Remove(%d)", i)
	}

	p.Clear()
	assert.Zero(t, p.Len())
	assert.Empty(t, p.Tracks())
}

func TestPlaylist_TracksIsCopy(t *testing.T) {
	p := abc()
	got := p.Tracks()
	got[0].ID = "changed"
	assert.Equal(t, "a", p.Track(0).ID)
}

func TestPlaylist_TrackAliasesEntry(t *testing.T) {
	p := abc()
	require.NotNil(t, p.Track(2))
	p.Track(2).Title = "Third"
	assert.Equal(t, "Third", p.Tracks()[2].Title)

	assert.Nil(t, p.Track(-1))
	assert.Nil(t, p.Track(3))
}

func TestPlaylist_Move(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		ok       bool
		want     []string
	}{
		{"forward", 0, 2, true, []string{"b", "c", "a"}},
		{"backward", 2, 0, true, []string{"c", "a", "b"}},
		{"adjacent", 1, 2, true, []string{"a", "c", "b"}},
		{"same", 1, 1, true, []string{"a", "b", "c"}},
		{"negative from", -1, 0, false, []string{"a", "b", "c"}},
		{"to out of range", 0, 3, false, []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := abc()
			assert.Equal(t, tt.ok, p.Move(tt.from, tt.to))
			assert.Equal(t, tt.want, ids(p.Tracks()))
		})
	}
}

func TestPlaylist_SetStreamURL(t *testing.T) {
	p := NewPlaylist()
	p.Add(
		Track{ID: "a", StreamURL: "http://old/a"},
		Track{ID: "b", StreamURL: "http://old/b"},
		Track{ID: "a", StreamURL: "http://old/a"},
	)

	assert.Equal(t, 2, p.SetStreamURL("a", "http://new/a"))
	tracks := p.Tracks()
	assert.Equal(t, "http://new/a", tracks[0].StreamURL)
	assert.Equal(t, "http://old/b", tracks[1].StreamURL)
	assert.Equal(t, "http://new/a", tracks[2].StreamURL)
	assert.Zero(t, p.SetStreamURL("missing", "x"))
}

func TestPlaylist_IndexOf(t *testing.T) {
	p := NewPlaylist()
	p.Add(Track{ID: "a"}, Track{ID: "b"}, Track{ID: "b"})

	assert.Equal(t, 1, p.IndexOf("b"))
	assert.Equal(t, -1, p.IndexOf("z"))
}

func TestTrack_DisplayName(t *testing.T) {
	tests := []struct {
		track Track
		want  string
	}{
		{Track{ID: "1", Artist: "Low", Title: "Words"}, "Low - Words"},
		{Track{ID: "1", Title: "Words"}, "Words"},
		{Track{ID: "1", Artist: "Low"}, "1"},
		{Track{ID: "1", Duration: time.Minute}, "1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.track.DisplayName())
	}
}

func TestTrack_CanRefresh(t *testing.T) {
	assert.False(t, (&Track{ID: "1"}).CanRefresh())
	assert.True(t, (&Track{ID: "1", AlbumURL: "https://label.example/album/x"}).CanRefresh())
}
