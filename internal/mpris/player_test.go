package mpris

import (
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/wavestream/internal/playback"
)

type fakeController struct {
	snap  playback.Snapshot
	calls []string
	seeks []time.Duration
}

func (f *fakeController) Play()     { f.calls = append(f.calls, "play") }
func (f *fakeController) Pause()    { f.calls = append(f.calls, "pause") }
func (f *fakeController) Toggle()   { f.calls = append(f.calls, "toggle") }
func (f *fakeController) Stop()     { f.calls = append(f.calls, "stop") }
func (f *fakeController) Next()     { f.calls = append(f.calls, "next") }
func (f *fakeController) Previous() { f.calls = append(f.calls, "previous") }

func (f *fakeController) Seek(pos time.Duration) {
	f.calls = append(f.calls, "seek")
	f.seeks = append(f.seeks, pos)
}

func (f *fakeController) SeekBy(delta time.Duration) {
	f.calls = append(f.calls, "seekby")
	f.seeks = append(f.seeks, delta)
}

func (f *fakeController) SetVolume(v float64)                 { f.snap.Volume = v }
func (f *fakeController) SetRepeatMode(m playback.RepeatMode) { f.snap.Repeat = m }
func (f *fakeController) SetShuffle(enabled bool)             { f.snap.Shuffle = enabled }
func (f *fakeController) Snapshot() playback.Snapshot         { return f.snap }

func playing() *fakeController {
	return &fakeController{snap: playback.Snapshot{
		Phase: playback.PhasePlaying,
		Track: &playback.Track{
			ID:        "t1",
			Title:     "Song",
			Artist:    "Artist",
			Album:     "Album",
			StreamURL: "https://cdn.example/t1.mp3",
		},
		Queue:    []playback.Track{{ID: "t1"}, {ID: "t2"}},
		Position: 10 * time.Second,
		Duration: 3 * time.Minute,
		Volume:   0.8,
	}}
}

func TestPlayerAdapter_Transport(t *testing.T) {
	ctrl := playing()
	p := &playerAdapter{ctrl: ctrl}

	require.NoError(t, p.Play())
	require.NoError(t, p.Pause())
	require.NoError(t, p.PlayPause())
	require.NoError(t, p.Next())
	require.NoError(t, p.Previous())
	require.NoError(t, p.Stop())
	require.NoError(t, p.Seek(types.Microseconds(5_000_000)))

	assert.Equal(t, []string{"play", "pause", "toggle", "next", "previous", "stop", "seekby"}, ctrl.calls)
	assert.Equal(t, []time.Duration{5 * time.Second}, ctrl.seeks)
}

func TestPlayerAdapter_SetPosition(t *testing.T) {
	ctrl := playing()
	p := &playerAdapter{ctrl: ctrl}

	require.NoError(t, p.SetPosition("/org/mpris/MediaPlayer2/Track/other", 1_000_000))
	assert.Empty(t, ctrl.calls)

	require.NoError(t, p.SetPosition(formatTrackID("t1"), 42_000_000))
	assert.Equal(t, []string{"seek"}, ctrl.calls)
	assert.Equal(t, []time.Duration{42 * time.Second}, ctrl.seeks)
}

func TestPlayerAdapter_PlaybackStatus(t *testing.T) {
	tests := []struct {
		phase playback.Phase
		want  types.PlaybackStatus
	}{
		{playback.PhaseIdle, types.PlaybackStatusStopped},
		{playback.PhaseLoading, types.PlaybackStatusPaused},
		{playback.PhaseReady, types.PlaybackStatusPaused},
		{playback.PhasePlaying, types.PlaybackStatusPlaying},
		{playback.PhasePaused, types.PlaybackStatusPaused},
		{playback.PhaseBuffering, types.PlaybackStatusPlaying},
		{playback.PhaseError, types.PlaybackStatusStopped},
	}
	for _, tt := range tests {
		t.Run(tt.phase.String(), func(t *testing.T) {
			ctrl := playing()
			ctrl.snap.Phase = tt.phase
			got, err := (&playerAdapter{ctrl: ctrl}).PlaybackStatus()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlayerAdapter_Metadata(t *testing.T) {
	p := &playerAdapter{ctrl: playing()}

	meta, err := p.Metadata()
	require.NoError(t, err)
	assert.Equal(t, dbus.ObjectPath(formatTrackID("t1")), meta.TrackId)
	assert.Equal(t, types.Microseconds((3 * time.Minute).Microseconds()), meta.Length)
	assert.Equal(t, "Song", meta.Title)
	assert.Equal(t, []string{"Artist"}, meta.Artist)
	assert.Equal(t, "Album", meta.Album)

	pos, err := p.Position()
	require.NoError(t, err)
	assert.Equal(t, (10 * time.Second).Microseconds(), pos)
}

func TestPlayerAdapter_MetadataWithoutTrack(t *testing.T) {
	p := &playerAdapter{ctrl: &fakeController{}}

	meta, err := p.Metadata()
	require.NoError(t, err)
	assert.Equal(t, types.Metadata{}, meta)

	canPlay, err := p.CanPlay()
	require.NoError(t, err)
	assert.False(t, canPlay)

	canSeek, err := p.CanSeek()
	require.NoError(t, err)
	assert.False(t, canSeek)
}

func TestPlayerAdapter_CanGoNext(t *testing.T) {
	ctrl := playing()
	p := &playerAdapter{ctrl: ctrl}

	ok, err := p.CanGoNext()
	require.NoError(t, err)
	assert.True(t, ok)

	ctrl.snap.Index = 1
	ok, _ = p.CanGoNext()
	assert.False(t, ok)

	ctrl.snap.Repeat = playback.RepeatAll
	ok, _ = p.CanGoNext()
	assert.True(t, ok)
}

func TestPlayerAdapter_LoopShuffleVolume(t *testing.T) {
	ctrl := playing()
	p := &playerAdapter{ctrl: ctrl}

	for _, status := range []types.LoopStatus{types.LoopStatusTrack, types.LoopStatusPlaylist, types.LoopStatusNone} {
		require.NoError(t, p.SetLoopStatus(status))
		got, err := p.LoopStatus()
		require.NoError(t, err)
		assert.Equal(t, status, got)
	}

	require.NoError(t, p.SetShuffle(true))
	shuffle, err := p.Shuffle()
	require.NoError(t, err)
	assert.True(t, shuffle)

	require.NoError(t, p.SetVolume(0.3))
	vol, err := p.Volume()
	require.NoError(t, err)
	assert.InDelta(t, 0.3, vol, 1e-9)

	ctrl.snap.Muted = true
	vol, _ = p.Volume()
	assert.Zero(t, vol)
}
