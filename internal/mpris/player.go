package mpris

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/llehouerou/wavestream/internal/playback"
)

// Controller is the part of the playback controller MPRIS drives.
type Controller interface {
	Play()
	Pause()
	Toggle()
	Stop()
	Next()
	Previous()
	Seek(pos time.Duration)
	SeekBy(delta time.Duration)
	SetVolume(v float64)
	SetRepeatMode(m playback.RepeatMode)
	SetShuffle(enabled bool)
	Snapshot() playback.Snapshot
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error {
	return nil // Not supported
}

func (r *rootAdapter) Quit() error {
	return nil // Not supported - app manages its own lifecycle
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil
}

func (r *rootAdapter) Identity() (string, error) {
	return "Wavestream", nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"http", "https", "file"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/flac", "audio/wav"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter and the loop
// and shuffle extensions.
type playerAdapter struct {
	ctrl Controller
}

func (p *playerAdapter) Next() error {
	p.ctrl.Next()
	return nil
}

func (p *playerAdapter) Previous() error {
	p.ctrl.Previous()
	return nil
}

func (p *playerAdapter) Pause() error {
	p.ctrl.Pause()
	return nil
}

func (p *playerAdapter) PlayPause() error {
	p.ctrl.Toggle()
	return nil
}

func (p *playerAdapter) Stop() error {
	p.ctrl.Stop()
	return nil
}

func (p *playerAdapter) Play() error {
	p.ctrl.Play()
	return nil
}

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	p.ctrl.SeekBy(time.Duration(offset) * time.Microsecond)
	return nil
}

// SetPosition ignores requests for a track other than the current one.
func (p *playerAdapter) SetPosition(trackID string, position types.Microseconds) error {
	snap := p.ctrl.Snapshot()
	if snap.Track == nil || trackID != formatTrackID(snap.Track.ID) {
		return nil
	}
	p.ctrl.Seek(time.Duration(position) * time.Microsecond)
	return nil
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil // Not supported
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	switch p.ctrl.Snapshot().Phase {
	case playback.PhasePlaying, playback.PhaseBuffering:
		return types.PlaybackStatusPlaying, nil
	case playback.PhasePaused, playback.PhaseReady, playback.PhaseLoading:
		return types.PlaybackStatusPaused, nil
	case playback.PhaseIdle, playback.PhaseError:
		return types.PlaybackStatusStopped, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetRate(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	snap := p.ctrl.Snapshot()
	track := snap.Track
	if track == nil {
		return types.Metadata{}, nil
	}

	length := track.Duration
	if snap.Duration > 0 {
		length = snap.Duration
	}
	meta := types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(track.ID)),
		Length:  types.Microseconds(length.Microseconds()),
		Title:   track.Title,
		Album:   track.Album,
		Url:     track.StreamURL,
	}
	if track.Artist != "" {
		meta.Artist = []string{track.Artist}
	}
	if meta.Title == "" {
		meta.Title = track.DisplayName()
	}
	return meta, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	snap := p.ctrl.Snapshot()
	if snap.Muted {
		return 0, nil
	}
	return snap.Volume, nil
}

func (p *playerAdapter) SetVolume(v float64) error {
	p.ctrl.SetVolume(v)
	return nil
}

func (p *playerAdapter) Position() (int64, error) {
	return p.ctrl.Snapshot().Position.Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	snap := p.ctrl.Snapshot()
	if len(snap.Queue) == 0 {
		return false, nil
	}
	return snap.Repeat == playback.RepeatAll || snap.Index < len(snap.Queue)-1, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return len(p.ctrl.Snapshot().Queue) > 0, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return len(p.ctrl.Snapshot().Queue) > 0, nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return p.ctrl.Snapshot().Duration > 0, nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

// LoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) LoopStatus() (types.LoopStatus, error) {
	switch p.ctrl.Snapshot().Repeat {
	case playback.RepeatTrack:
		return types.LoopStatusTrack, nil
	case playback.RepeatAll:
		return types.LoopStatusPlaylist, nil
	case playback.RepeatOff:
		return types.LoopStatusNone, nil
	}
	return types.LoopStatusNone, nil
}

// SetLoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) SetLoopStatus(status types.LoopStatus) error {
	switch status {
	case types.LoopStatusNone:
		p.ctrl.SetRepeatMode(playback.RepeatOff)
	case types.LoopStatusTrack:
		p.ctrl.SetRepeatMode(playback.RepeatTrack)
	case types.LoopStatusPlaylist:
		p.ctrl.SetRepeatMode(playback.RepeatAll)
	}
	return nil
}

// Shuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) Shuffle() (bool, error) {
	return p.ctrl.Snapshot().Shuffle, nil
}

// SetShuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) SetShuffle(shuffle bool) error {
	p.ctrl.SetShuffle(shuffle)
	return nil
}

func formatTrackID(id string) string {
	h := fnv.New64a()
	h.Write([]byte(id))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
