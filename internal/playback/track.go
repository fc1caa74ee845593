package playback

import "github.com/llehouerou/wavestream/internal/playlist"

// Track is the queue entry type.
type Track = playlist.Track

func copyTrack(t *Track) *Track {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
