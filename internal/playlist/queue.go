package playlist

import (
	"math/rand/v2"
	"strings"
)

// RepeatMode defines what happens when the current track ends.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatTrack
)

// String returns the repeat mode name.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "off"
	case RepeatAll:
		return "all"
	case RepeatTrack:
		return "track"
	default:
		return "unknown"
	}
}

// ParseRepeatMode parses the String form. Unknown values yield RepeatOff.
func ParseRepeatMode(s string) RepeatMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all":
		return RepeatAll
	case "track", "one":
		return RepeatTrack
	default:
		return RepeatOff
	}
}

// PlayingQueue wraps a Playlist with playback position and modes.
//
// With RepeatAll the queue is logically expanded: index Len()-1 is followed
// by another copy of the whole sequence, so advancing is always a plain
// increment. Only the chunk holding the current index and the one after it
// are kept; older chunks are compacted away.
type PlayingQueue struct {
	playlist     *Playlist
	currentIndex int // -1 if nothing selected
	copies       int // loop expansion; logical length is base length * copies
	repeat       RepeatMode
	shuffle      bool
	original     []Track // order before shuffling; nil when not shuffled
	shuffleFn    func([]Track)
}

// NewQueue creates a new empty playing queue.
func NewQueue() *PlayingQueue {
	return &PlayingQueue{
		playlist:     NewPlaylist(),
		currentIndex: -1,
		copies:       1,
		shuffleFn: func(t []Track) {
			rand.Shuffle(len(t), func(i, j int) { t[i], t[j] = t[j], t[i] })
		},
	}
}

func (q *PlayingQueue) baseLen() int {
	return q.playlist.Len()
}

// Current returns the currently selected track, or nil if none.
func (q *PlayingQueue) Current() *Track {
	return q.Track(q.currentIndex)
}

// CurrentIndex returns the logical index of the current track (-1 if none).
// Under loop expansion it may exceed the base length.
func (q *PlayingQueue) CurrentIndex() int {
	return q.currentIndex
}

// BaseIndex returns the current position within Tracks (-1 if none).
func (q *PlayingQueue) BaseIndex() int {
	if q.currentIndex < 0 || q.baseLen() == 0 {
		return -1
	}
	return q.currentIndex % q.baseLen()
}

// Track returns the track at a logical index, or nil if out of range.
func (q *PlayingQueue) Track(index int) *Track {
	if index < 0 || index >= q.Len() {
		return nil
	}
	return q.playlist.Track(index % q.baseLen())
}

// Advance moves to the next logical index and returns the new current
// track. It never wraps; returns nil at the end.
func (q *PlayingQueue) Advance() *Track {
	if !q.HasNext() {
		return nil
	}
	q.currentIndex++
	return q.Current()
}

// Retreat moves to the previous track. With RepeatAll the first track
// wraps to the last one.
func (q *PlayingQueue) Retreat() *Track {
	switch {
	case q.currentIndex > 0:
		q.currentIndex--
	case q.currentIndex == 0 && q.repeat == RepeatAll && q.baseLen() > 1:
		q.collapse()
		q.currentIndex = q.baseLen() - 1
	default:
		return nil
	}
	return q.Current()
}

// HasNext returns true if a plain Advance would succeed.
func (q *PlayingQueue) HasNext() bool {
	return q.currentIndex >= 0 && q.currentIndex < q.Len()-1
}

// Peek returns the track offset positions from the current one without
// moving, or nil if that position does not exist.
func (q *PlayingQueue) Peek(offset int) *Track {
	if q.currentIndex < 0 {
		return nil
	}
	return q.Track(q.currentIndex + offset)
}

// PeekNext returns the track that will play after the current one,
// honoring the repeat mode, without mutating the queue.
func (q *PlayingQueue) PeekNext() *Track {
	if q.currentIndex < 0 {
		return nil
	}
	switch {
	case q.repeat == RepeatTrack:
		return q.Current()
	case q.HasNext():
		return q.Peek(1)
	case q.repeat == RepeatAll:
		return q.playlist.Track((q.currentIndex + 1) % q.baseLen())
	default:
		return nil
	}
}

// ExpandForLoopIfNeeded appends another logical copy of the sequence when
// repeat is RepeatAll and the current track is the last one. Chunks that
// were fully played are dropped. Returns true if the queue was expanded.
func (q *PlayingQueue) ExpandForLoopIfNeeded() bool {
	n := q.baseLen()
	if q.repeat != RepeatAll || n == 0 || q.currentIndex < 0 || q.HasNext() {
		return false
	}
	for q.currentIndex >= n {
		q.currentIndex -= n
		q.copies--
	}
	q.copies++
	return true
}

// RestartLoop drops any loop expansion and selects the first track.
func (q *PlayingQueue) RestartLoop() *Track {
	q.copies = 1
	if q.baseLen() == 0 {
		q.currentIndex = -1
		return nil
	}
	q.currentIndex = 0
	return q.Current()
}

// collapse folds the current index back into the base sequence.
func (q *PlayingQueue) collapse() {
	if q.currentIndex >= 0 && q.baseLen() > 0 {
		q.currentIndex %= q.baseLen()
	}
	q.copies = 1
}

// JumpTo selects the track at a position within Tracks, dropping any loop
// expansion. Returns the track at that position, or nil if invalid.
func (q *PlayingQueue) JumpTo(index int) *Track {
	if index < 0 || index >= q.baseLen() {
		return nil
	}
	q.copies = 1
	q.currentIndex = index
	return q.Current()
}

// Add appends tracks to the queue without changing playback.
func (q *PlayingQueue) Add(tracks ...Track) {
	q.collapse()
	q.playlist.Add(tracks...)
	if q.shuffle {
		q.original = append(q.original, tracks...)
	}
}

// AddAndPlay appends tracks and jumps to the first added track.
// Returns the track to play.
func (q *PlayingQueue) AddAndPlay(tracks ...Track) *Track {
	if len(tracks) == 0 {
		return nil
	}
	q.collapse()
	insertIndex := q.playlist.Len()
	q.Add(tracks...)
	q.currentIndex = insertIndex
	return q.Current()
}

// Replace clears the queue, adds tracks, and selects start. With shuffle
// on, the tracks after start are shuffled. Returns the selected track.
func (q *PlayingQueue) Replace(start int, tracks ...Track) *Track {
	q.playlist.Clear()
	q.original = nil
	q.copies = 1
	q.currentIndex = -1
	if len(tracks) == 0 {
		return nil
	}
	q.playlist.Add(tracks...)
	if start < 0 || start >= len(tracks) {
		start = 0
	}
	q.currentIndex = start
	if q.shuffle {
		q.original = q.playlist.Tracks()
		q.shuffleUpcoming()
	}
	return q.Current()
}

// RemoveAt removes the track at a position within Tracks. Removing the
// current track selects the one that followed it.
func (q *PlayingQueue) RemoveAt(index int) bool {
	q.collapse()
	removed := q.playlist.Track(index)
	if removed == nil {
		return false
	}
	id := removed.ID
	if !q.playlist.Remove(index) {
		return false
	}
	if q.shuffle {
		for i := range q.original {
			if q.original[i].ID == id {
				q.original = append(q.original[:i], q.original[i+1:]...)
				break
			}
		}
	}

	switch {
	case q.playlist.Len() == 0:
		q.currentIndex = -1
	case q.currentIndex > index:
		q.currentIndex--
	case q.currentIndex >= q.playlist.Len():
		q.currentIndex = q.playlist.Len() - 1
	}
	return true
}

// Move moves the track at from to to, keeping the current track selected.
func (q *PlayingQueue) Move(from, to int) bool {
	q.collapse()
	if !q.playlist.Move(from, to) {
		return false
	}
	cur := q.currentIndex
	switch {
	case cur == from:
		q.currentIndex = to
	case from < cur && to >= cur:
		q.currentIndex--
	case from > cur && to <= cur:
		q.currentIndex++
	}
	return true
}

// Clear removes all tracks and resets playback.
func (q *PlayingQueue) Clear() {
	q.playlist.Clear()
	q.original = nil
	q.copies = 1
	q.currentIndex = -1
}

// UpdateStreamURL replaces the stream URL of every entry for id, including
// the pre-shuffle copy. Returns the number of queue entries updated.
func (q *PlayingQueue) UpdateStreamURL(id, url string) int {
	for i := range q.original {
		if q.original[i].ID == id {
			q.original[i].StreamURL = url
		}
	}
	return q.playlist.SetStreamURL(id, url)
}

// Tracks returns the base sequence in play order.
func (q *PlayingQueue) Tracks() []Track {
	return q.playlist.Tracks()
}

// Len returns the logical number of tracks, including loop expansion.
func (q *PlayingQueue) Len() int {
	return q.baseLen() * q.copies
}

// IsEmpty returns true if the queue has no tracks.
func (q *PlayingQueue) IsEmpty() bool {
	return q.playlist.Len() == 0
}

// RepeatMode returns the current repeat mode.
func (q *PlayingQueue) RepeatMode() RepeatMode {
	return q.repeat
}

// SetRepeatMode sets the repeat mode. Leaving RepeatAll drops the loop
// expansion.
func (q *PlayingQueue) SetRepeatMode(m RepeatMode) {
	if m != RepeatAll {
		q.collapse()
	}
	q.repeat = m
}

// CycleRepeatMode steps Off -> All -> Track -> Off and returns the new mode.
func (q *PlayingQueue) CycleRepeatMode() RepeatMode {
	switch q.repeat {
	case RepeatOff:
		q.SetRepeatMode(RepeatAll)
	case RepeatAll:
		q.SetRepeatMode(RepeatTrack)
	default:
		q.SetRepeatMode(RepeatOff)
	}
	return q.repeat
}

// Shuffle returns whether shuffle is enabled.
func (q *PlayingQueue) Shuffle() bool {
	return q.shuffle
}

// SetShuffle enables or disables shuffle. Enabling shuffles the tracks
// after the current one; disabling restores the original order with the
// current track still selected.
func (q *PlayingQueue) SetShuffle(enabled bool) {
	if enabled == q.shuffle {
		return
	}
	q.collapse()
	q.shuffle = enabled
	if enabled {
		q.original = q.playlist.Tracks()
		q.shuffleUpcoming()
		return
	}

	var curID string
	if cur := q.Current(); cur != nil {
		curID = cur.ID
	}
	q.playlist.Clear()
	q.playlist.Add(q.original...)
	q.original = nil
	if curID != "" {
		if i := q.playlist.IndexOf(curID); i >= 0 {
			q.currentIndex = i
		}
	}
	if q.currentIndex >= q.playlist.Len() {
		q.currentIndex = q.playlist.Len() - 1
	}
}

// ToggleShuffle flips shuffle and returns the new value.
func (q *PlayingQueue) ToggleShuffle() bool {
	q.SetShuffle(!q.shuffle)
	return q.shuffle
}

func (q *PlayingQueue) shuffleUpcoming() {
	q.shuffleFn(q.playlist.tracks[q.currentIndex+1:])
}
