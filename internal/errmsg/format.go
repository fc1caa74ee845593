// Package errmsg builds the error strings shown to the listener.
package errmsg

import "fmt"

// Op names the operation that failed, phrased to follow "failed to".
type Op string

const (
	OpPlaybackStart Op = "start playback"
	OpPlaybackSeek  Op = "seek"
	OpTrackLoad     Op = "load track"
	OpStreamRefresh Op = "refresh stream URL"

	OpSessionRestore Op = "restore session"
	OpSessionSave    Op = "save session"

	OpLastfmScrobble   Op = "scrobble to Last.fm"
	OpLastfmNowPlaying Op = "update Last.fm now playing"

	OpConfigLoad Op = "load configuration"
)

// Format returns "Failed to <op>: <err>", or "" for a nil error.
func Format(op Op, err error) string {
	return FormatWith(op, "", err)
}

// FormatWith is Format naming the subject of the operation, usually a
// track.
func FormatWith(op Op, subject string, err error) string {
	switch {
	case err == nil:
		return ""
	case subject == "":
		return fmt.Sprintf("Failed to %s: %v", op, err)
	default:
		return fmt.Sprintf("Failed to %s '%s': %v", op, subject, err)
	}
}

// Retryable appends the hint that play retries the failed track.
func Retryable(msg string) string {
	if msg == "" {
		return ""
	}
	return msg + " (press play to retry)"
}
