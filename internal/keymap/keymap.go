package keymap

// Binding maps keys to an action.
type Binding struct {
	Action      Action
	Keys        []string
	Description string
	Context     string // "global", "playback", "volume", "queue"
}

// All contains all key bindings.
var All = []Binding{
	// Global
	{ActionQuit, []string{"q", "ctrl+c"}, "Quit", "global"},

	// Playback
	{ActionPlayPause, []string{" "}, "Play/pause", "playback"},
	{ActionStop, []string{"s"}, "Stop", "playback"},
	{ActionNextTrack, []string{"n", "pgdown"}, "Next track", "playback"},
	{ActionPrevTrack, []string{"p", "pgup"}, "Previous track", "playback"},
	{ActionFirstTrack, []string{"home"}, "First track", "playback"},
	{ActionSeekBack, []string{"left", "shift+left"}, "Seek -5s", "playback"},
	{ActionSeekForward, []string{"right", "shift+right"}, "Seek +5s", "playback"},
	{ActionRetry, []string{"R"}, "Retry failed track", "playback"},
	{ActionCycleRepeat, []string{"r"}, "Cycle repeat mode", "playback"},
	{ActionToggleShuffle, []string{"z", "S"}, "Toggle shuffle", "playback"},

	// Volume
	{ActionVolumeUp, []string{"+", "="}, "Volume up", "volume"},
	{ActionVolumeDown, []string{"-"}, "Volume down", "volume"},
	{ActionToggleMute, []string{"m"}, "Mute", "volume"},

	// Queue
	{ActionRemoveCurrent, []string{"d", "delete"}, "Remove current track", "queue"},
}

// displayKey renders a key for the help line.
func displayKey(k string) string {
	switch k {
	case " ":
		return "space"
	case "left":
		return "←"
	case "right":
		return "→"
	}
	return k
}
