package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/llehouerou/wavestream/internal/keymap"
	"github.com/llehouerou/wavestream/internal/playback"
)

var (
	playerBarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const (
	seekStep   = 5 * time.Second
	volumeStep = 0.05
)

// controller is what the UI drives.
type controller interface {
	Toggle()
	Stop()
	Next()
	Previous()
	Retry()
	JumpTo(index int)
	Remove(index int)
	SeekBy(delta time.Duration)
	SetVolume(v float64)
	SetMuted(muted bool)
	SetRepeatMode(m playback.RepeatMode)
	SetShuffle(enabled bool)
	Snapshot() playback.Snapshot
}

type tickMsg time.Time

type errorMsg struct{ err *playback.PlaybackError }

type model struct {
	ctrl   controller
	keys   *keymap.Resolver
	errors <-chan playback.ErrorEvent
	snap   playback.Snapshot
	err    *playback.PlaybackError
	width  int
}

func newModel(ctrl controller, errs <-chan playback.ErrorEvent) model {
	return model{
		ctrl:   ctrl,
		keys:   keymap.NewResolver(keymap.All),
		errors: errs,
		snap:   ctrl.Snapshot(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.waitError())
}

func (m model) waitError() tea.Cmd {
	if m.errors == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-m.errors
		if !ok {
			return nil
		}
		return errorMsg{err: e.Err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func nextRepeat(r playback.RepeatMode) playback.RepeatMode {
	switch r {
	case playback.RepeatOff:
		return playback.RepeatAll
	case playback.RepeatAll:
		return playback.RepeatTrack
	default:
		return playback.RepeatOff
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tickMsg:
		m.snap = m.ctrl.Snapshot()
		if m.snap.Err == nil {
			m.err = nil
		}
		return m, tickCmd()

	case errorMsg:
		m.err = msg.err
		return m, m.waitError()

	case tea.KeyMsg:
		action := m.keys.Resolve(msg.String())
		if action == keymap.ActionQuit {
			return m, tea.Quit
		}
		m.dispatch(action)
		m.snap = m.ctrl.Snapshot()
	}
	return m, nil
}

func (m model) dispatch(action keymap.Action) {
	switch action {
	case keymap.ActionPlayPause:
		m.ctrl.Toggle()
	case keymap.ActionStop:
		m.ctrl.Stop()
	case keymap.ActionNextTrack:
		m.ctrl.Next()
	case keymap.ActionPrevTrack:
		m.ctrl.Previous()
	case keymap.ActionFirstTrack:
		m.ctrl.JumpTo(0)
	case keymap.ActionRetry:
		m.ctrl.Retry()
	case keymap.ActionSeekBack:
		m.ctrl.SeekBy(-seekStep)
	case keymap.ActionSeekForward:
		m.ctrl.SeekBy(seekStep)
	case keymap.ActionVolumeUp:
		m.ctrl.SetVolume(m.snap.Volume + volumeStep)
	case keymap.ActionVolumeDown:
		m.ctrl.SetVolume(m.snap.Volume - volumeStep)
	case keymap.ActionToggleMute:
		m.ctrl.SetMuted(!m.snap.Muted)
	case keymap.ActionCycleRepeat:
		m.ctrl.SetRepeatMode(nextRepeat(m.snap.Repeat))
	case keymap.ActionToggleShuffle:
		m.ctrl.SetShuffle(!m.snap.Shuffle)
	case keymap.ActionRemoveCurrent:
		if len(m.snap.Queue) > 0 {
			m.ctrl.Remove(m.snap.Index)
		}
	}
}

func statusIcon(p playback.Phase) string {
	switch p {
	case playback.PhasePlaying:
		return "▶"
	case playback.PhasePaused, playback.PhaseReady:
		return "⏸"
	case playback.PhaseLoading, playback.PhaseBuffering:
		return "…"
	case playback.PhaseError:
		return "!"
	default:
		return "■"
	}
}

func (m model) View() string {
	snap := m.snap
	innerWidth := max(m.width-2, 0)

	// Right side: position/duration
	right := fmt.Sprintf("%s / %s ", formatDuration(snap.Position), formatDuration(snap.Duration))
	rightLen := lipgloss.Width(right)

	trackInfo := "nothing queued"
	if snap.Track != nil {
		trackInfo = snap.Track.DisplayName()
		if snap.Track.Album != "" {
			trackInfo += " (" + snap.Track.Album + ")"
		}
	}
	statusPart := " " + statusIcon(snap.Phase) + "  "

	// Truncate the track to keep the timer visible
	available := innerWidth - lipgloss.Width(statusPart) - rightLen - 2
	if available > 0 && lipgloss.Width(trackInfo) > available {
		trackInfo = string([]rune(trackInfo)[:max(available-1, 0)]) + "…"
	}

	left := statusPart + trackInfo
	padding := max(innerWidth-lipgloss.Width(left)-rightLen, 0)
	content := left + strings.Repeat(" ", padding) + right

	var details []string
	if len(snap.Queue) > 0 {
		details = append(details, fmt.Sprintf("%d/%d", snap.Index+1, len(snap.Queue)))
	}
	vol := fmt.Sprintf("vol %d%%", int(snap.Volume*100+0.5))
	if snap.Muted {
		vol = "muted"
	}
	details = append(details, vol, "repeat "+snap.Repeat.String())
	if snap.Shuffle {
		details = append(details, "shuffle")
	}
	if snap.Crossfading {
		details = append(details, "crossfading")
	}
	if snap.Size > 0 {
		details = append(details, humanize.Bytes(uint64(snap.Size)))
	}
	content += "\n " + dimStyle.Render(strings.Join(details, " · "))

	if m.err != nil {
		content += "\n " + errorStyle.Render(m.err.Message)
	}

	help := dimStyle.Render(" " + m.keys.Help())
	return playerBarStyle.Width(innerWidth).Render(content) + "\n" + help
}

func formatDuration(d time.Duration) string {
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", m, s)
}
