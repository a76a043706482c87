package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type frameMsg time.Time

type haikuMsg struct {
	text string
	err  error
}

// frameCmd schedules the next animation frame, about 30 fps.
func frameCmd() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}
