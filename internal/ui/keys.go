package ui

import tea "github.com/charmbracelet/bubbletea"

func isQuit(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return true
	}
	return false
}

func helpText(inReflection bool) string {
	if inReflection {
		return "click restart  f keep haiku  q quit"
	}
	return "m mic  v engine  +/- volume  h haiku  p sensitivity  c capture  q quit"
}
