package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kmoroz/aurora/internal/experience"
	"github.com/kmoroz/aurora/internal/favorites"
	"github.com/kmoroz/aurora/internal/haiku"
	"github.com/kmoroz/aurora/internal/session"
	"github.com/kmoroz/aurora/internal/util"
)

const noticeTTL = 5 * time.Second

// Model is the Bubbletea model for the aurora TUI.
type Model struct {
	sess  *session.Session
	field *Field

	width  int
	height int

	mouseX, mouseY int
	mouseSeen      bool

	startedAt time.Time
	quitting  bool

	notice     string
	noticeTime time.Time

	haikuText    string
	haikuLoading bool
	spinner      spinner.Model
}

// New creates a Model around a started session.
func New(sess *session.Session) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return Model{
		sess:      sess,
		field:     NewField(),
		startedAt: time.Now(),
		spinner:   s,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(frameCmd(), tea.SetWindowTitle("aurora"))
}

func haikuCmd(sess *session.Session) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		text, err := sess.Haiku(ctx)
		return haikuMsg{text: text, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case frameMsg:
		now := time.Time(msg)
		m.sess.Tick(now)
		if m.notice != "" && now.Sub(m.noticeTime) > noticeTTL {
			m.notice = ""
		}

		var cmds []tea.Cmd
		if m.sess.Snapshot().State == experience.Reflection {
			if m.haikuText == "" && !m.haikuLoading {
				m.haikuLoading = true
				cmds = append(cmds, haikuCmd(m.sess), m.spinner.Tick)
			}
		} else if m.haikuText != "" {
			m.haikuText = ""
		}
		cmds = append(cmds, frameCmd())
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		if !m.haikuLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case haikuMsg:
		m.haikuLoading = false
		m.haikuText = msg.text
		if msg.err != nil {
			m.setNotice(haikuErrorText(msg.err))
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if isQuit(msg) {
		m.quitting = true
		m.sess.Close()
		return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
	}

	switch msg.String() {
	case "m":
		on, err := m.sess.ToggleMic()
		switch {
		case err != nil:
			m.setNotice(fmt.Sprintf("microphone: %v", err))
		case on:
			m.setNotice("microphone on")
		default:
			m.setNotice("microphone off")
		}

	case "+", "=":
		v := m.sess.AdjustVolume(0.05)
		m.setNotice(fmt.Sprintf("volume %d%%", int(v*100)))
	case "-":
		v := m.sess.AdjustVolume(-0.05)
		m.setNotice(fmt.Sprintf("volume %d%%", int(v*100)))

	case "h":
		if !m.haikuLoading {
			m.haikuLoading = true
			return m, tea.Batch(haikuCmd(m.sess), m.spinner.Tick)
		}

	case "f":
		if err := m.sess.SaveFavorite(time.Now()); err != nil {
			if errors.Is(err, favorites.ErrStorageFull) {
				m.setNotice("favorites are full, clear some first")
			} else {
				m.setNotice(fmt.Sprintf("keep failed: %v", err))
			}
		} else {
			m.setNotice("haiku kept")
		}

	case "v":
		m.setNotice("engine: " + m.sess.EngineInfo())

	case "p":
		m.setNotice("sensitivity: " + m.sess.CyclePreset())

	case "c":
		if m.sess.ToggleAutoCapture() {
			m.setNotice("auto-capture on")
		} else {
			m.setNotice("auto-capture off")
		}
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	now := time.Now()
	switch msg.Action {
	case tea.MouseActionMotion:
		if m.mouseSeen {
			dx := float64(msg.X - m.mouseX)
			dy := float64(msg.Y - m.mouseY)
			m.sess.PointerMove(dx, dy, msg.X, msg.Y, now)
		}
		m.mouseX, m.mouseY = msg.X, msg.Y
		m.mouseSeen = true

	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			break
		}
		m.mouseX, m.mouseY = msg.X, msg.Y
		m.mouseSeen = true
		if m.sess.Click(now) {
			// restart out of reflection
			m.haikuText = ""
			m.haikuLoading = false
			m.startedAt = now
		}
	}
	return m, nil
}

func (m *Model) setNotice(text string) {
	m.notice = text
	m.noticeTime = time.Now()
}

func haikuErrorText(err error) string {
	switch {
	case errors.Is(err, haiku.ErrRateLimited):
		return "haiku paused a moment, too many requests"
	case errors.Is(err, haiku.ErrQuotaExhausted):
		return "haiku quota is used up for now"
	default:
		return fmt.Sprintf("haiku unavailable: %v", err)
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	w, h := m.width, m.height
	if w < 20 {
		w = 80
	}
	if h < 6 {
		h = 24
	}
	fieldHeight := h - 2

	snap := m.sess.Snapshot()

	var body string
	if snap.State == experience.Reflection {
		body = lipgloss.Place(w, fieldHeight, lipgloss.Center, lipgloss.Center, m.reflectionPanel())
	} else {
		body = m.field.Render(w, fieldHeight, snap, m.sess.Words(), m.mouseX, m.mouseY)
		m.sess.SetLastFrame(body)
		if snap.State == experience.Intro {
			hint := introStyle.Render("move, click, make a sound")
			body = overlayCentered(body, w, hint)
		}
	}

	status := m.statusLine(snap, w)
	help := helpStyle.Render(helpText(snap.State == experience.Reflection))
	if m.notice != "" {
		help = noticeStyle.Render(m.notice)
	}

	return body + "\n" + status + "\n" + help
}

func (m Model) reflectionPanel() string {
	var inner string
	if m.haikuLoading {
		inner = m.spinner.View() + " listening back..."
	} else {
		text := m.haikuText
		if text == "" {
			text = haiku.Fallback()
		}
		inner = haikuStyle.Render(text) + "\n\n" + helpStyle.Render("click to begin again")
	}
	return panelStyle.Render(inner)
}

func (m Model) statusLine(snap session.Snapshot, w int) string {
	mic := "mic off"
	if snap.MicOn {
		mic = "mic on"
	}
	auto := "capture off"
	if snap.AutoCapture {
		auto = fmt.Sprintf("capture %s (%d)", snap.Preset, snap.Captures)
	}

	left := fmt.Sprintf("%s  %s  %s  vol %d%%",
		snap.State, mic, auto, int(snap.Volume*100))
	right := util.FormatDuration(time.Since(m.startedAt))

	gap := w - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 2 {
		gap = 2
	}
	return statusStyle.Render(left) + spaces(gap) + statusStyle.Render(right)
}

// overlayCentered drops a one-line overlay into the vertical middle of an
// already rendered block.
func overlayCentered(block string, w int, line string) string {
	rows := splitLines(block)
	mid := len(rows) / 2
	if mid >= len(rows) {
		return block
	}
	pad := (w - lipgloss.Width(line)) / 2
	if pad < 0 {
		pad = 0
	}
	rows[mid] = spaces(pad) + line
	return joinLines(rows)
}

func splitLines(s string) []string {
	var rows []string
	start := 0
	for i := range len(s) {
		if s[i] == '\n' {
			rows = append(rows, s[start:i])
			start = i + 1
		}
	}
	return append(rows, s[start:])
}

func joinLines(rows []string) string {
	out := ""
	for i, r := range rows {
		if i > 0 {
			out += "\n"
		}
		out += r
	}
	return out
}

func spaces(n int) string {
	if n < 0 {
		n = 0
	}
	s := ""
	for range n {
		s += " "
	}
	return s
}
