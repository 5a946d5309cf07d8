package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tui "github.com/charmbracelet/bubbletea"
	styles "github.com/charmbracelet/lipgloss"

	"github.com/banshee-data/tesseract/internal/presentation"
	"github.com/banshee-data/tesseract/internal/router"
)

// RefreshInterval is how often the model re-reads the router status.
const RefreshInterval = 100 * time.Millisecond

// Controller is the slice of the router the terminal needs.
type Controller interface {
	Status() router.Status
	Select(index int) error
	Tracking() *router.TrackingSignal
}

var (
	accentColor = styles.AdaptiveColor{Light: "4", Dark: "12"}
	dimColor    = styles.AdaptiveColor{Light: "#888", Dark: "#555"}
	errColor    = styles.AdaptiveColor{Light: "1", Dark: "9"}
	titleStyle  = styles.NewStyle().Bold(true).Foreground(accentColor)
	stateStyle  = styles.NewStyle().Foreground(accentColor)
	dimFg       = styles.NewStyle().Foreground(dimColor)
	errStyle    = styles.NewStyle().Foreground(errColor)
	panelStyle  = styles.NewStyle().
			BorderStyle(styles.RoundedBorder()).
			BorderForeground(dimColor).
			Padding(1, 2)
	blurStyle = panelStyle.Faint(true)
)

type statusTickMsg time.Time

func doStatusTick() tui.Cmd {
	return tui.Tick(RefreshInterval, func(t time.Time) tui.Msg {
		return statusTickMsg(t)
	})
}

// Model is the bubbletea model for the terminal display.
type Model struct {
	ctl      Controller
	surfaces *Surfaces
	maxFace  int
	keys     keyMap
	help     help.Model

	status router.Status
	notice string
	err    string
	width  int
}

// NewModel creates a model reading status from ctl and visibility from
// surfaces.
func NewModel(ctl Controller, surfaces *Surfaces, maxFace int) *Model {
	return &Model{
		ctl:      ctl,
		surfaces: surfaces,
		maxFace:  maxFace,
		keys:     newKeyMap(maxFace),
		help:     help.New(),
		status:   ctl.Status(),
	}
}

func (m *Model) Init() tui.Cmd {
	return doStatusTick()
}

func (m *Model) Update(msg tui.Msg) (tui.Model, tui.Cmd) {
	switch msg := msg.(type) {
	case statusTickMsg:
		m.status = m.ctl.Status()
		return m, doStatusTick()
	case tui.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil
	case tui.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tui.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Track):
			tr := m.ctl.Tracking()
			tr.Report(!tr.Tracked())
			m.notice = fmt.Sprintf("tracking reported %v", tr.Tracked())
		case key.Matches(msg, m.keys.Select):
			m.selectFace(msg.String())
		}
	}
	return m, nil
}

func (m *Model) selectFace(k string) {
	if len(k) != 1 {
		return
	}
	face := int(k[0] - '0')
	if err := m.ctl.Select(face); err != nil {
		m.err = fmt.Sprintf("select %d: %v", face, err)
		m.notice = ""
		return
	}
	m.err = ""
	m.notice = fmt.Sprintf("queued face %d", face)
}

func (m *Model) View() string {
	st, ok := m.surfaces.Visible()
	header := titleStyle.Render("tesseract")
	if ok {
		header += "  " + stateStyle.Render(st.String())
	}

	panel := panelStyle
	if m.surfaces.Blurred() {
		panel = blurStyle
	}
	if m.width > 4 {
		panel = panel.Width(m.width - 2)
	}
	body := panel.Render(m.surfaceBody(st, ok))

	lines := []string{header, body, m.statusLine()}
	if m.status.IngestError != "" {
		lines = append(lines, errStyle.Render("ingest: "+m.status.IngestError))
	}
	if m.err != "" {
		lines = append(lines, errStyle.Render(m.err))
	} else if m.notice != "" {
		lines = append(lines, dimFg.Render(m.notice))
	}
	lines = append(lines, m.help.View(m.keys))
	return styles.JoinVertical(styles.Left, lines...)
}

func (m *Model) surfaceBody(st presentation.State, ok bool) string {
	if !ok {
		return dimFg.Render("starting")
	}
	switch st {
	case presentation.Splash:
		if m.surfaces.SubtitleShown() {
			return "TESSERACT\n" + dimFg.Render("turn the cube to explore")
		}
		return "TESSERACT"
	case presentation.NotConnected:
		return "cube not connected\n" + dimFg.Render("waiting for orientation readings")
	case presentation.Connected:
		return "looking for the marker"
	case presentation.Tracking:
		return m.projectBody()
	case presentation.Transition:
		if p := m.status.Project; p != nil {
			return "switching to " + p.Name
		}
		return "switching"
	}
	return ""
}

func (m *Model) projectBody() string {
	p := m.status.Project
	if p == nil {
		return fmt.Sprintf("face %d", m.status.Active)
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(p.Name))
	if p.CreatorName != "" {
		b.WriteString("\nby " + p.CreatorName)
	}
	if p.CreatorURL != "" {
		b.WriteString("\n" + dimFg.Render(p.CreatorURL))
	}
	if p.Description != "" {
		b.WriteString("\n\n" + p.Description)
	}
	return b.String()
}

func (m *Model) statusLine() string {
	s := m.status
	alive := "down"
	if s.Alive {
		alive = "up"
	}
	return dimFg.Render(fmt.Sprintf("face %d/%d  raw %d  pending %d x%d  link %s  packets %d",
		s.Active, m.maxFace, s.LastRaw, s.Debounce.Pending, s.Debounce.Count, alive, s.Packets))
}
