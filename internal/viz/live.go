package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/pathloop/internal/command"
	"github.com/san-kum/pathloop/internal/geom"
	"github.com/san-kum/pathloop/internal/sim"
)

const (
	width           = 72
	height          = 22
	historyCapacity = 300
	frameRate       = 30
	maxSpeedup      = 16
)

type TickMsg time.Time

// Model renders a sim.Session and advances it on every frame.
type Model struct {
	session  *sim.Session
	canvas   *Canvas
	view     Viewport
	trail    []geom.Translation
	crossErr []float64
	speed    int
	running  bool
	showHelp bool
}

// NewModel frames the session's path and start pose. speed is the number of
// loop ticks per frame.
func NewModel(s *sim.Session, speed int) Model {
	if speed < 1 {
		speed = 1
	}
	p := s.Command().Path()
	pts := make([]geom.Translation, 0, p.Len()+1)
	for _, w := range p.Waypoints() {
		pts = append(pts, w.Translation())
	}
	pts = append(pts, s.Chassis().Pose().Translation)

	return Model{
		session:  s,
		canvas:   NewCanvas(width, height),
		view:     FitViewport(width, height, 0.5, pts...),
		trail:    make([]geom.Translation, 0, historyCapacity),
		crossErr: make([]float64, 0, historyCapacity),
		speed:    speed,
		running:  true,
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			_ = m.session.Cancel()
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "+", "=":
			m.speed = min(m.speed*2, maxSpeedup)
		case "-", "_":
			m.speed = max(m.speed/2, 1)
		case "t":
			NextTheme()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && !m.session.Done() {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) advance() {
	for i := 0; i < m.speed; i++ {
		if !m.session.Step() {
			break
		}
	}
	pos := m.session.Chassis().Pose().Translation
	m.trail = appendCapped(m.trail, pos)
	m.crossErr = appendCapped(m.crossErr, m.session.Command().Path().DistanceTo(pos))
}

func appendCapped[T any](s []T, v T) []T {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

func (m *Model) draw() {
	m.canvas.Clear()

	p := m.session.Command().Path()
	for i := 0; i < p.Segments(); i++ {
		a, b := p.Segment(i)
		x0, y0 := m.view.Project(a)
		x1, y1 := m.view.Project(b)
		m.canvas.DrawLine(x0, y0, x1, y1)
	}
	for _, pt := range m.trail {
		m.canvas.Set(m.view.Project(pt))
	}

	pose := m.session.Chassis().Pose()
	x, y := m.view.Project(pose.Translation)
	nose := pose.Translation.Add(geom.Translation{X: 0.25}.Rotate(pose.Rotation))
	nx, ny := m.view.Project(nose)
	m.canvas.DrawLine(x, y, nx, ny)
	m.canvas.DrawCross(x, y, 1)

	if cmd := m.session.Command(); cmd.State() == command.Running {
		gx, gy := m.view.Project(cmd.Goal())
		m.canvas.DrawCross(gx, gy, 2)
	}
}

func (m Model) status() string {
	state := m.session.Command().State().String()
	if !m.running && !m.session.Done() {
		return "paused"
	}
	return state
}

func (m Model) View() string {
	st := themeStyles(CurrentTheme)
	m.draw()

	cmd := m.session.Command()
	pose := m.session.Chassis().Pose()
	status := m.status()

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.session.Config().Name)) + "\n")
	s.WriteString(st.state[status].Render(strings.ToUpper(status)) + "\n\n")

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", m.session.Elapsed().Seconds()))
	row("Pose", fmt.Sprintf("(%.2f, %.2f) %.0f°", pose.Translation.X, pose.Translation.Y, pose.Rotation.Degrees()))
	row("Goal", fmt.Sprintf("(%.2f, %.2f)", cmd.Goal().X, cmd.Goal().Y))
	left, right := m.session.Chassis().WheelSpeeds()
	row("Wheels", fmt.Sprintf("%.2f / %.2f m/s", left, right))
	row("Speed", fmt.Sprintf("%dx", m.speed))

	segs := math.Max(float64(cmd.Path().Segments()), 1)
	frac := cmd.Follower().Progress().Value() / segs
	if cmd.Follower().Done() {
		frac = 1
	}
	row("Progress", ProgressBar(frac, 20))

	if len(m.crossErr) > 1 {
		chart := asciigraph.Plot(m.crossErr, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("cross-track (m)"))
		s.WriteString(st.graph.Render(chart) + "\n")
	}

	if m.session.Done() {
		res := m.session.Result()
		keys := make([]string, 0, len(res.Metrics))
		for k := range res.Metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			row(k, fmt.Sprintf("%.3f", res.Metrics[k]))
		}
	}

	s.WriteString(st.help.Render("SP:Pause +/-:Speed T:Theme ?:Help Q:Quit"))
	body := lipgloss.JoinHorizontal(lipgloss.Top, st.canvas.Render(m.canvas.String()), st.stats.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + body
	}
	return body
}

const helpText = `
  Space  pause or resume the loop
  + / -  double or halve ticks per frame
  T      cycle color themes
  ?      toggle this help
  Q      interrupt the command and quit
`

// Run shows s until the user quits and returns the session's result.
func Run(s *sim.Session, speed int) (*sim.Result, error) {
	p := tea.NewProgram(NewModel(s, speed), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return nil, err
	}
	return s.Result(), nil
}
