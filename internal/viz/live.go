package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/impulse/internal/sim"
	"github.com/san-kum/impulse/internal/world"
)

const (
	canvasCols      = 72
	canvasRows      = 24
	historyCapacity = 300
	frameRate       = 60
)

// BuildFunc creates a fresh world, used at start and on reset.
type BuildFunc func() (*world.World, error)

type Options struct {
	Title string
	Dt    float64
	// StepsPerFrame is how many world steps one frame advances.
	StepsPerFrame int
	Theme         string
	// GIFPath is where a recording is written when it stops.
	GIFPath string
}

type viewMode int

const (
	modeSide viewMode = iota
	modeOrbit
)

type TickMsg time.Time

// Model is a bubbletea model stepping and drawing one world.
type Model struct {
	build BuildFunc
	opts  Options
	world *world.World
	err   error

	theme  Theme
	styles Styles

	canvas *Canvas
	mode   viewMode
	side   *SideView
	camera *OrbitCamera

	running      bool
	showSleeping bool
	showHelp     bool

	energy   []float64
	contacts []float64

	recorder  *Recorder
	recording bool
	saved     string
}

func NewModel(build BuildFunc, opts Options) (*Model, error) {
	if opts.Dt <= 0 {
		opts.Dt = 1.0 / frameRate
	}
	opts.StepsPerFrame = max(opts.StepsPerFrame, 1)
	if opts.GIFPath == "" {
		opts.GIFPath = "impulse.gif"
	}
	theme := GetTheme(opts.Theme)
	m := &Model{
		build:        build,
		opts:         opts,
		theme:        theme,
		styles:       theme.Styles(),
		canvas:       NewCanvas(canvasCols, canvasRows),
		running:      true,
		showSleeping: true,
		recorder:     NewRecorder(),
	}
	if err := m.reset(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) World() *world.World { return m.world }

func (m *Model) reset() error {
	w, err := m.build()
	if err != nil {
		return err
	}
	m.world, m.err = w, nil
	m.energy = m.energy[:0]
	m.contacts = m.contacts[:0]
	m.fitView()
	m.record()
	return nil
}

// fitView frames the current world in both projections.
func (m *Model) fitView() {
	bounds := WorldBounds(m.world)
	pw, ph := m.canvas.PixelWidth(), m.canvas.PixelHeight()
	m.side = NewSideView(bounds, pw, ph)
	if m.camera == nil {
		m.camera = NewOrbitCamera(bounds, pw, ph)
		return
	}
	yaw, pitch := m.camera.Yaw, m.camera.Pitch
	m.camera = NewOrbitCamera(bounds, pw, ph)
	m.camera.Yaw, m.camera.Pitch = yaw, pitch
}

func (m *Model) projection() Projection {
	if m.mode == modeOrbit {
		return m.camera
	}
	return m.side
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m *Model) Init() tea.Cmd { return tick() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg.String())
	case TickMsg:
		if m.running && m.err == nil {
			m.advance(m.opts.StepsPerFrame)
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) handleKey(key string) tea.Cmd {
	switch key {
	case "q", "ctrl+c":
		m.stopRecording()
		return tea.Quit
	case " ":
		m.running = !m.running
	case "n", ".":
		m.running = false
		m.advance(1)
	case "r":
		if err := m.reset(); err != nil {
			m.err = err
		}
	case "t":
		m.theme = NextTheme(m.theme)
		m.styles = m.theme.Styles()
	case "v":
		m.mode = 1 - m.mode
	case "f":
		m.fitView()
	case "z":
		m.showSleeping = !m.showSleeping
	case "left", "h":
		m.camera.Rotate(-0.1, 0)
	case "right", "l":
		m.camera.Rotate(0.1, 0)
	case "up", "k":
		m.camera.Rotate(0, 0.1)
	case "down", "j":
		m.camera.Rotate(0, -0.1)
	case "+", "=":
		m.camera.Zoom(1 / 1.2)
	case "-", "_":
		m.camera.Zoom(1.2)
	case "g":
		if m.recording {
			m.stopRecording()
		} else {
			m.recorder.Reset()
			m.recording, m.saved = true, ""
		}
	case "?":
		m.showHelp = !m.showHelp
	}
	return nil
}

func (m *Model) stopRecording() {
	if !m.recording {
		return
	}
	m.recording = false
	if err := m.recorder.Save(m.opts.GIFPath); err != nil {
		m.saved = "record: " + err.Error()
		return
	}
	m.saved = fmt.Sprintf("saved %d frames to %s", m.recorder.Frames(), m.opts.GIFPath)
}

// advance steps the world n times and appends one history sample.
func (m *Model) advance(n int) {
	for i := 0; i < n; i++ {
		if err := m.world.Step(m.opts.Dt); err != nil {
			m.err, m.running = err, false
			break
		}
	}
	m.record()
	if m.recording {
		m.draw()
		m.recorder.Capture(m.canvas)
	}
}

func (m *Model) record() {
	s := sim.Measure(m.world)
	m.energy = appendCapped(m.energy, s.Energy())
	m.contacts = appendCapped(m.contacts, float64(s.Contacts))
}

func appendCapped(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[len(s)-historyCapacity:]
	}
	return s
}

func (m *Model) draw() {
	m.canvas.Clear()
	proj := m.projection()
	DrawWorld(m.canvas, proj, m.world, m.showSleeping)
	DrawJoints(m.canvas, proj, m.world)
}

func (m *Model) status() string {
	switch {
	case m.err != nil:
		return m.styles.Bad.Render("ERROR")
	case m.recording:
		return m.styles.Bad.Render(fmt.Sprintf("● REC %d", m.recorder.Frames()))
	case m.running:
		return m.styles.Running.Render("RUNNING")
	}
	return m.styles.Paused.Render("PAUSED")
}

func (m *Model) View() string {
	m.draw()
	st := m.world.LastStats()
	sample := sim.Measure(m.world)

	var s strings.Builder
	s.WriteString(m.styles.Title.Render(strings.ToUpper(m.opts.Title)) + "  " + m.status() + "\n\n")
	s.WriteString(m.styles.KeyValues([][2]string{
		{"Time", fmt.Sprintf("%.2fs (step %d)", m.world.Time(), m.world.StepCount())},
		{"Bodies", fmt.Sprintf("%d awake / %d asleep", st.AwakeBodies, st.SleepingBodies)},
		{"Contacts", fmt.Sprintf("%d touching, %d points", st.TouchingContacts, st.Points)},
		{"Pairs", fmt.Sprintf("%d (%d moved)", st.Pairs, st.ProxyMoves)},
		{"Islands", fmt.Sprint(st.Islands)},
		{"Joints", fmt.Sprintf("%d (%d broken)", st.Joints, st.BrokenJoints)},
		{"Depth", fmt.Sprintf("%.4f", st.MaxDepth)},
		{"Energy", fmt.Sprintf("%.3f J", sample.Energy())},
		{"Tree", fmt.Sprintf("height %d", st.TreeHeight)},
		{"Step", st.Elapsed.Round(time.Microsecond).String()},
	}))
	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy, asciigraph.Height(5), asciigraph.Width(30), asciigraph.Caption("energy"))
		s.WriteString("\n" + m.styles.Graph.Render(chart) + "\n")
	}
	s.WriteString(m.styles.Muted.Render("contacts "+Sparkline(m.contacts, 28)) + "\n")
	if m.err != nil {
		s.WriteString("\n" + m.styles.Bad.Render(m.err.Error()) + "\n")
	}
	if m.saved != "" {
		s.WriteString("\n" + m.styles.Muted.Render(m.saved) + "\n")
	}
	s.WriteString(m.styles.Help.Render("space pause  n step  r reset  v view  ? help  q quit"))

	view := "side x/y"
	if m.mode == modeOrbit {
		view = "orbit"
	}
	canvas := m.styles.Canvas.Render(m.canvas.String() + m.styles.Muted.Render(view+"  theme "+m.theme.Name))
	main := lipgloss.JoinHorizontal(lipgloss.Top, canvas, m.styles.Panel.Render(s.String()))
	if m.showHelp {
		return m.styles.Box("keys", helpText) + "\n" + main
	}
	return main
}

const helpText = `space      pause / resume
n .        single step
r          rebuild the scene
v          toggle side / orbit view
f          refit the view
h j k l    orbit the camera
+ -        zoom
z          hide sleeping bodies
t          next theme
g          start / stop GIF recording
q          quit`

// Run blocks until the user quits.
func Run(build BuildFunc, opts Options) error {
	m, err := NewModel(build, opts)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
