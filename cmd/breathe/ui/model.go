package ui

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"breathe/internal/ambient"
	"breathe/internal/logging"
	"breathe/internal/presentation"
	"breathe/internal/session"
	"breathe/internal/store"
	"breathe/internal/technique"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

const volumeStep = 0.05

// Options wires the model to the engine and its collaborators. Only Engine and
// Tree are required.
type Options struct {
	Engine     *session.Engine
	Tree       *presentation.Tree
	Focus      *presentation.Controller
	Base       session.Config // template for every run started from the UI
	Techniques []technique.Technique
	Totals     func() (store.Totals, error)
	OnVolume   func(float64)
	OnAmbient  func(ambient.Choice)
	Tick       time.Duration
	Theme      Theme
	OrbWidth   int
	AutoStart  bool
}

type tickMsg time.Time

// SettingsMsg carries settings from a reloaded config file into a running screen.
type SettingsMsg struct {
	Volume  float64
	Ambient ambient.Choice
}

// Model is the bubbletea model for the session screen.
type Model struct {
	opts     Options
	styles   Styles
	keys     keyMap
	help     help.Model
	bar      progress.Model
	renderer *glamour.TermRenderer
	cache    *renderCache

	width  int
	height int

	techniques       []technique.Technique
	techIdx          int
	ambient          ambient.Choice
	volume           float64
	frame            session.Frame
	totals           store.Totals
	hasTotals        bool
	showInstructions bool
	ticking          bool
	mode             presentation.Mode
	notice           string
}

// New returns a model ready to hand to tea.NewProgram.
func New(opts Options) *Model {
	if opts.Tick <= 0 {
		opts.Tick = 50 * time.Millisecond
	}
	if opts.OrbWidth <= 0 {
		opts.OrbWidth = 21
	}
	techs := opts.Techniques
	if len(techs) == 0 {
		techs = technique.Presets()
	}
	idx := -1
	for i, t := range techs {
		if t.ID == opts.Base.Technique.ID {
			idx = i
			break
		}
	}
	if idx < 0 && len(opts.Base.Technique.Phases) > 0 {
		techs = append([]technique.Technique{opts.Base.Technique}, techs...)
		idx = 0
	}

	m := &Model{
		opts:       opts,
		styles:     NewStyles(opts.Theme),
		keys:       defaultKeyMap(),
		help:       help.New(),
		bar:        progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		renderer:   newRenderer(opts.Theme.IsDark, 72),
		cache:      newRenderCache(256),
		techniques: techs,
		techIdx:    max(idx, 0),
		ambient:    opts.Base.Ambient,
		volume:     opts.Base.AmbientVolume,
		frame:      opts.Engine.Snapshot(),
	}
	m.bar.Width = 40
	m.loadTotals()
	return m
}

func (m *Model) loadTotals() {
	if m.opts.Totals == nil {
		return
	}
	totals, err := m.opts.Totals()
	if err != nil {
		logging.Get(logging.CategoryUI).Debug("totals unavailable", zap.Error(err))
		return
	}
	m.totals, m.hasTotals = totals, true
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if m.opts.AutoStart {
		return m.start()
	}
	return nil
}

func (m *Model) technique() technique.Technique {
	if len(m.techniques) == 0 {
		return m.opts.Base.Technique
	}
	return m.techniques[m.techIdx]
}

func (m *Model) active() bool {
	return m.frame.Status == session.Running || m.frame.Status == session.Paused
}

func (m *Model) start() tea.Cmd {
	cfg := m.opts.Base
	cfg.Technique = m.technique()
	cfg.Ambient = m.ambient
	cfg.AmbientVolume = m.volume
	m.notice = ""
	m.frame = m.opts.Engine.Start(cfg)
	return tea.Batch(m.scheduleTick(), m.syncFocus())
}

func (m *Model) scheduleTick() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	return tea.Tick(m.opts.Tick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// syncFocus mirrors the controller's mode onto the terminal's alternate screen.
func (m *Model) syncFocus() tea.Cmd {
	if m.opts.Focus == nil {
		return nil
	}
	mode := m.opts.Focus.Mode()
	if mode == m.mode {
		return nil
	}
	m.mode = mode
	if mode == presentation.Focus {
		return tea.EnterAltScreen
	}
	return tea.ExitAltScreen
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.bar.Width = max(min(msg.Width-8, 50), 10)
		m.help.Width = msg.Width
		m.renderer = newRenderer(m.styles.Theme.IsDark, min(msg.Width-8, 80))
		m.cache = newRenderCache(256)
		return m, nil

	case tickMsg:
		m.ticking = false
		m.frame = m.opts.Engine.Tick()
		if s := m.frame.Summary; s != nil && s.Recorded {
			m.totals, m.hasTotals = s.Totals, true
		}
		cmds := []tea.Cmd{m.syncFocus()}
		if m.active() {
			cmds = append(cmds, m.scheduleTick())
		}
		return m, tea.Batch(cmds...)

	case SettingsMsg:
		if msg.Volume != m.volume {
			m.volume = min(max(msg.Volume, 0), 1)
			m.opts.Engine.SetVolume(m.volume)
		}
		if msg.Ambient != m.ambient {
			m.ambient = msg.Ambient
			if err := m.opts.Engine.SetAmbient(msg.Ambient); err != nil {
				m.notice = fmt.Sprintf("ambient %s unavailable", msg.Ambient)
			}
		}
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	// handlers registered on the page (focus mode's escape) go first
	if m.opts.Tree != nil && m.opts.Tree.DispatchKey(msg.String()) {
		m.frame = m.opts.Engine.Snapshot()
		return m.syncFocus()
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.opts.Engine.Stop()
		return tea.Quit

	case key.Matches(msg, m.keys.Start):
		if m.active() {
			m.opts.Engine.Stop()
			m.frame = m.opts.Engine.Snapshot()
			return m.syncFocus()
		}
		return m.start()

	case key.Matches(msg, m.keys.Pause):
		if err := m.opts.Engine.TogglePause(); err != nil && !errors.Is(err, session.ErrNotRunning) {
			m.notice = err.Error()
		}
		m.frame = m.opts.Engine.Snapshot()
		return m.scheduleTick()

	case key.Matches(msg, m.keys.Focus):
		if m.opts.Focus == nil {
			return nil
		}
		if err := m.opts.Focus.Toggle(); err != nil {
			m.notice = "focus mode unavailable"
			logging.Get(logging.CategoryUI).Warn("focus toggle failed", zap.Error(err))
		}
		return m.syncFocus()

	case key.Matches(msg, m.keys.NextTech):
		m.cycleTechnique(1)
	case key.Matches(msg, m.keys.PrevTech):
		m.cycleTechnique(-1)

	case key.Matches(msg, m.keys.Ambient):
		m.cycleAmbient()

	case key.Matches(msg, m.keys.VolumeUp):
		m.setVolume(m.volume + volumeStep)
	case key.Matches(msg, m.keys.VolumeDown):
		m.setVolume(m.volume - volumeStep)

	case key.Matches(msg, m.keys.Instructions):
		m.showInstructions = !m.showInstructions
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return nil
}

// cycleTechnique is ignored while a run is active; the schedule is fixed for a run.
func (m *Model) cycleTechnique(delta int) {
	if m.active() || len(m.techniques) == 0 {
		return
	}
	n := len(m.techniques)
	m.techIdx = ((m.techIdx+delta)%n + n) % n
}

func (m *Model) cycleAmbient() {
	choices := ambient.Choices()
	next := choices[0]
	for i, c := range choices {
		if c == m.ambient {
			next = choices[(i+1)%len(choices)]
			break
		}
	}
	m.ambient = next
	if err := m.opts.Engine.SetAmbient(next); err != nil {
		m.notice = fmt.Sprintf("ambient %s unavailable", next)
	}
	if m.opts.OnAmbient != nil {
		m.opts.OnAmbient(next)
	}
}

func (m *Model) setVolume(v float64) {
	v = min(max(v, 0), 1)
	// snap to the step so repeated presses land on round values
	v = float64(int(v/volumeStep+0.5)) * volumeStep
	m.volume = v
	m.opts.Engine.SetVolume(v)
	if m.opts.OnVolume != nil {
		m.opts.OnVolume(v)
	}
}

// View implements tea.Model. In focus mode only the top of the page stack is
// drawn, centered on the alternate screen.
func (m *Model) View() string {
	root := m.opts.Tree.Root
	if m.mode == presentation.Focus && len(root.Children) > 0 {
		top := m.renderNode(root.Children[len(root.Children)-1])
		if m.width > 0 && m.height > 0 {
			return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, top)
		}
		return top
	}

	parts := make([]string, 0, len(root.Children))
	for _, n := range root.Children {
		if s := m.renderNode(n); s != "" {
			parts = append(parts, s)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
}

func (m *Model) renderNode(n *presentation.Node) string {
	switch n.ID {
	case HeaderID:
		return m.renderHeader()
	case IntroID:
		return m.renderIntro()
	case SurfaceID:
		return m.renderSurface(n)
	case NoteID:
		return m.renderNote()
	case FooterID:
		return m.styles.Footer.Render(m.help.View(m.keys))
	case presentation.ExitControlID:
		return m.styles.ExitHint.Render("esc  exit focus")
	}

	var parts []string
	for _, c := range n.Children {
		if s := m.renderNode(c); s != "" {
			parts = append(parts, s)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) renderHeader() string {
	t := m.technique()
	name := t.Name
	if name == "" {
		name = t.ID
	}
	line := fmt.Sprintf("breathe  ·  %s  %s", name, t.Pattern())
	if !m.active() && len(m.techniques) > 1 {
		line += m.styles.Muted.Render("  ←/→")
	}
	return m.styles.Header.Render(line)
}

func (m *Model) renderIntro() string {
	t := m.technique()
	if m.showInstructions {
		sched := technique.Compile(t, m.opts.Base.Target, m.opts.Base.Compile)
		md := instructionsMarkdown(t, sched)
		return m.cache.get(cacheKey("md", md, m.renderer != nil), func() string {
			return renderMarkdown(m.renderer, md)
		})
	}
	if t.Description == "" {
		return ""
	}
	return m.styles.Content.Render(m.styles.Subtitle.Render(t.Description))
}

func (m *Model) renderSurface(n *presentation.Node) string {
	f := m.frame
	var lines []string

	switch f.Status {
	case session.Idle:
		lines = append(lines,
			m.styles.Title.Render("Ready"),
			"",
			m.orb(technique.Step{Phase: technique.Phase{Key: technique.KeyHold2}}, 0),
			"",
			m.styles.Muted.Render("press enter to begin"))

	case session.Finished:
		lines = append(lines, m.styles.Success.Render("Well done"), "")
		if s := f.Summary; s != nil {
			lines = append(lines, m.styles.Body.Render(fmt.Sprintf("%d breaths  ·  %s", s.Cycles, formatDuration(s.Total))))
		}

	default:
		label := lipgloss.NewStyle().Foreground(PhaseColor(f.Step.Key)).Bold(true).Render(f.Step.Label)
		lines = append(lines,
			label,
			"",
			m.orb(f.Step, f.Progress),
			"",
			m.styles.Countdown.Render(fmt.Sprintf("%d", f.Countdown())),
			m.bar.ViewAs(f.Progress),
			m.styles.Muted.Render(fmt.Sprintf("breath %d of %d", f.Breath(), f.TotalCycles)))
		if f.Status == session.Paused {
			lines = append(lines, m.styles.Warning.Render("paused"))
		}
	}

	if m.notice != "" {
		lines = append(lines, m.styles.Warning.Render(m.notice))
	}
	for _, c := range n.Children {
		if s := m.renderNode(c); s != "" {
			lines = append(lines, "", s)
		}
	}
	return m.styles.Surface.Render(lipgloss.JoinVertical(lipgloss.Center, lines...))
}

func (m *Model) orb(step technique.Step, progress float64) string {
	// quantized so the cache sees a bounded set of sizes
	scale := math.Round(orbScale(step, progress, m.opts.Base.ReducedMotion)*100) / 100
	bitmap := m.cache.get(cacheKey("orb", m.opts.OrbWidth, scale), func() string {
		return drawOrb(m.opts.OrbWidth, scale)
	})
	return lipgloss.NewStyle().Foreground(PhaseColor(step.Key)).Render(bitmap)
}

func (m *Model) renderNote() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("ambient %s  %d%%", m.ambient, int(m.volume*100+0.5)))
	if m.hasTotals && m.totals.Sessions > 0 {
		parts = append(parts, fmt.Sprintf("streak %d  ·  %d sessions  ·  %d min",
			m.totals.DayStreak, m.totals.Sessions, m.totals.TotalMinutes))
	}
	return m.styles.Content.Render(m.styles.Muted.Render(strings.Join(parts, "    ")))
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
