// Package tui provides the Bubble Tea mission timer.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/marsfocus/internal/clock"
	"github.com/verte-zerg/marsfocus/internal/model"
	"github.com/verte-zerg/marsfocus/internal/scoring"
	"github.com/verte-zerg/marsfocus/internal/session"
	"github.com/verte-zerg/marsfocus/internal/stats"
)

// Recorder receives finished and interrupted missions.
type Recorder interface {
	AddMission(ctx context.Context, mission model.Mission) ([]model.Badge, error)
	SaveDraft(ctx context.Context, mission model.Mission) error
	User() model.User
}

type phase int

const (
	phaseBriefing phase = iota
	phaseRunning
	phaseConfirmStop
	phaseBadges
	phaseSummary
)

type tickMsg time.Time

type keyMap struct {
	Start   key.Binding
	Pause   key.Binding
	Stop    key.Binding
	Confirm key.Binding
	Cancel  key.Binding
	Next    key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Pause, k.Stop, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.Confirm, k.Cancel, k.Next}}
}

func newKeyMap() keyMap {
	return keyMap{
		Start:   key.NewBinding(key.WithKeys("s", "enter"), key.WithHelp("s", "start")),
		Pause:   key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p/space", "pause")),
		Stop:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "finish")),
		Confirm: key.NewBinding(key.WithKeys("y", "enter"), key.WithHelp("y", "confirm")),
		Cancel:  key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "cancel")),
		Next:    key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "continue")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#D9643A")).Bold(true)
	textStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	timerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true).Padding(0, 2)
	pausedStyle  = timerStyle.Foreground(lipgloss.Color("#8C8C8C"))
	modalStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder(), true).BorderForeground(lipgloss.Color("#C89A3A")).Padding(1, 2)
	summaryStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder(), true).BorderForeground(lipgloss.Color("#4A4A4A")).Padding(1, 2)
)

// Options configures the timer model.
type Options struct {
	Clock     clock.Clock
	Logger    *zap.Logger
	PlanNote  string
	AutoStart bool
}

// Model implements the Bubble Tea mission timer.
type Model struct {
	ctx      context.Context
	session  *session.Session
	recorder Recorder
	clock    clock.Clock
	log      *zap.Logger
	planNote string

	phase     phase
	requested int
	finished  model.Mission
	unlocked  []model.Badge
	badgeIdx  int
	user      model.User
	notice    string
	errMsg    string
	saved     bool

	width  int
	height int
	bar    progress.Model
	help   help.Model
	keys   keyMap
}

// NewModel constructs a timer for a pending or restored session.
func NewModel(ctx context.Context, s *session.Session, recorder Recorder, opts Options) *Model {
	c := opts.Clock
	if c == nil {
		c = clock.System{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	m := &Model{
		ctx:       ctx,
		session:   s,
		recorder:  recorder,
		clock:     c,
		log:       log,
		planNote:  opts.PlanNote,
		requested: s.Mission().DurationMinutes,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		help:      help.New(),
		keys:      newKeyMap(),
	}
	switch s.State() {
	case session.StateActive, session.StatePaused:
		m.phase = phaseRunning
	case session.StateCompleted:
		m.phase = phaseSummary
		m.finished = s.Mission()
	}
	if opts.AutoStart && s.State() == session.StatePending {
		m.start()
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(10, min(60, msg.Width-8))
		m.help.Width = msg.Width
		return m, nil
	case tickMsg:
		return m.handleTick()
	case tea.BlurMsg:
		m.session.FocusLost(m.clock.Now())
		return m, nil
	case tea.FocusMsg:
		if m.session.FocusRegained(m.clock.Now()) {
			m.notice = fmt.Sprintf("Distraction recorded (%d so far)", len(m.session.Distractions()))
			m.log.Debug("distraction recorded",
				zap.String("mission_id", m.session.Mission().ID),
				zap.Int("count", len(m.session.Distractions())),
			)
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleTick() (tea.Model, tea.Cmd) {
	if m.phase != phaseRunning && m.phase != phaseConfirmStop {
		if m.phase == phaseBriefing {
			return m, tick()
		}
		return m, nil
	}
	done, err := m.session.Tick()
	if err != nil {
		m.errMsg = err.Error()
		return m, tick()
	}
	if done {
		m.finish(m.session.Mission())
		return m, nil
	}
	return m, tick()
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.flushDraft()
		return m, tea.Quit
	}
	switch m.phase {
	case phaseBriefing:
		if key.Matches(msg, m.keys.Start) {
			m.start()
		}
	case phaseRunning:
		switch {
		case key.Matches(msg, m.keys.Pause):
			if err := m.session.TogglePause(); err != nil {
				m.errMsg = err.Error()
			}
			m.notice = ""
		case key.Matches(msg, m.keys.Stop):
			m.phase = phaseConfirmStop
		}
	case phaseConfirmStop:
		switch {
		case key.Matches(msg, m.keys.Confirm):
			mission, err := m.session.Complete()
			if err != nil {
				m.errMsg = err.Error()
				m.phase = phaseRunning
				return m, nil
			}
			m.finish(mission)
		case key.Matches(msg, m.keys.Cancel):
			m.phase = phaseRunning
		}
	case phaseBadges:
		if key.Matches(msg, m.keys.Next) {
			m.badgeIdx++
			if m.badgeIdx >= len(m.unlocked) {
				m.phase = phaseSummary
			}
		}
	case phaseSummary:
		if key.Matches(msg, m.keys.Next) {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *Model) start() {
	if err := m.session.Start(); err != nil {
		m.errMsg = err.Error()
		return
	}
	m.phase = phaseRunning
	if err := m.recorder.SaveDraft(m.ctx, m.session.Snapshot()); err != nil {
		m.log.Warn("failed to save started mission", zap.Error(err))
	}
}

func (m *Model) finish(mission model.Mission) {
	m.finished = mission
	m.saved = true
	unlocked, err := m.recorder.AddMission(m.ctx, mission)
	if err != nil {
		m.saved = false
		m.errMsg = fmt.Sprintf("progress not saved: %v", err)
		m.log.Error("failed to record mission", zap.String("mission_id", mission.ID), zap.Error(err))
	}
	m.unlocked = unlocked
	m.badgeIdx = 0
	m.user = m.recorder.User()
	if len(unlocked) > 0 {
		m.phase = phaseBadges
		return
	}
	m.phase = phaseSummary
}

// flushDraft persists an unfinished mission so it can be resumed later.
func (m *Model) flushDraft() {
	if m.session.State() == session.StateCompleted {
		return
	}
	snapshot := m.session.Snapshot()
	if err := m.recorder.SaveDraft(m.ctx, snapshot); err != nil {
		m.log.Error("failed to save mission draft", zap.String("mission_id", snapshot.ID), zap.Error(err))
		return
	}
	m.log.Info("mission interrupted",
		zap.String("mission_id", snapshot.ID),
		zap.String("status", snapshot.Status),
		zap.Duration("remaining", m.session.Remaining()),
	)
}

// Finished returns the completed mission, if any.
func (m *Model) Finished() (model.Mission, bool) {
	return m.finished, m.session.State() == session.StateCompleted
}

// Saved reports whether the completed mission was recorded.
func (m *Model) Saved() bool {
	return m.saved
}

// View implements tea.Model.
func (m *Model) View() string {
	var body string
	switch m.phase {
	case phaseBriefing:
		body = m.renderBriefing()
	case phaseRunning, phaseConfirmStop:
		body = m.renderRunning()
	case phaseBadges:
		body = m.renderBadge()
	default:
		body = m.renderSummary()
	}
	if m.errMsg != "" {
		body += "\n\n" + warnStyle.Render(m.errMsg)
	}
	if m.width == 0 || m.height == 0 {
		return body
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
}

func (m *Model) contentWidth() int {
	if m.width <= 0 {
		return 72
	}
	return max(20, min(72, m.width-4))
}

func (m *Model) renderTasks(mission model.Mission) []string {
	if len(mission.Tasks) == 0 {
		return nil
	}
	lines := []string{accentStyle.Render("Tasks")}
	for _, task := range mission.Tasks {
		for _, line := range wrapBullet(task, m.contentWidth()) {
			lines = append(lines, textStyle.Render(line))
		}
	}
	return lines
}

func (m *Model) renderBriefing() string {
	mission := m.session.Mission()
	lines := []string{
		titleStyle.Render("Mission: " + mission.Topic),
	}
	if mission.Description != "" {
		for _, line := range wrapText(mission.Description, m.contentWidth()) {
			lines = append(lines, mutedStyle.Render(line))
		}
	}
	lines = append(lines,
		"",
		textStyle.Render(fmt.Sprintf("Duration: %s   Potential XP: %d", stats.FormatMinutes(mission.DurationMinutes), m.session.EstimatedXP())),
	)
	if m.planNote != "" {
		lines = append(lines, mutedStyle.Render(m.planNote))
	}
	if tasks := m.renderTasks(mission); len(tasks) > 0 {
		lines = append(lines, "")
		lines = append(lines, tasks...)
	}
	if n := len(mission.QuizQuestions); n > 0 {
		lines = append(lines, "", mutedStyle.Render(fmt.Sprintf("%d quiz questions waiting at the end.", n)))
	}
	lines = append(lines, "", footerStyle.Render("s/enter: launch  q: save and quit"))
	return strings.Join(lines, "\n")
}

func (m *Model) renderRunning() string {
	mission := m.session.Mission()
	remaining := m.session.Remaining()
	timer := timerStyle.Render(formatClock(remaining))
	status := accentStyle.Render("IN FLIGHT")
	if m.session.State() == session.StatePaused {
		timer = pausedStyle.Render(formatClock(remaining))
		status = mutedStyle.Render("PAUSED")
	}
	total := time.Duration(m.requested) * time.Minute
	pct := 1.0
	if total > 0 {
		pct = 1 - float64(remaining)/float64(total)
	}
	lines := []string{
		titleStyle.Render("Mission: " + mission.Topic),
		"",
		timer + "  " + status,
		m.bar.ViewAs(min(max(pct, 0), 1)),
		"",
		textStyle.Render(fmt.Sprintf("Distractions: %d   XP so far: %d", len(mission.Distractions), m.liveXP(mission))),
	}
	if m.notice != "" {
		lines = append(lines, warnStyle.Render(m.notice))
	}
	if tasks := m.renderTasks(mission); len(tasks) > 0 {
		lines = append(lines, "")
		lines = append(lines, tasks...)
	}
	lines = append(lines, "")
	if m.phase == phaseConfirmStop {
		lines = append(lines, accentStyle.Render("Finish the mission now? y/n"))
	} else {
		lines = append(lines, m.help.View(m.keys))
	}
	return strings.Join(lines, "\n")
}

// liveXP is the XP the mission would earn if finished now.
func (m *Model) liveXP(mission model.Mission) int {
	if mission.StartTime.IsZero() {
		return 0
	}
	elapsed := m.requested*60 - int(m.session.Remaining()/time.Second)
	mission.DurationMinutes = elapsed / 60
	return scoring.MissionXP(mission)
}

func (m *Model) renderBadge() string {
	if m.badgeIdx >= len(m.unlocked) {
		return m.renderSummary()
	}
	b := m.unlocked[m.badgeIdx]
	content := strings.Join([]string{
		accentStyle.Render("Badge unlocked!"),
		"",
		textStyle.Render(fmt.Sprintf("%s  %s", b.Icon, b.Name)),
		mutedStyle.Render(b.Description),
		"",
		footerStyle.Render(fmt.Sprintf("%d/%d  enter: continue", m.badgeIdx+1, len(m.unlocked))),
	}, "\n")
	return modalStyle.Render(content)
}

func (m *Model) renderSummary() string {
	f := m.finished
	lines := []string{
		titleStyle.Render("Mission complete: " + f.Topic),
		"",
		textStyle.Render(fmt.Sprintf("Focus time:    %s", stats.FormatMinutes(f.DurationMinutes))),
		textStyle.Render(fmt.Sprintf("Distractions:  %d", len(f.Distractions))),
		textStyle.Render(fmt.Sprintf("Focus score:   %d%%", session.FocusScore(f))),
		accentStyle.Render(fmt.Sprintf("XP earned:     +%d", f.XPEarned)),
	}
	if m.saved {
		u := m.user
		pct := scoring.LevelProgressPercent(u.TotalXP, u.Level)
		lines = append(lines,
			"",
			textStyle.Render(fmt.Sprintf("Level %d · %d XP · %d to next level", u.Level, u.TotalXP, scoring.XPToNextLevel(u.TotalXP))),
			m.bar.ViewAs(pct/100),
		)
	}
	lines = append(lines, "", footerStyle.Render("enter/q: exit"))
	return summaryStyle.Render(strings.Join(lines, "\n"))
}

func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	if total >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", total/3600, total%3600/60, total%60)
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

