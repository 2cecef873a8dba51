// Package statsui provides the Bubble Tea progress dashboard.
package statsui

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/marsfocus/internal/stats"
)

const (
	tabOverview = iota
	tabBadges
	tabHistory
)

const chartHeight = 8

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	lockedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	unlockedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the Bubble Tea stats UI.
type Model struct {
	report stats.Report

	tabs      []string
	activeTab int
	viewports []viewport.Model
	history   table.Model
	bar       progress.Model

	width  int
	height int
}

// NewModel constructs a dashboard over a prepared report.
func NewModel(report stats.Report) *Model {
	m := &Model{
		report: report,
		tabs:   []string{"Overview", "Badges", "History"},
		bar:    progress.New(progress.WithDefaultGradient()),
	}
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	m.history = buildHistoryTable(report, 80, 10)
	m.renderTabContents()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "left", "h", "shift+tab":
			m.moveTab(-1)
			return m, nil
		case "right", "l", "tab":
			m.moveTab(1)
			return m, nil
		case "1", "2", "3":
			m.activeTab = int(msg.String()[0] - '1')
			m.syncFocus()
			return m, nil
		case "g", "home":
			if m.activeTab == tabHistory {
				m.history.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabHistory {
				m.history.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		}
		var cmd tea.Cmd
		if m.activeTab == tabHistory {
			m.history, cmd = m.history.Update(msg)
			return m, cmd
		}
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight := m.layoutHeights()
	header := fitLines(m.renderTabs(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(headerStyle.Render("Nav: left/right/1-3  Scroll: up/down/pgup/pgdn  Quit: q"), m.width, 1)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight int) {
	headerHeight = max(1, lipgloss.Height(activeNavStyle.Render("X")))
	bodyHeight = max(1, m.height-headerHeight-1)
	return headerHeight, bodyHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.bar.Width = max(10, min(50, m.width-4))
	m.history = buildHistoryTable(m.report, m.width, bodyHeight)
	m.syncFocus()
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	m.activeTab = (m.activeTab + delta + count) % count
	m.syncFocus()
}

func (m *Model) syncFocus() {
	if m.activeTab == tabHistory {
		m.history.Focus()
	} else {
		m.history.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderBody() string {
	if m.activeTab == tabHistory {
		if len(m.report.History) == 0 {
			return "No missions completed yet."
		}
		return tableMutedStyle.Render(m.history.View())
	}
	return m.viewports[m.activeTab].View()
}

func (m *Model) renderTabContents() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(m.renderOverview(width))
	m.viewports[tabBadges].SetContent(renderBadges(m.report.Badges))
}

func (m *Model) renderOverview(width int) string {
	st := m.report.Stats
	name := m.report.User.Name
	level := cardValueStyle.Render(fmt.Sprintf("%s · Level %d", name, st.CurrentLevel))
	xpLine := cardTitleStyle.Render(fmt.Sprintf("%d XP · %d to level %d", st.TotalXP, st.XPForNextLevel, st.CurrentLevel+1))
	bar := m.bar.ViewAs(st.LevelProgress / 100)

	cards := []string{
		metricCard("Focus time", stats.FormatMinutes(st.TotalFocusTime)),
		metricCard("Missions", fmt.Sprintf("%d", st.TotalMissions)),
		metricCard("Avg distractions", fmt.Sprintf("%.1f", st.AverageDistractions)),
		metricCard("Focus streak", fmt.Sprintf("%d", st.PerfectFocusStreak)),
		metricCard("Longest streak", fmt.Sprintf("%d", st.LongestStreak)),
		metricCard("Badges", fmt.Sprintf("%d/%d", m.report.UnlockedCount(), len(m.report.Badges))),
	}
	var grid string
	if width < 80 {
		grid = strings.Join(cards, "\n")
	} else {
		row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
		row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4], cards[5])
		grid = lipgloss.JoinVertical(lipgloss.Left, row1, row2)
	}

	parts := []string{level, xpLine, bar, "", grid}
	if len(m.report.History) > 1 {
		var buf bytes.Buffer
		xp := make([]float64, len(m.report.History))
		for i, mission := range m.report.History {
			xp[i] = float64(mission.XPEarned)
		}
		labelWidth := len(fmt.Sprintf("%.0f", maxValue(xp)))
		if err := stats.Chart(&buf, "XP per mission", []stats.Series{{Name: "XP", Values: xp}}, stats.ChartWidthFor(width, labelWidth), chartHeight, true); err != nil {
			parts = append(parts, "", errorStyle.Render(fmt.Sprintf("Failed to render chart: %v", err)))
		} else {
			parts = append(parts, "", strings.TrimRight(buf.String(), "\n"))
		}
	}
	if len(m.report.Topics) > 0 {
		var buf bytes.Buffer
		if err := stats.RenderTopics(&buf, m.report.Topics); err == nil {
			parts = append(parts, "", strings.TrimRight(buf.String(), "\n"))
		}
	}
	return strings.Join(parts, "\n")
}

func renderBadges(statuses []stats.BadgeStatus) string {
	lines := make([]string, 0, len(statuses)*3)
	for _, s := range statuses {
		b := s.Badge
		if s.Unlocked {
			lines = append(lines,
				unlockedStyle.Render(fmt.Sprintf("%s  %s", b.Icon, b.Name)),
				fmt.Sprintf("    %s · unlocked %s", b.Description, b.UnlockedAt.Local().Format("2006-01-02")),
			)
		} else {
			lines = append(lines,
				lockedStyle.Render(fmt.Sprintf("%s  %s", b.Icon, b.Name)),
				lockedStyle.Render(fmt.Sprintf("    %s · %d/%d %s", b.Description, s.Current, s.Target, stats.ProgressBar(percent(s.Current, s.Target), 12))),
			)
		}
		lines = append(lines, "")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func percent(current, target int) float64 {
	if target <= 0 {
		return 0
	}
	return float64(current) / float64(target) * 100
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Width(18).Render(content)
}

func buildHistoryTable(report stats.Report, width, height int) table.Model {
	columns := []table.Column{
		{Title: stats.HistoryHeaders[0], Width: 16},
		{Title: stats.HistoryHeaders[1], Width: max(10, width-16-8-13-6-6-6)},
		{Title: stats.HistoryHeaders[2], Width: 8},
		{Title: stats.HistoryHeaders[3], Width: 13},
		{Title: stats.HistoryHeaders[4], Width: 6},
		{Title: stats.HistoryHeaders[5], Width: 6},
	}
	source := stats.HistoryRows(report.History)
	rows := make([]table.Row, len(source))
	for i, r := range source {
		rows[i] = table.Row(r)
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(max(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(historyTableStyles())
	return t
}

func historyTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		PaddingLeft(0)
	styles.Cell = styles.Cell.PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func maxValue(values []float64) float64 {
	out := 0.0
	for _, v := range values {
		out = max(out, v)
	}
	return out
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}
