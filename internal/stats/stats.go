// Package stats renders progress, badges and mission history as plain text.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/marsfocus/internal/model"
	"github.com/verte-zerg/marsfocus/internal/session"
)

const sparkChars = " .:-=+*#%@"

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		b.WriteByte(sparkChars[min(max(idx, 0), len(sparkChars)-1)])
	}
	return b.String()
}

// FormatMinutes renders a minute count as "45m" or "3h 05m".
func FormatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", max(minutes, 0))
	}
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}

// ProgressBar renders a fixed-width text bar for a percentage in [0,100].
func ProgressBar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(math.Round(math.Min(math.Max(percent, 0), 100) / 100 * float64(width)))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

func writeLines(w io.Writer, lines ...string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderOverview prints the user's level, XP and focus statistics.
func RenderOverview(w io.Writer, r Report) error {
	st := r.Stats
	xpValues := make([]float64, len(r.History))
	for i, m := range r.History {
		xpValues[i] = float64(m.XPEarned)
	}
	lines := []string{
		fmt.Sprintf("%s · Level %d", r.User.Name, st.CurrentLevel),
		fmt.Sprintf("XP: %d (%d to level %d)", st.TotalXP, st.XPForNextLevel, st.CurrentLevel+1),
		fmt.Sprintf("Level progress: %s %.0f%%", ProgressBar(st.LevelProgress, 20), st.LevelProgress),
		fmt.Sprintf("Focus time: %s", FormatMinutes(st.TotalFocusTime)),
		fmt.Sprintf("Missions: %d", st.TotalMissions),
		fmt.Sprintf("Avg distractions: %.1f", st.AverageDistractions),
		fmt.Sprintf("Perfect focus streak: %d (longest %d)", st.PerfectFocusStreak, st.LongestStreak),
		fmt.Sprintf("Badges: %d/%d", r.UnlockedCount(), len(r.Badges)),
	}
	if len(xpValues) > 1 {
		lines = append(lines, fmt.Sprintf("XP trend: %s", Sparkline(xpValues)))
	}
	lines = append(lines, "")
	return writeLines(w, lines...)
}

// RenderBadges prints the badge catalog with unlock state or progress.
func RenderBadges(w io.Writer, statuses []BadgeStatus) error {
	headers := []string{"", "Badge", "Description", "Status"}
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		status := fmt.Sprintf("%d/%d", s.Current, s.Target)
		if s.Unlocked {
			status = "unlocked " + s.Badge.UnlockedAt.Local().Format("2006-01-02")
		}
		rows = append(rows, []string{s.Badge.Icon, s.Badge.Name, s.Badge.Description, status})
	}
	if err := writeLines(w, "Badges"); err != nil {
		return err
	}
	if err := writeLines(w, formatTable(headers, rows, nil)...); err != nil {
		return err
	}
	return writeLines(w, "")
}

// HistoryRows builds table rows for missions, newest first.
func HistoryRows(missions []model.Mission) [][]string {
	rows := make([][]string, 0, len(missions))
	for i := len(missions) - 1; i >= 0; i-- {
		m := missions[i]
		rows = append(rows, []string{
			m.EndTime.Local().Format("2006-01-02 15:04"),
			m.Topic,
			fmt.Sprintf("%d", m.DurationMinutes),
			fmt.Sprintf("%d", len(m.Distractions)),
			fmt.Sprintf("%d", m.XPEarned),
			fmt.Sprintf("%d%%", session.FocusScore(m)),
		})
	}
	return rows
}

// HistoryHeaders are the column titles of HistoryRows.
var HistoryHeaders = []string{"Completed", "Topic", "Minutes", "Distractions", "XP", "Focus"}

// RenderHistory prints completed missions, newest first.
func RenderHistory(w io.Writer, missions []model.Mission) error {
	if len(missions) == 0 {
		return writeLines(w, "No missions completed yet.", "")
	}
	rightAlign := map[int]bool{2: true, 3: true, 4: true, 5: true}
	if err := writeLines(w, "History"); err != nil {
		return err
	}
	if err := writeLines(w, formatTable(HistoryHeaders, HistoryRows(missions), rightAlign)...); err != nil {
		return err
	}
	return writeLines(w, "")
}

// RenderTopics prints time spent per topic.
func RenderTopics(w io.Writer, topics []TopicAggregate) error {
	if len(topics) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(topics))
	for _, t := range topics {
		rows = append(rows, []string{
			t.Topic,
			fmt.Sprintf("%d", t.Missions),
			FormatMinutes(t.Minutes),
			fmt.Sprintf("%.1f", t.AverageDistractions()),
			fmt.Sprintf("%d", t.XP),
		})
	}
	if err := writeLines(w, "Topics"); err != nil {
		return err
	}
	lines := formatTable([]string{"Topic", "Missions", "Focus", "Avg distractions", "XP"}, rows, map[int]bool{1: true, 2: true, 3: true, 4: true})
	if err := writeLines(w, lines...); err != nil {
		return err
	}
	return writeLines(w, "")
}

// RenderTrends charts XP and minutes per mission, smoothed over window missions.
func RenderTrends(w io.Writer, missions []model.Mission, window, width, height int, color bool) error {
	if len(missions) < 2 {
		return nil
	}
	xp := make([]float64, len(missions))
	minutes := make([]float64, len(missions))
	for i, m := range missions {
		xp[i] = float64(m.XPEarned)
		minutes[i] = float64(m.DurationMinutes)
	}
	return Chart(w, "Per mission", []Series{
		{Name: "XP", Values: MovingAverage(xp, window)},
		{Name: "Minutes", Values: MovingAverage(minutes, window)},
	}, width, height, color)
}

// Render writes the full plain-text report.
func Render(w io.Writer, r Report, color bool) error {
	if err := RenderOverview(w, r); err != nil {
		return err
	}
	if err := RenderTrends(w, r.History, 3, 0, 0, color); err != nil {
		return err
	}
	if err := RenderTopics(w, r.Topics); err != nil {
		return err
	}
	if err := RenderBadges(w, r.Badges); err != nil {
		return err
	}
	return RenderHistory(w, r.History)
}
