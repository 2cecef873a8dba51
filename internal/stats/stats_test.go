package stats

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/marsfocus/internal/model"
)

var base = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func mission(topic string, minutes, distractions int, hour int) model.Mission {
	m := model.Mission{
		ID:              fmt.Sprintf("%s-%d", topic, hour),
		Topic:           topic,
		DurationMinutes: minutes,
		EndTime:         base.Add(time.Duration(hour) * time.Hour),
		XPEarned:        minutes*10 - distractions*5,
		Completed:       true,
		Status:          model.StatusCompleted,
	}
	for i := 0; i < distractions; i++ {
		m.Distractions = append(m.Distractions, model.DistractionEvent{Timestamp: m.EndTime})
	}
	return m
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 5, 10}); got != " +@" {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if got := Sparkline([]float64{3, 3}); got != "++" {
		t.Fatalf("unexpected flat sparkline %q", got)
	}
	if Sparkline(nil) != "" {
		t.Fatalf("expected empty sparkline")
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("MovingAverage = %v, want %v", got, want)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	cases := map[int]string{0: "0m", 45: "45m", 60: "1h 00m", 185: "3h 05m", -3: "0m"}
	for in, want := range cases {
		if got := FormatMinutes(in); got != want {
			t.Fatalf("FormatMinutes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestProgressBar(t *testing.T) {
	if got := ProgressBar(50, 10); got != "[#####.....]" {
		t.Fatalf("unexpected bar %q", got)
	}
	if got := ProgressBar(150, 4); got != "[####]" {
		t.Fatalf("expected clamped bar, got %q", got)
	}
}

func TestTopics(t *testing.T) {
	topics := Topics([]model.Mission{
		mission("Algebra", 25, 0, 1),
		mission("Physics", 40, 2, 2),
		mission("Algebra", 20, 1, 3),
	})
	if len(topics) != 2 || topics[0].Topic != "Algebra" || topics[0].Minutes != 45 || topics[0].Missions != 2 {
		t.Fatalf("unexpected topics %+v", topics)
	}
	if topics[1].AverageDistractions() != 2 {
		t.Fatalf("unexpected average %v", topics[1].AverageDistractions())
	}
}

func TestBuildReportLimitsHistory(t *testing.T) {
	missions := []model.Mission{mission("A", 10, 0, 1), mission("B", 10, 0, 2), mission("C", 10, 0, 3)}
	user := model.NewUser(base)
	user.TotalFocusTime = 30
	user.Badges = []model.Badge{{ID: "first-mission", UnlockedAt: base}}
	r := BuildReport(user, model.Stats{}, missions, model.StatsConfig{Last: 2})
	if len(r.History) != 2 || r.History[0].Topic != "B" {
		t.Fatalf("unexpected history %+v", r.History)
	}
	if len(r.Badges) != 8 || !r.Badges[0].Unlocked || r.UnlockedCount() != 1 {
		t.Fatalf("unexpected badge statuses %+v", r.Badges)
	}
	for _, b := range r.Badges {
		if b.Badge.ID == "focus-master-100" && (b.Current != 30 || b.Target != 100 || b.Unlocked) {
			t.Fatalf("unexpected progress %+v", b)
		}
	}
}

func TestRenderHistoryNewestFirst(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderHistory(&buf, []model.Mission{mission("Older", 10, 0, 1), mission("Newer", 20, 1, 2)}); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if strings.Index(out, "Newer") > strings.Index(out, "Older") {
		t.Fatalf("expected newest first:\n%s", out)
	}
	if !strings.Contains(out, "Distractions") {
		t.Fatalf("expected header in output")
	}
}

func TestRenderHistoryEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderHistory(&buf, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "No missions") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestRenderFullReport(t *testing.T) {
	missions := []model.Mission{mission("Algebra", 25, 0, 1), mission("Algebra", 30, 1, 2), mission("Go", 15, 0, 3)}
	user := model.NewUser(base)
	user.Name = "Ada"
	st := model.Stats{CurrentLevel: 3, TotalXP: 695, XPForNextLevel: 5, LevelProgress: 98, TotalMissions: 3, TotalFocusTime: 70}
	var buf bytes.Buffer
	if err := Render(&buf, BuildReport(user, st, missions, model.StatsConfig{}), false); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Ada · Level 3", "5 to level 4", "1h 10m", "Per mission", "Topics", "Badges", "History"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("unexpected color codes")
	}
}

func TestChartDimensions(t *testing.T) {
	var buf bytes.Buffer
	err := Chart(&buf, "Plot", []Series{{Name: "A", Values: []float64{1, 2, 3, 2, 1}}, {Name: "B"}}, 12, 4, false)
	if err != nil {
		t.Fatalf("chart: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 1+4+1 {
		t.Fatalf("expected title, 4 rows and legend, got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[1], "3 │ ") || !strings.HasPrefix(lines[4], "0 │ ") {
		t.Fatalf("unexpected axis labels %q %q", lines[1], lines[4])
	}
	if strings.Contains(lines[5], "B") {
		t.Fatalf("empty series must be skipped: %q", lines[5])
	}
}

func TestChartWidthFor(t *testing.T) {
	if got := ChartWidthFor(80, 3); got != 80-3-3 {
		t.Fatalf("unexpected width %d", got)
	}
	if got := ChartWidthFor(0, 3); got != minChartWidth {
		t.Fatalf("expected min width, got %d", got)
	}
}
