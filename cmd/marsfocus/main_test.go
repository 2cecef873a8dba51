package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/marsfocus/internal/clock"
	"github.com/verte-zerg/marsfocus/internal/generator"
	"github.com/verte-zerg/marsfocus/internal/model"
	"github.com/verte-zerg/marsfocus/internal/progress"
	"github.com/verte-zerg/marsfocus/internal/store"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	c := &clock.Fixed{T: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	tracker, err := progress.Open(context.Background(), st, progress.WithClock(c))
	if err != nil {
		t.Fatalf("open tracker: %v", err)
	}
	a := &app{log: zap.NewNop(), store: st, tracker: tracker, clock: c}
	t.Cleanup(a.Close)
	return a
}

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		cfg     model.Config
		wantErr string
	}{
		{model.Config{Topic: "Algebra", DurationMinutes: 25}, ""},
		{model.Config{Topic: "", DurationMinutes: 25}, "--topic"},
		{model.Config{Topic: "Algebra", DurationMinutes: 0}, "--duration"},
		{model.Config{Topic: "Algebra", DurationMinutes: -5}, "--duration"},
	}
	for _, tc := range cases {
		err := validateConfig(tc.cfg)
		if tc.wantErr == "" {
			if err != nil {
				t.Fatalf("validateConfig(%+v) unexpected error: %v", tc.cfg, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
			t.Fatalf("validateConfig(%+v) = %v, want error mentioning %s", tc.cfg, err, tc.wantErr)
		}
	}
}

func TestApplyIntConfigRespectsFlags(t *testing.T) {
	var duration int
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().IntVar(&duration, "duration", defaultDuration, "")
	fromFile := 45
	applyIntConfig(cmd, "duration", &duration, &fromFile)
	if duration != 45 {
		t.Fatalf("expected config value, got %d", duration)
	}
	if err := cmd.Flags().Set("duration", "10"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	applyIntConfig(cmd, "duration", &duration, &fromFile)
	if duration != 10 {
		t.Fatalf("flag must win over config, got %d", duration)
	}
}

func TestNewMissionFromPlan(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	cfg := model.Config{Topic: "Algebra", Description: "chapter 3", DurationMinutes: 30}
	plan := generator.Fallback("Algebra", 30)
	m := newMission(cfg, plan, now)
	if m.ID == "" || m.Status != model.StatusPending || !m.CreatedAt.Equal(now) {
		t.Fatalf("unexpected mission %+v", m)
	}
	if len(m.Tasks) != len(plan.Tasks) || m.Description != "chapter 3" {
		t.Fatalf("plan not attached: %+v", m)
	}
	if other := newMission(cfg, plan, now); other.ID == m.ID {
		t.Fatalf("expected unique mission ids")
	}
}

func TestPlanNote(t *testing.T) {
	ai := model.Plan{Source: model.PlanSourceAI}
	fallback := model.Plan{Source: model.PlanSourceFallback}
	if got := planNote(model.Config{UseAI: true}, ai); got != "Plan generated by AI" {
		t.Fatalf("unexpected note %q", got)
	}
	if got := planNote(model.Config{UseAI: true}, fallback); !strings.Contains(got, "unavailable") {
		t.Fatalf("unexpected note %q", got)
	}
	if got := planNote(model.Config{}, fallback); got != "Standard checklist" {
		t.Fatalf("unexpected note %q", got)
	}
}

func TestWriteExport(t *testing.T) {
	doc := exportDoc{
		ExportedAt: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
		User:       model.NewUser(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)),
		Missions: []model.Mission{{
			ID: "m-1", Topic: "Algebra", DurationMinutes: 25, XPEarned: 250,
			Completed: true, Status: model.StatusCompleted,
		}},
	}

	var yamlOut bytes.Buffer
	if err := writeExport(&yamlOut, "yaml", doc); err != nil {
		t.Fatalf("yaml export: %v", err)
	}
	var decoded struct {
		User     model.User      `yaml:"user"`
		Missions []model.Mission `yaml:"missions"`
	}
	if err := yaml.Unmarshal(yamlOut.Bytes(), &decoded); err != nil {
		t.Fatalf("decode yaml: %v\n%s", err, yamlOut.String())
	}
	if decoded.User.Name != model.DefaultUserName || len(decoded.Missions) != 1 || decoded.Missions[0].XPEarned != 250 {
		t.Fatalf("unexpected yaml export:\n%s", yamlOut.String())
	}

	var jsonOut bytes.Buffer
	if err := writeExport(&jsonOut, "json", exportDoc{User: doc.User}); err != nil {
		t.Fatalf("json export: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(jsonOut.Bytes(), &raw); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	missions, ok := raw["missions"].([]any)
	if !ok || len(missions) != 0 {
		t.Fatalf("expected empty missions array, got %v", raw["missions"])
	}
}

func TestConfirm(t *testing.T) {
	var prompt bytes.Buffer
	ok, err := confirm(strings.NewReader("yes\n"), &prompt, "sure? ")
	if err != nil || !ok {
		t.Fatalf("expected confirmation, got %v %v", ok, err)
	}
	if prompt.String() != "sure? " {
		t.Fatalf("unexpected prompt %q", prompt.String())
	}
	for _, answer := range []string{"no\n", "y\n", ""} {
		ok, err := confirm(strings.NewReader(answer), &prompt, "")
		if err != nil || ok {
			t.Fatalf("answer %q must not confirm (err %v)", answer, err)
		}
	}
}

func TestEnsureConfigFileKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marsfocus", "config.toml")
	if err := ensureConfigFile(path); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(data), "[mission]") {
		t.Fatalf("expected template, got %q (%v)", data, err)
	}
	if err := os.WriteFile(path, []byte("[mission]\nduration = 30\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ensureConfigFile(path); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "[mission]\nduration = 30\n" {
		t.Fatalf("existing config overwritten: %q", data)
	}
}

func TestResumableMission(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	if _, err := resumableMission(ctx, a, nil); err == nil {
		t.Fatalf("expected error without drafts")
	}
	if _, err := resumableMission(ctx, a, []string{"missing"}); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found, got %v", err)
	}

	base := a.now()
	older := model.Mission{ID: "older", Topic: "Physics", DurationMinutes: 25, Status: model.StatusPending, CreatedAt: base.Add(-time.Hour)}
	newer := model.Mission{ID: "newer", Topic: "Algebra", DurationMinutes: 25, Status: model.StatusActive, StartTime: base, CreatedAt: base}
	for _, m := range []model.Mission{older, newer} {
		if err := a.tracker.SaveDraft(ctx, m); err != nil {
			t.Fatalf("save draft: %v", err)
		}
	}
	got, err := resumableMission(ctx, a, nil)
	if err != nil || got.ID != "newer" {
		t.Fatalf("expected latest draft, got %+v (%v)", got, err)
	}
	got, err = resumableMission(ctx, a, []string{"older"})
	if err != nil || got.Topic != "Physics" {
		t.Fatalf("expected mission by id, got %+v (%v)", got, err)
	}

	done := newer
	done.ID = "done"
	done.EndTime = base.Add(25 * time.Minute)
	done.XPEarned = 250
	done.Completed = true
	done.Status = model.StatusCompleted
	if _, err := a.tracker.AddMission(ctx, done); err != nil {
		t.Fatalf("add mission: %v", err)
	}
	if _, err := resumableMission(ctx, a, []string{"done"}); err == nil || !strings.Contains(err.Error(), "already completed") {
		t.Fatalf("expected completed error, got %v", err)
	}
}

func TestWriteProfile(t *testing.T) {
	user := model.NewUser(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	var out bytes.Buffer
	if err := writeProfile(&out, user); err != nil {
		t.Fatalf("write: %v", err)
	}
	for _, want := range []string{"Name:   Mars Explorer", "Email:  -", "Level:  1 (0 XP)"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in %q", want, out.String())
		}
	}
}
