// Package main provides the CLI entrypoint for marsfocus.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/marsfocus/internal/config"
	"github.com/verte-zerg/marsfocus/internal/model"
	"github.com/verte-zerg/marsfocus/internal/session"
	"github.com/verte-zerg/marsfocus/internal/stats"
	"github.com/verte-zerg/marsfocus/internal/statsui"
	"github.com/verte-zerg/marsfocus/internal/store"
	"github.com/verte-zerg/marsfocus/internal/tui"
)

const defaultDuration = 25

var (
	missionTopic       string
	missionDuration    int
	missionDescription string
	missionNoAI        bool

	statsPlain bool

	historyLast int

	exportFormat string

	profileName  string
	profileEmail string

	resetYes bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "marsfocus",
		Short:         "Gamified focus timer for study missions",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runMissionCmd,
	}
	addMissionFlags(rootCmd)

	rootCmd.AddCommand(newMissionCmd())
	rootCmd.AddCommand(newResumeCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newBadgesCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func addMissionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&missionTopic, "topic", "t", "", "study topic")
	cmd.Flags().IntVarP(&missionDuration, "duration", "d", defaultDuration, "planned duration in minutes")
	cmd.Flags().StringVar(&missionDescription, "description", "", "optional mission description")
	cmd.Flags().BoolVar(&missionNoAI, "no-ai", false, "skip AI plan generation and use the standard checklist")
}

func newMissionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mission",
		Short: "Plan and start a focus mission",
		Args:  cobra.NoArgs,
		RunE:  runMissionCmd,
	}
	addMissionFlags(cmd)
	return cmd
}

func runMissionCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "duration", &missionDuration, fileCfg.Mission.Duration)
	useAI := !missionNoAI
	if fileCfg.Mission.AI != nil && !cmd.Flags().Changed("no-ai") {
		useAI = *fileCfg.Mission.AI
	}

	cfg := model.Config{
		Topic:           strings.TrimSpace(missionTopic),
		Description:     strings.TrimSpace(missionDescription),
		DurationMinutes: missionDuration,
		UseAI:           useAI,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	gen, closeGen := a.newGenerator(ctx, cfg.UseAI)
	defer closeGen()
	if cfg.UseAI {
		logErrln("Preparing mission plan...")
	}
	plan := gen.Plan(ctx, cfg.Topic, cfg.DurationMinutes)

	mission := newMission(cfg, plan, a.now())
	if err := a.tracker.SaveDraft(ctx, mission); err != nil {
		return fmt.Errorf("failed to save mission: %w", err)
	}
	a.log.Info("mission planned",
		zap.String("mission_id", mission.ID),
		zap.String("topic", mission.Topic),
		zap.Int("duration_minutes", mission.DurationMinutes),
		zap.String("plan_source", plan.Source),
	)
	return runTimer(ctx, a, session.New(mission, a.clock), planNote(cfg, plan))
}

func newMission(cfg model.Config, plan model.Plan, now time.Time) model.Mission {
	return model.Mission{
		ID:              uuid.NewString(),
		Topic:           cfg.Topic,
		Description:     cfg.Description,
		DurationMinutes: cfg.DurationMinutes,
		Tasks:           plan.Tasks,
		QuizQuestions:   plan.QuizQuestions,
		Status:          model.StatusPending,
		CreatedAt:       now,
	}
}

func planNote(cfg model.Config, plan model.Plan) string {
	switch {
	case plan.Source == model.PlanSourceAI:
		return "Plan generated by AI"
	case cfg.UseAI:
		return "AI plan unavailable, using the standard checklist"
	default:
		return "Standard checklist"
	}
}

func runTimer(ctx context.Context, a *app, s *session.Session, note string) error {
	timer := tui.NewModel(ctx, s, a.tracker, tui.Options{
		Clock:    a.clock,
		Logger:   a.log.Named("tui"),
		PlanNote: note,
	})
	program := tea.NewProgram(timer, tea.WithAltScreen(), tea.WithReportFocus())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	mission, done := timer.Finished()
	if !done {
		logErrf("Mission paused. Resume with: marsfocus resume %s\n", s.Mission().ID)
		return nil
	}
	if !timer.Saved() {
		return fmt.Errorf("mission %s completed but progress was not saved", mission.ID)
	}
	user := a.tracker.User()
	if _, err := fmt.Fprintf(os.Stdout, "Mission complete: +%d XP · level %d · %d XP total\n",
		mission.XPEarned, user.Level, user.TotalXP); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume [id]",
		Short: "Resume an interrupted mission (latest if no id)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runResumeCmd,
	}
}

func runResumeCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	mission, err := resumableMission(ctx, a, args)
	if err != nil {
		return err
	}
	a.log.Info("mission resumed", zap.String("mission_id", mission.ID), zap.String("status", mission.Status))
	return runTimer(ctx, a, session.Restore(mission, a.clock), "Resumed mission")
}

func resumableMission(ctx context.Context, a *app, args []string) (model.Mission, error) {
	if len(args) == 1 {
		mission, err := a.tracker.MissionByID(ctx, args[0])
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return model.Mission{}, fmt.Errorf("mission %s not found", args[0])
			}
			return model.Mission{}, fmt.Errorf("failed to load mission: %w", err)
		}
		if mission.Completed || mission.Status == model.StatusCompleted {
			return model.Mission{}, fmt.Errorf("mission %s is already completed", mission.ID)
		}
		return mission, nil
	}
	drafts, err := a.tracker.Drafts(ctx)
	if err != nil {
		return model.Mission{}, fmt.Errorf("failed to list missions: %w", err)
	}
	if len(drafts) == 0 {
		return model.Mission{}, fmt.Errorf("no mission to resume; start one with: marsfocus --topic <topic>")
	}
	return drafts[0], nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show progress dashboard",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print plain text instead of the dashboard")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	plain := statsPlain || !term.IsTerminal(int(os.Stdout.Fd()))
	ctx := cmd.Context()
	a, err := openApp(ctx, !plain)
	if err != nil {
		return err
	}
	defer a.Close()

	report := buildReport(a, model.StatsConfig{Plain: plain})
	if plain {
		return stats.Render(cmd.OutOrStdout(), report, stats.UseColor(os.Stdout))
	}
	program := tea.NewProgram(statsui.NewModel(report), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func buildReport(a *app, cfg model.StatsConfig) stats.Report {
	return stats.BuildReport(a.tracker.User(), a.tracker.Stats(), a.tracker.Missions(), cfg)
}

func newBadgesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "badges",
		Short: "List badges and unlock progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()
			return stats.RenderBadges(cmd.OutOrStdout(), stats.BadgeStatuses(a.tracker.User(), a.tracker.Missions()))
		},
	}
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List completed missions",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N missions")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	if historyLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()
	report := buildReport(a, model.StatsConfig{Last: historyLast, Plain: true})
	return stats.RenderHistory(cmd.OutOrStdout(), report.History)
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export profile and missions",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportFormat, "format", "yaml", "output format: yaml or json")
	return cmd
}

// exportDoc is the document written by the export command.
type exportDoc struct {
	ExportedAt time.Time       `json:"exportedAt" yaml:"exported_at"`
	User       model.User      `json:"user" yaml:"user"`
	Missions   []model.Mission `json:"missions" yaml:"missions"`
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	format := strings.ToLower(strings.TrimSpace(exportFormat))
	if format != "yaml" && format != "json" {
		return fmt.Errorf("--format must be yaml or json")
	}
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	doc := exportDoc{
		ExportedAt: a.now().UTC(),
		User:       a.tracker.User(),
		Missions:   a.tracker.Missions(),
	}
	return writeExport(cmd.OutOrStdout(), format, doc)
}

func writeExport(w io.Writer, format string, doc exportDoc) error {
	if doc.Missions == nil {
		doc.Missions = []model.Mission{}
	}
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode export: %w", err)
		}
		return nil
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update the local profile",
		Args:  cobra.NoArgs,
		RunE:  runProfileCmd,
	}
	cmd.Flags().StringVar(&profileName, "name", "", "display name")
	cmd.Flags().StringVar(&profileEmail, "email", "", "email address")
	return cmd
}

func runProfileCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	user := a.tracker.User()
	if cmd.Flags().Changed("name") || cmd.Flags().Changed("email") {
		if strings.TrimSpace(profileName) == "" && strings.TrimSpace(profileEmail) == "" {
			return fmt.Errorf("--name or --email must not be empty")
		}
		user, err = a.tracker.UpdateProfile(ctx, profileName, profileEmail)
		if err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
	}
	return writeProfile(cmd.OutOrStdout(), user)
}

func writeProfile(w io.Writer, user model.User) error {
	email := user.Email
	if email == "" {
		email = "-"
	}
	_, err := fmt.Fprintf(w, "Name:   %s\nEmail:  %s\nLevel:  %d (%d XP)\nSince:  %s\n",
		user.Name, email, user.Level, user.TotalXP, user.CreatedAt.Local().Format("2006-01-02"))
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all progress and missions",
		Args:  cobra.NoArgs,
		RunE:  runResetCmd,
	}
	cmd.Flags().BoolVar(&resetYes, "yes", false, "skip confirmation")
	return cmd
}

func runResetCmd(cmd *cobra.Command, _ []string) error {
	if !resetYes {
		ok, err := confirm(cmd.InOrStdin(), os.Stderr, "Delete all progress, badges and missions? Type 'yes' to confirm: ")
		if err != nil {
			return err
		}
		if !ok {
			logErrln("Reset cancelled.")
			return nil
		}
	}
	ctx := cmd.Context()
	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.tracker.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset progress: %w", err)
	}
	logErrln("All progress deleted.")
	return nil
}

func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	if _, err := fmt.Fprint(out, prompt); err != nil {
		return false, fmt.Errorf("failed to write prompt: %w", err)
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.EqualFold(strings.TrimSpace(line), "yes"), nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := ensureConfigFile(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func ensureConfigFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(config.Template), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}
	return nil
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func validateConfig(cfg model.Config) error {
	if cfg.Topic == "" {
		return fmt.Errorf("--topic must not be empty")
	}
	if cfg.DurationMinutes <= 0 {
		return fmt.Errorf("--duration must be > 0")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
