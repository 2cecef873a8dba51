package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/marsfocus/internal/clock"
	"github.com/verte-zerg/marsfocus/internal/config"
	"github.com/verte-zerg/marsfocus/internal/generator"
	"github.com/verte-zerg/marsfocus/internal/logging"
	"github.com/verte-zerg/marsfocus/internal/model"
	"github.com/verte-zerg/marsfocus/internal/progress"
	"github.com/verte-zerg/marsfocus/internal/store"
)

// app holds the collaborators shared by every command.
type app struct {
	cfg      config.FileConfig
	log      *zap.Logger
	closeLog func() error
	store    *store.Store
	tracker  *progress.Tracker
	clock    clock.Clock
}

// openApp loads config, opens the log and the database and restores progress.
// Interactive commands keep warnings off the terminal so the TUI is not torn.
func openApp(ctx context.Context, interactive bool) (*app, error) {
	cfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logOpts := logging.Options{File: config.DefaultLogPath()}
	if cfg.Log.Level != nil {
		logOpts.Level = *cfg.Log.Level
	}
	if cfg.Log.File != nil && *cfg.Log.File != "" {
		logOpts.File = *cfg.Log.File
	}
	if !interactive {
		logOpts.Console = os.Stderr
	}
	log, closeLog, err := logging.New(logOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		if cerr := closeLog(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	clk := clock.System{}
	tracker, err := progress.Open(ctx, st,
		progress.WithClock(clk),
		progress.WithLogger(log.Named("progress")),
	)
	if err != nil {
		a := &app{log: log, closeLog: closeLog, store: st}
		a.Close()
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		closeLog: closeLog,
		store:    st,
		tracker:  tracker,
		clock:    clk,
	}
	if err := a.applyProfileDefaults(ctx); err != nil {
		logErrf("failed to apply profile from config: %v\n", err)
	}
	return a, nil
}

// applyProfileDefaults names a user that still carries the default profile.
func (a *app) applyProfileDefaults(ctx context.Context) error {
	user := a.tracker.User()
	var name, email string
	if a.cfg.Profile.Name != nil && user.Name == model.DefaultUserName {
		name = *a.cfg.Profile.Name
	}
	if a.cfg.Profile.Email != nil && user.Email == "" {
		email = *a.cfg.Profile.Email
	}
	if name == "" && email == "" {
		return nil
	}
	_, err := a.tracker.UpdateProfile(ctx, name, email)
	return err
}

// newGenerator builds the plan generator. The returned close function releases
// the AI client when one was created.
func (a *app) newGenerator(ctx context.Context, useAI bool) (*generator.Generator, func()) {
	log := a.log.Named("generator")
	opts := []generator.Option{generator.WithLogger(log)}
	if a.cfg.AI.Timeout != nil {
		opts = append(opts, generator.WithTimeout(a.cfg.AI.Timeout.Duration))
	}
	closeFn := func() {}

	apiKey := a.cfg.APIKey()
	if useAI && apiKey != "" {
		modelName := generator.DefaultGeminiModel
		if a.cfg.AI.Model != nil && *a.cfg.AI.Model != "" {
			modelName = *a.cfg.AI.Model
		}
		gem, err := generator.NewGemini(ctx, apiKey, modelName)
		if err != nil {
			log.Warn("failed to create gemini client", zap.Error(err))
		} else {
			opts = append(opts, generator.WithSource(gem))
			closeFn = func() {
				if err := gem.Close(); err != nil {
					log.Debug("failed to close gemini client", zap.Error(err))
				}
			}
		}
	} else if useAI {
		log.Info("no api key configured, using standard checklist",
			zap.String("env", config.GeminiAPIKeyEnv))
	}
	return generator.New(opts...), closeFn
}

func (a *app) now() time.Time {
	return a.clock.Now()
}

// Close releases the database and flushes the log.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logErrf("failed to close db: %v\n", err)
		}
	}
	if a.closeLog != nil {
		if err := a.closeLog(); err != nil {
			// Best-effort flush of the log file.
			_ = err
		}
	}
}
