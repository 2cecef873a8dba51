// Package progress aggregates completed missions into the user's cumulative state.
package progress

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/verte-zerg/marsfocus/internal/badges"
	"github.com/verte-zerg/marsfocus/internal/clock"
	"github.com/verte-zerg/marsfocus/internal/model"
	"github.com/verte-zerg/marsfocus/internal/scoring"
	"github.com/verte-zerg/marsfocus/internal/store"
)

var (
	// ErrPersistence matches every *PersistenceError.
	ErrPersistence = errors.New("persistence failure")
	// ErrInvalidMission is returned for missions that cannot enter the history.
	ErrInvalidMission = errors.New("invalid mission")
)

// PersistenceError reports a failed read or write of the progress state.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrPersistence) hold for every PersistenceError.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// Repository is the durable storage behind a Tracker.
type Repository interface {
	LoadState(ctx context.Context, userID string) (model.User, []model.Mission, error)
	CommitMission(ctx context.Context, user model.User, mission model.Mission) error
	SaveMission(ctx context.Context, userID string, mission model.Mission) error
	SaveUser(ctx context.Context, user model.User) error
	GetMission(ctx context.Context, id string) (model.Mission, error)
	ListDrafts(ctx context.Context, userID string) ([]model.Mission, error)
	Reset(ctx context.Context, userID string) error
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the clock used to stamp unlocked badges.
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(t *Tracker) {
		if log != nil {
			t.log = log
		}
	}
}

// WithUserID selects the user whose progress is tracked.
func WithUserID(id string) Option {
	return func(t *Tracker) {
		if id != "" {
			t.userID = id
		}
	}
}

// Tracker owns the user aggregate and the completed mission history.
// Readers see either the state before or after an AddMission call, never a mix.
type Tracker struct {
	mu       sync.RWMutex
	repo     Repository
	clock    clock.Clock
	log      *zap.Logger
	userID   string
	user     model.User
	missions []model.Mission
}

// Open loads the persisted state of the local user.
func Open(ctx context.Context, repo Repository, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		repo:   repo,
		clock:  clock.System{},
		log:    zap.NewNop(),
		userID: model.LocalUserID,
	}
	for _, opt := range opts {
		opt(t)
	}
	user, missions, err := repo.LoadState(ctx, t.userID)
	if err != nil {
		return nil, &PersistenceError{Op: "load state", Err: err}
	}
	t.user = user
	t.missions = missions
	return t, nil
}

// AddMission records a completed mission and returns the badges it unlocked.
// On failure the in-memory state is left unchanged.
func (t *Tracker) AddMission(ctx context.Context, mission model.Mission) ([]model.Badge, error) {
	if !mission.Completed || mission.Status != model.StatusCompleted {
		return nil, fmt.Errorf("mission %s is %s: %w", mission.ID, mission.Status, ErrInvalidMission)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, m := range t.missions {
		if m.ID == mission.ID {
			return nil, fmt.Errorf("mission %s already recorded: %w", mission.ID, ErrInvalidMission)
		}
	}

	mission = mission.Clone()
	missions := make([]model.Mission, 0, len(t.missions)+1)
	missions = append(missions, t.missions...)
	missions = append(missions, mission)

	user := t.user.Clone()
	user.TotalXP += mission.XPEarned
	user.TotalFocusTime += mission.DurationMinutes
	user.Level = scoring.LevelForTotalXP(user.TotalXP)

	unlocked := badges.Evaluate(user, missions, t.clock.Now())
	user.Badges = append(user.Badges, unlocked...)

	if err := t.repo.CommitMission(ctx, user, mission); err != nil {
		return nil, &PersistenceError{Op: "commit mission", Err: err}
	}

	t.user = user
	t.missions = missions
	t.log.Info("mission recorded",
		zap.String("mission_id", mission.ID),
		zap.Int("xp", mission.XPEarned),
		zap.Int("total_xp", user.TotalXP),
		zap.Int("level", user.Level),
		zap.Int("badges_unlocked", len(unlocked)),
	)
	return unlocked, nil
}

// Stats derives aggregate statistics from the current state.
func (t *Tracker) Stats() model.Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return computeStats(t.user, t.missions)
}

// User returns a copy of the user aggregate.
func (t *Tracker) User() model.User {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.user.Clone()
}

// Missions returns a copy of the completed mission history in completion order.
func (t *Tracker) Missions() []model.Mission {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]model.Mission, len(t.missions))
	for i, m := range t.missions {
		out[i] = m.Clone()
	}
	return out
}

// MissionByID finds a mission in the history or among the saved drafts.
func (t *Tracker) MissionByID(ctx context.Context, id string) (model.Mission, error) {
	t.mu.RLock()
	for _, m := range t.missions {
		if m.ID == id {
			t.mu.RUnlock()
			return m.Clone(), nil
		}
	}
	t.mu.RUnlock()
	m, err := t.repo.GetMission(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Mission{}, err
	}
	if err != nil {
		return model.Mission{}, &PersistenceError{Op: "get mission", Err: err}
	}
	return m, nil
}

// UpdateProfile changes the display name and email. Empty values keep the current ones.
func (t *Tracker) UpdateProfile(ctx context.Context, name, email string) (model.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	user := t.user.Clone()
	if name = strings.TrimSpace(name); name != "" {
		user.Name = name
	}
	if email = strings.TrimSpace(email); email != "" {
		user.Email = email
	}
	if err := t.repo.SaveUser(ctx, user); err != nil {
		return model.User{}, &PersistenceError{Op: "save user", Err: err}
	}
	t.user = user
	return user.Clone(), nil
}

// Reset wipes all progress and starts over with a fresh user.
func (t *Tracker) Reset(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.repo.Reset(ctx, t.userID); err != nil {
		return &PersistenceError{Op: "reset", Err: err}
	}
	user, missions, err := t.repo.LoadState(ctx, t.userID)
	if err != nil {
		return &PersistenceError{Op: "load state", Err: err}
	}
	t.user = user
	t.missions = missions
	t.log.Info("progress reset", zap.String("user_id", t.userID))
	return nil
}

// SaveDraft persists a mission that has not been completed yet so it can be resumed.
func (t *Tracker) SaveDraft(ctx context.Context, mission model.Mission) error {
	if mission.Completed || mission.Status == model.StatusCompleted {
		return fmt.Errorf("mission %s is completed: %w", mission.ID, ErrInvalidMission)
	}
	if err := t.repo.SaveMission(ctx, t.userID, mission); err != nil {
		return &PersistenceError{Op: "save draft", Err: err}
	}
	t.log.Debug("draft saved",
		zap.String("mission_id", mission.ID),
		zap.String("status", mission.Status),
		zap.Int("distractions", len(mission.Distractions)),
	)
	return nil
}

// Drafts lists resumable missions, newest first.
func (t *Tracker) Drafts(ctx context.Context) ([]model.Mission, error) {
	drafts, err := t.repo.ListDrafts(ctx, t.userID)
	if err != nil {
		return nil, &PersistenceError{Op: "list drafts", Err: err}
	}
	return drafts, nil
}

func computeStats(user model.User, missions []model.Mission) model.Stats {
	stats := model.Stats{
		TotalFocusTime: user.TotalFocusTime,
		TotalMissions:  len(missions),
		CurrentLevel:   user.Level,
		TotalXP:        user.TotalXP,
		XPForNextLevel: scoring.XPToNextLevel(user.TotalXP),
		LevelProgress:  scoring.LevelProgressPercent(user.TotalXP, user.Level),
	}
	if len(missions) == 0 {
		return stats
	}

	ordered := make([]model.Mission, len(missions))
	copy(ordered, missions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].EndTime.Before(ordered[j].EndTime)
	})

	total := 0
	run := 0
	for _, m := range ordered {
		total += len(m.Distractions)
		if len(m.Distractions) == 0 {
			run++
			if run > stats.LongestStreak {
				stats.LongestStreak = run
			}
		} else {
			run = 0
		}
	}
	stats.PerfectFocusStreak = run
	stats.AverageDistractions = math.Round(float64(total)/float64(len(ordered))*10) / 10
	return stats
}
