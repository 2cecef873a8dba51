// Package model defines shared data structures.
package model

import "time"

// Mission status values.
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Badge requirement types.
const (
	RequirementFirstMission      = "first_mission"
	RequirementFocusTime         = "focus_time"
	RequirementMissionsCompleted = "missions_completed"
	RequirementNoDistractions    = "no_distractions"
	RequirementPerfectStreak     = "perfect_streak"
)

// Plan sources.
const (
	PlanSourceAI       = "ai"
	PlanSourceFallback = "fallback"
)

// LocalUserID identifies the single local user.
const LocalUserID = "local-user"

// DefaultUserName is the display name of a fresh local user.
const DefaultUserName = "Mars Explorer"

// Config defines mission settings.
type Config struct {
	Topic           string
	Description     string
	DurationMinutes int
	UseAI           bool
}

// AIConfig defines the plan generation collaborator settings.
type AIConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Last  int
	Plain bool
}

// DistractionEvent records a completed out-and-back focus loss.
type DistractionEvent struct {
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
	DurationMs int64     `json:"duration_ms,omitempty" yaml:"duration_ms,omitempty"`
}

// QuizQuestion is a multiple choice question attached to a mission.
type QuizQuestion struct {
	ID            string   `json:"id" yaml:"id"`
	Question      string   `json:"question" yaml:"question"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer int      `json:"correctAnswer" yaml:"correct_answer"`
	Answer        string   `json:"answer" yaml:"answer"`
	Completed     bool     `json:"completed" yaml:"completed"`
}

// Mission is one timed study session and its outcome.
type Mission struct {
	ID              string             `json:"id" yaml:"id"`
	Topic           string             `json:"topic" yaml:"topic"`
	Description     string             `json:"description,omitempty" yaml:"description,omitempty"`
	DurationMinutes int                `json:"duration" yaml:"duration"`
	Tasks           []string           `json:"tasks,omitempty" yaml:"tasks,omitempty"`
	QuizQuestions   []QuizQuestion     `json:"quizQuestions,omitempty" yaml:"quiz_questions,omitempty"`
	StartTime       time.Time          `json:"startTime,omitempty" yaml:"start_time,omitempty"`
	EndTime         time.Time          `json:"endTime,omitempty" yaml:"end_time,omitempty"`
	// ElapsedSeconds is the active countdown time spent before the mission was interrupted.
	ElapsedSeconds  int                `json:"elapsedSeconds,omitempty" yaml:"elapsed_seconds,omitempty"`
	Distractions    []DistractionEvent `json:"distractions" yaml:"distractions"`
	XPEarned        int                `json:"xpEarned" yaml:"xp_earned"`
	Completed       bool               `json:"completed" yaml:"completed"`
	Status          string             `json:"status" yaml:"status"`
	CreatedAt       time.Time          `json:"createdAt" yaml:"created_at"`
}

// BadgeRequirement is the predicate a badge is unlocked by.
type BadgeRequirement struct {
	Type  string `json:"type" yaml:"type"`
	Value int    `json:"value" yaml:"value"`
}

// Badge is a catalog entry or, when UnlockedAt is set, an earned copy.
type Badge struct {
	ID          string           `json:"id" yaml:"id"`
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description" yaml:"description"`
	Icon        string           `json:"icon" yaml:"icon"`
	Requirement BadgeRequirement `json:"requirement" yaml:"requirement"`
	UnlockedAt  time.Time        `json:"unlockedAt,omitempty" yaml:"unlocked_at,omitempty"`
}

// User is the cumulative progress aggregate of the local user.
type User struct {
	ID             string    `json:"id" yaml:"id"`
	Email          string    `json:"email,omitempty" yaml:"email,omitempty"`
	Name           string    `json:"name" yaml:"name"`
	TotalXP        int       `json:"totalXP" yaml:"total_xp"`
	Level          int       `json:"level" yaml:"level"`
	TotalFocusTime int       `json:"totalFocusTime" yaml:"total_focus_time"`
	Badges         []Badge   `json:"badges" yaml:"badges"`
	CreatedAt      time.Time `json:"createdAt" yaml:"created_at"`
}

// Stats are derived aggregate statistics over the user and mission history.
type Stats struct {
	TotalFocusTime      int
	TotalMissions       int
	CurrentLevel        int
	TotalXP             int
	XPForNextLevel      int
	LevelProgress       float64
	AverageDistractions float64
	PerfectFocusStreak  int
	LongestStreak       int
}

// Plan is a generated study plan for a mission.
type Plan struct {
	Tasks         []string       `json:"tasks"`
	QuizQuestions []QuizQuestion `json:"quizQuestions"`
	Source        string         `json:"-"`
}

// NewUser returns a fresh local user.
func NewUser(createdAt time.Time) User {
	return User{
		ID:        LocalUserID,
		Name:      DefaultUserName,
		Level:     1,
		Badges:    []Badge{},
		CreatedAt: createdAt,
	}
}

// HasBadge reports whether the user already holds a badge with the id.
func (u User) HasBadge(id string) bool {
	for _, b := range u.Badges {
		if b.ID == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the mission.
func (m Mission) Clone() Mission {
	out := m
	out.Tasks = append([]string(nil), m.Tasks...)
	out.Distractions = append([]DistractionEvent(nil), m.Distractions...)
	if m.QuizQuestions != nil {
		out.QuizQuestions = make([]QuizQuestion, len(m.QuizQuestions))
		for i, q := range m.QuizQuestions {
			q.Options = append([]string(nil), q.Options...)
			out.QuizQuestions[i] = q
		}
	}
	return out
}

// Clone returns a deep copy of the user.
func (u User) Clone() User {
	out := u
	out.Badges = append([]Badge{}, u.Badges...)
	return out
}
