// Package session implements the lifecycle of a single timed mission.
package session

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/verte-zerg/marsfocus/internal/clock"
	"github.com/verte-zerg/marsfocus/internal/model"
	"github.com/verte-zerg/marsfocus/internal/scoring"
)

// State is the lifecycle state of a session.
type State string

// Session states.
const (
	StatePending   State = "pending"
	StateActive    State = "active"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
)

// ErrInvalidTransition is returned when an operation is not allowed in the current state.
var ErrInvalidTransition = errors.New("invalid transition")

// Session owns a mission while it is being run.
//
// Distraction tracking is suspended while paused: a focus loss is only
// recorded when both the loss and the regain happen while active.
type Session struct {
	mission   model.Mission
	state     State
	remaining int
	lostAt    time.Time
	clock     clock.Clock
}

// New starts tracking a pending mission.
func New(m model.Mission, c clock.Clock) *Session {
	if c == nil {
		c = clock.System{}
	}
	m = m.Clone()
	m.Status = model.StatusPending
	m.Completed = false
	return &Session{
		mission:   m,
		state:     StatePending,
		remaining: m.DurationMinutes * 60,
		clock:     c,
	}
}

// Restore rebuilds a session for a persisted mission. A mission that was
// interrupted while running comes back paused with the countdown where it was
// flushed; time spent with the app closed is not counted.
func Restore(m model.Mission, c clock.Clock) *Session {
	s := New(m, c)
	if m.Status == model.StatusCompleted || m.Completed {
		s.mission = m.Clone()
		s.state = StateCompleted
		s.remaining = 0
		return s
	}
	if m.StartTime.IsZero() {
		return s
	}
	planned := m.DurationMinutes * 60
	elapsed := min(max(m.ElapsedSeconds, 0), planned)
	s.mission.ElapsedSeconds = elapsed
	s.mission.StartTime = s.clock.Now().Add(-time.Duration(elapsed) * time.Second)
	s.mission.Status = model.StatusActive
	s.remaining = planned - elapsed
	s.state = StatePaused
	return s
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Remaining returns the countdown time left.
func (s *Session) Remaining() time.Duration {
	return time.Duration(s.remaining) * time.Second
}

// Distractions returns the events recorded so far.
func (s *Session) Distractions() []model.DistractionEvent {
	return append([]model.DistractionEvent(nil), s.mission.Distractions...)
}

// Mission returns a copy of the mission in its current form.
func (s *Session) Mission() model.Mission {
	return s.mission.Clone()
}

// Snapshot returns the partial mission to persist before teardown.
func (s *Session) Snapshot() model.Mission {
	m := s.mission.Clone()
	switch s.state {
	case StateActive, StatePaused:
		m.Status = model.StatusActive
		m.ElapsedSeconds = m.DurationMinutes*60 - s.remaining
	case StateCompleted:
		m.Status = model.StatusCompleted
	default:
		m.Status = model.StatusPending
	}
	return m
}

// EstimatedXP is the XP the mission would earn at its planned duration with the current distractions.
func (s *Session) EstimatedXP() int {
	return scoring.MissionXP(s.mission)
}

// Start begins the countdown.
func (s *Session) Start() error {
	if s.state != StatePending {
		return s.invalid("start")
	}
	s.mission.StartTime = s.clock.Now()
	s.mission.Status = model.StatusActive
	s.state = StateActive
	return nil
}

// Pause suspends the countdown and distraction tracking.
func (s *Session) Pause() error {
	if s.state != StateActive {
		return s.invalid("pause")
	}
	s.state = StatePaused
	s.lostAt = time.Time{}
	return nil
}

// Resume continues a paused session.
func (s *Session) Resume() error {
	if s.state != StatePaused {
		return s.invalid("resume")
	}
	s.state = StateActive
	return nil
}

// TogglePause pauses an active session or resumes a paused one.
func (s *Session) TogglePause() error {
	if s.state == StatePaused {
		return s.Resume()
	}
	return s.Pause()
}

// Tick advances the countdown by one second. It reports true once the
// countdown expires and the session has been completed.
func (s *Session) Tick() (bool, error) {
	if s.state != StateActive {
		return false, nil
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining > 0 {
		return false, nil
	}
	if _, err := s.Complete(); err != nil {
		return false, err
	}
	return true, nil
}

// FocusLost registers the start of a potential distraction.
func (s *Session) FocusLost(at time.Time) {
	if s.state != StateActive {
		return
	}
	s.lostAt = at
}

// FocusRegained closes a pending focus loss and records it as a distraction.
// It reports whether an event was recorded.
func (s *Session) FocusRegained(at time.Time) bool {
	if s.state != StateActive || s.lostAt.IsZero() {
		s.lostAt = time.Time{}
		return false
	}
	start := s.lostAt
	s.lostAt = time.Time{}
	return s.RecordDistraction(start, at) == nil
}

// RecordDistraction appends a completed out-and-back focus loss.
func (s *Session) RecordDistraction(start, end time.Time) error {
	if s.state != StateActive {
		return s.invalid("record distraction")
	}
	d := end.Sub(start)
	if d < 0 {
		d = 0
	}
	s.mission.Distractions = append(s.mission.Distractions, model.DistractionEvent{
		Timestamp:  start,
		DurationMs: d.Milliseconds(),
	})
	return nil
}

// Complete finalizes the mission: the duration becomes the actual elapsed
// minutes and XP is computed from it.
func (s *Session) Complete() (model.Mission, error) {
	if s.state == StateCompleted {
		return model.Mission{}, s.invalid("complete")
	}
	end := s.clock.Now()
	start := s.mission.StartTime
	if start.IsZero() {
		start = end
		s.mission.StartTime = end
	}
	elapsedMs := end.Sub(start).Milliseconds()
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	s.mission.DurationMinutes = int(math.Round(float64(elapsedMs) / 60000))
	s.mission.ElapsedSeconds = int(elapsedMs / 1000)
	s.mission.EndTime = end
	s.mission.XPEarned = scoring.MissionXP(s.mission)
	s.mission.Completed = true
	s.mission.Status = model.StatusCompleted
	s.state = StateCompleted
	s.remaining = 0
	s.lostAt = time.Time{}
	return s.mission.Clone(), nil
}

// FocusScore is the share of focused seconds after a five-second charge per distraction, in [0,100].
func FocusScore(m model.Mission) int {
	seconds := m.DurationMinutes * 60
	if seconds <= 0 {
		return 0
	}
	score := math.Round(float64(seconds-len(m.Distractions)*5) / float64(seconds) * 100)
	if score < 0 {
		return 0
	}
	return int(score)
}

func (s *Session) invalid(op string) error {
	return fmt.Errorf("%s from %s: %w", op, s.state, ErrInvalidTransition)
}
