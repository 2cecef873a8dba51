// Package badges holds the badge catalog and unlock evaluation.
package badges

import (
	"sort"
	"time"

	"github.com/verte-zerg/marsfocus/internal/model"
)

var catalog = []model.Badge{
	{
		ID:          "first-mission",
		Name:        "First Steps",
		Description: "Complete your first mission",
		Icon:        "🚀",
		Requirement: model.BadgeRequirement{Type: model.RequirementFirstMission, Value: 1},
	},
	{
		ID:          "focus-master-25",
		Name:        "Focus Apprentice",
		Description: "Accumulate 25 minutes of focus time",
		Icon:        "⏰",
		Requirement: model.BadgeRequirement{Type: model.RequirementFocusTime, Value: 25},
	},
	{
		ID:          "focus-master-100",
		Name:        "Focus Master",
		Description: "Accumulate 100 minutes of focus time",
		Icon:        "🎯",
		Requirement: model.BadgeRequirement{Type: model.RequirementFocusTime, Value: 100},
	},
	{
		ID:          "focus-master-500",
		Name:        "Focus Legend",
		Description: "Accumulate 500 minutes of focus time",
		Icon:        "👑",
		Requirement: model.BadgeRequirement{Type: model.RequirementFocusTime, Value: 500},
	},
	{
		ID:          "no-distractions",
		Name:        "Laser Focused",
		Description: "Complete a mission with zero distractions",
		Icon:        "✨",
		Requirement: model.BadgeRequirement{Type: model.RequirementNoDistractions, Value: 1},
	},
	{
		ID:          "missions-10",
		Name:        "Mission Specialist",
		Description: "Complete 10 missions",
		Icon:        "📋",
		Requirement: model.BadgeRequirement{Type: model.RequirementMissionsCompleted, Value: 10},
	},
	{
		ID:          "missions-50",
		Name:        "Mission Commander",
		Description: "Complete 50 missions",
		Icon:        "🎖️",
		Requirement: model.BadgeRequirement{Type: model.RequirementMissionsCompleted, Value: 50},
	},
	{
		ID:          "perfect-streak-3",
		Name:        "On Fire",
		Description: "Complete 3 missions in a row with no distractions",
		Icon:        "🔥",
		Requirement: model.BadgeRequirement{Type: model.RequirementPerfectStreak, Value: 3},
	},
}

// Catalog returns a copy of the available badges in catalog order.
func Catalog() []model.Badge {
	return append([]model.Badge(nil), catalog...)
}

// Lookup returns the catalog entry with the given id.
func Lookup(id string) (model.Badge, bool) {
	for _, b := range catalog {
		if b.ID == id {
			return b, true
		}
	}
	return model.Badge{}, false
}

// Evaluate returns the catalog badges that newly qualify for the user, stamped with now.
// The user must already reflect the just-completed mission and missions must include it.
func Evaluate(user model.User, missions []model.Mission, now time.Time) []model.Badge {
	var unlocked []model.Badge
	for _, b := range catalog {
		if user.HasBadge(b.ID) {
			continue
		}
		if !Qualifies(b, user, missions) {
			continue
		}
		b.UnlockedAt = now
		unlocked = append(unlocked, b)
	}
	return unlocked
}

// Qualifies reports whether the badge requirement holds, ignoring ownership.
func Qualifies(b model.Badge, user model.User, missions []model.Mission) bool {
	current, target, ok := measure(b, user, missions)
	if !ok {
		return false
	}
	return current >= target
}

// Progress returns the current measure and the target for a badge requirement.
func Progress(b model.Badge, user model.User, missions []model.Mission) (current, target int) {
	current, target, ok := measure(b, user, missions)
	if !ok {
		return 0, 0
	}
	if current > target {
		current = target
	}
	return current, target
}

func measure(b model.Badge, user model.User, missions []model.Mission) (current, target int, ok bool) {
	value := b.Requirement.Value
	switch b.Requirement.Type {
	case model.RequirementFirstMission:
		return completedCount(missions), 1, true
	case model.RequirementFocusTime:
		return user.TotalFocusTime, value, true
	case model.RequirementMissionsCompleted:
		return completedCount(missions), value, true
	case model.RequirementNoDistractions:
		for _, m := range missions {
			if m.Completed && len(m.Distractions) == 0 {
				return 1, 1, true
			}
		}
		return 0, 1, true
	case model.RequirementPerfectStreak:
		return longestRecentStreak(missions, value), value, true
	default:
		return 0, 0, false
	}
}

func completedCount(missions []model.Mission) int {
	n := 0
	for _, m := range missions {
		if m.Completed {
			n++
		}
	}
	return n
}

// longestRecentStreak scans completed missions newest first and returns the
// longest zero-distraction run, stopping early once target is met.
func longestRecentStreak(missions []model.Mission, target int) int {
	ordered := make([]model.Mission, 0, len(missions))
	for _, m := range missions {
		if m.Completed {
			ordered = append(ordered, m)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].EndTime.After(ordered[j].EndTime)
	})
	best, streak := 0, 0
	for _, m := range ordered {
		if len(m.Distractions) != 0 {
			streak = 0
			continue
		}
		streak++
		if streak > best {
			best = streak
		}
		if target > 0 && best >= target {
			return best
		}
	}
	return best
}
