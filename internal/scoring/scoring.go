// Package scoring computes mission XP and level progression.
package scoring

import "github.com/verte-zerg/marsfocus/internal/model"

const (
	// XPPerMinute is awarded for each minute of actual focus.
	XPPerMinute = 10
	// DistractionPenalty is deducted per recorded distraction.
	DistractionPenalty = 5
	xpPerLevelStep     = 100
)

// XPForLevel returns the XP band width of a level.
func XPForLevel(level int) int {
	return level * xpPerLevelStep
}

// MissionXP returns the XP earned for a mission, never negative.
func MissionXP(m model.Mission) int {
	minutes := m.DurationMinutes
	if minutes < 0 {
		minutes = 0
	}
	xp := minutes*XPPerMinute - len(m.Distractions)*DistractionPenalty
	if xp < 0 {
		return 0
	}
	return xp
}

// LevelForTotalXP returns the level reached with the given cumulative XP.
func LevelForTotalXP(totalXP int) int {
	level := 1
	required := XPForLevel(level)
	for totalXP >= required {
		level++
		required += XPForLevel(level)
	}
	return level
}

// CumulativeXPForLevel returns the total XP at which level is reached.
func CumulativeXPForLevel(level int) int {
	total := 0
	for i := 1; i < level; i++ {
		total += XPForLevel(i)
	}
	return total
}

// XPToNextLevel returns the XP still missing to reach the next level.
func XPToNextLevel(totalXP int) int {
	if totalXP < 0 {
		totalXP = 0
	}
	level := LevelForTotalXP(totalXP)
	return CumulativeXPForLevel(level+1) - totalXP
}

// LevelProgressPercent returns how much of the level's XP band is completed, in [0,100].
func LevelProgressPercent(totalXP, level int) float64 {
	if level < 1 {
		level = 1
	}
	band := XPForLevel(level)
	current := totalXP - CumulativeXPForLevel(level)
	pct := float64(current) / float64(band) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
