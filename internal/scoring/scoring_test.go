package scoring

import (
	"testing"
	"time"

	"github.com/verte-zerg/marsfocus/internal/model"
)

func distractions(n int) []model.DistractionEvent {
	out := make([]model.DistractionEvent, n)
	for i := range out {
		out[i] = model.DistractionEvent{Timestamp: time.Unix(int64(i), 0), DurationMs: 1000}
	}
	return out
}

func TestMissionXP(t *testing.T) {
	if got := MissionXP(model.Mission{DurationMinutes: 25}); got != 250 {
		t.Fatalf("expected 250, got %d", got)
	}
	if got := MissionXP(model.Mission{DurationMinutes: 25, Distractions: distractions(2)}); got != 240 {
		t.Fatalf("expected 240, got %d", got)
	}
	if got := MissionXP(model.Mission{DurationMinutes: 0, Distractions: distractions(100)}); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := MissionXP(model.Mission{DurationMinutes: -5}); got != 0 {
		t.Fatalf("expected negative duration to score 0, got %d", got)
	}
}

func TestLevelForTotalXP(t *testing.T) {
	cases := map[int]int{
		-10: 1,
		0:   1,
		99:  1,
		100: 2,
		299: 2,
		300: 3,
		599: 3,
		600: 4,
	}
	for xp, want := range cases {
		if got := LevelForTotalXP(xp); got != want {
			t.Fatalf("LevelForTotalXP(%d) = %d, want %d", xp, got, want)
		}
	}
}

func TestLevelForTotalXPMonotonic(t *testing.T) {
	prev := LevelForTotalXP(0)
	for xp := 1; xp <= 20000; xp++ {
		level := LevelForTotalXP(xp)
		if level < prev {
			t.Fatalf("level decreased at xp=%d: %d -> %d", xp, prev, level)
		}
		prev = level
	}
}

func TestXPToNextLevelAgreesWithLevel(t *testing.T) {
	for xp := 0; xp <= 10000; xp++ {
		level := LevelForTotalXP(xp)
		remaining := XPToNextLevel(xp)
		if remaining <= 0 {
			t.Fatalf("XPToNextLevel(%d) = %d, expected positive", xp, remaining)
		}
		if LevelForTotalXP(xp+remaining) != level+1 {
			t.Fatalf("xp=%d: crossing %d XP should reach level %d", xp, remaining, level+1)
		}
		if LevelForTotalXP(xp+remaining-1) != level {
			t.Fatalf("xp=%d: one XP short of boundary should stay at level %d", xp, level)
		}
	}
}

func TestCumulativeXPForLevel(t *testing.T) {
	for level := 1; level <= 30; level++ {
		boundary := CumulativeXPForLevel(level)
		if LevelForTotalXP(boundary) != level {
			t.Fatalf("boundary %d should be level %d, got %d", boundary, level, LevelForTotalXP(boundary))
		}
		if level > 1 && LevelForTotalXP(boundary-1) != level-1 {
			t.Fatalf("xp %d should still be level %d", boundary-1, level-1)
		}
	}
}

func TestLevelProgressPercent(t *testing.T) {
	if got := LevelProgressPercent(0, 1); got != 0 {
		t.Fatalf("expected 0, got %.2f", got)
	}
	if got := LevelProgressPercent(50, 1); got != 50 {
		t.Fatalf("expected 50, got %.2f", got)
	}
	if got := LevelProgressPercent(200, 2); got != 50 {
		t.Fatalf("expected 50, got %.2f", got)
	}
	if got := LevelProgressPercent(5000, 2); got != 100 {
		t.Fatalf("expected clamp to 100, got %.2f", got)
	}
	if got := LevelProgressPercent(0, 3); got != 0 {
		t.Fatalf("expected clamp to 0, got %.2f", got)
	}
}
