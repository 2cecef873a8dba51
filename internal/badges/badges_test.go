package badges

import (
	"testing"
	"time"

	"github.com/verte-zerg/marsfocus/internal/model"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func completed(i, minutes, distractions int) model.Mission {
	m := model.Mission{
		ID:              "m" + string(rune('a'+i)),
		Topic:           "Algebra",
		DurationMinutes: minutes,
		Completed:       true,
		Status:          model.StatusCompleted,
		EndTime:         base.Add(time.Duration(i) * time.Hour),
	}
	for d := 0; d < distractions; d++ {
		m.Distractions = append(m.Distractions, model.DistractionEvent{Timestamp: m.EndTime})
	}
	return m
}

func ids(bs []model.Badge) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.ID
	}
	return out
}

func apply(user model.User, m model.Mission, history []model.Mission) (model.User, []model.Mission, []model.Badge) {
	history = append(history, m)
	user.TotalFocusTime += m.DurationMinutes
	got := Evaluate(user, history, m.EndTime)
	user.Badges = append(user.Badges, got...)
	return user, history, got
}

func TestCatalogHasEightEntries(t *testing.T) {
	c := Catalog()
	if len(c) != 8 {
		t.Fatalf("expected 8 badges, got %d", len(c))
	}
	c[0].Name = "mutated"
	if Catalog()[0].Name == "mutated" {
		t.Fatalf("catalog must not be mutable through Catalog()")
	}
	if _, ok := Lookup("perfect-streak-3"); !ok {
		t.Fatalf("expected perfect-streak-3 in catalog")
	}
}

func TestEvaluateFirstMission(t *testing.T) {
	user := model.NewUser(base)
	_, _, got := apply(user, completed(0, 30, 1), nil)
	want := []string{"first-mission", "focus-master-25"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("expected %v in catalog order, got %v", want, ids(got))
		}
		if !got[i].UnlockedAt.Equal(base) {
			t.Fatalf("expected unlock stamp %v, got %v", base, got[i].UnlockedAt)
		}
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	user := model.NewUser(base)
	user, history, first := apply(user, completed(0, 25, 0), nil)
	if len(first) == 0 {
		t.Fatalf("expected badges on first evaluation")
	}
	again := Evaluate(user, history, base.Add(time.Minute))
	if len(again) != 0 {
		t.Fatalf("expected no badges on re-evaluation, got %v", ids(again))
	}
}

func TestPerfectStreakFiresOnThirdMission(t *testing.T) {
	user := model.NewUser(base)
	var history []model.Mission
	var fired []int
	plan := []int{0, 0, 0, 1}
	for i, d := range plan {
		var got []model.Badge
		user, history, got = apply(user, completed(i, 1, d), history)
		for _, b := range got {
			if b.ID == "perfect-streak-3" {
				fired = append(fired, i)
			}
		}
	}
	if len(fired) != 1 || fired[0] != 2 {
		t.Fatalf("expected perfect-streak-3 exactly once on mission index 2, got %v", fired)
	}
}

func TestPerfectStreakResetsOnDistraction(t *testing.T) {
	user := model.NewUser(base)
	history := []model.Mission{
		completed(0, 1, 0),
		completed(1, 1, 0),
		completed(2, 1, 2),
		completed(3, 1, 0),
	}
	streak, _ := Lookup("perfect-streak-3")
	if Qualifies(streak, user, history) {
		t.Fatalf("streak broken by a distracted mission must not qualify")
	}
	current, target := Progress(streak, user, history)
	if current != 2 || target != 3 {
		t.Fatalf("expected progress 2/3, got %d/%d", current, target)
	}
}

func TestFocusTimeUsesUserTotal(t *testing.T) {
	user := model.NewUser(base)
	user.TotalFocusTime = 100
	got := Evaluate(user, nil, base)
	want := map[string]bool{"focus-master-25": true, "focus-master-100": true}
	if len(got) != len(want) {
		t.Fatalf("expected %d badges, got %v", len(want), ids(got))
	}
	for _, b := range got {
		if !want[b.ID] {
			t.Fatalf("unexpected badge %s", b.ID)
		}
	}
}

func TestMissionsCompletedIgnoresIncomplete(t *testing.T) {
	user := model.NewUser(base)
	var history []model.Mission
	for i := 0; i < 9; i++ {
		history = append(history, completed(i, 1, 1))
	}
	history = append(history, model.Mission{ID: "draft", Status: model.StatusActive})
	ten, _ := Lookup("missions-10")
	if Qualifies(ten, user, history) {
		t.Fatalf("draft mission must not count toward missions-10")
	}
	history = append(history, completed(10, 1, 1))
	if !Qualifies(ten, user, history) {
		t.Fatalf("expected missions-10 after ten completed missions")
	}
}

func TestUnknownRequirementNeverUnlocks(t *testing.T) {
	b := model.Badge{ID: "mystery", Requirement: model.BadgeRequirement{Type: "moon_landing", Value: 0}}
	user := model.NewUser(base)
	if Qualifies(b, user, []model.Mission{completed(0, 10, 0)}) {
		t.Fatalf("unknown requirement type must not unlock")
	}
}
