package stats

import (
	"sort"

	"github.com/verte-zerg/marsfocus/internal/badges"
	"github.com/verte-zerg/marsfocus/internal/model"
)

// BadgeStatus is a catalog badge with the user's unlock state.
type BadgeStatus struct {
	Badge    model.Badge
	Unlocked bool
	Current  int
	Target   int
}

// TopicAggregate sums completed missions per topic.
type TopicAggregate struct {
	Topic        string
	Missions     int
	Minutes      int
	XP           int
	Distractions int
}

// AverageDistractions is the mean distraction count per mission of the topic.
func (t TopicAggregate) AverageDistractions() float64 {
	if t.Missions == 0 {
		return 0
	}
	return float64(t.Distractions) / float64(t.Missions)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	User    model.User
	Stats   model.Stats
	History []model.Mission
	Badges  []BadgeStatus
	Topics  []TopicAggregate
}

// UnlockedCount returns how many badges the user holds.
func (r Report) UnlockedCount() int {
	n := 0
	for _, b := range r.Badges {
		if b.Unlocked {
			n++
		}
	}
	return n
}

// BuildReport prepares data for stats rendering. History keeps completion
// order and is limited to the last cfg.Last missions when set.
func BuildReport(user model.User, st model.Stats, missions []model.Mission, cfg model.StatsConfig) Report {
	history := missions
	if cfg.Last > 0 && len(history) > cfg.Last {
		history = history[len(history)-cfg.Last:]
	}
	return Report{
		User:    user,
		Stats:   st,
		History: history,
		Badges:  BadgeStatuses(user, missions),
		Topics:  Topics(missions),
	}
}

// BadgeStatuses lists the catalog in order, marking held badges with their unlock time.
func BadgeStatuses(user model.User, missions []model.Mission) []BadgeStatus {
	catalog := badges.Catalog()
	out := make([]BadgeStatus, 0, len(catalog))
	for _, b := range catalog {
		current, target := badges.Progress(b, user, missions)
		status := BadgeStatus{Badge: b, Current: current, Target: target}
		for _, held := range user.Badges {
			if held.ID == b.ID {
				status.Badge.UnlockedAt = held.UnlockedAt
				status.Unlocked = true
				status.Current = target
			}
		}
		out = append(out, status)
	}
	return out
}

// Topics aggregates missions by topic, most focused first.
func Topics(missions []model.Mission) []TopicAggregate {
	index := map[string]int{}
	var out []TopicAggregate
	for _, m := range missions {
		i, ok := index[m.Topic]
		if !ok {
			i = len(out)
			index[m.Topic] = i
			out = append(out, TopicAggregate{Topic: m.Topic})
		}
		out[i].Missions++
		out[i].Minutes += m.DurationMinutes
		out[i].XP += m.XPEarned
		out[i].Distractions += len(m.Distractions)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Minutes == out[j].Minutes {
			return out[i].Topic < out[j].Topic
		}
		return out[i].Minutes > out[j].Minutes
	})
	return out
}
