package tracker

import (
	"cmp"
	"slices"
	"time"
)

// TimelineDays is the number of most recent active days kept by DailyVolumeTimeline.
const TimelineDays = 30

// MuscleVolume is the accumulated weight × reps of a muscle group.
type MuscleVolume struct {
	MuscleGroup MuscleGroup `json:"muscleGroup"`
	Volume      float64     `json:"volume"`
}

// DayVolume is the accumulated weight × reps of a calendar day.
type DayVolume struct {
	Day    string  `json:"day"`
	Volume float64 `json:"volume"`
}

// Summary holds the headline numbers of the statistics view.
type Summary struct {
	TotalLogs   int     `json:"totalLogs"`
	TotalVolume float64 `json:"totalVolume"`
	ActiveDays  int     `json:"activeDays"`
}

// PersonalBest returns the highest weight logged for the exercise or 0 without history.
func PersonalBest(logs []LogEntry, exerciseID string) float64 {
	best := 0.0
	for _, l := range logs {
		if l.ExerciseID == exerciseID && l.Weight > best {
			best = l.Weight
		}
	}
	return best
}

// latestIndex returns the index of the chronologically newest entry for the exercise. Equal dates resolve to the
// later slice position. It returns -1 without history.
func latestIndex(logs []LogEntry, exerciseID string) int {
	latest := -1
	for i, l := range logs {
		if l.ExerciseID != exerciseID {
			continue
		}
		if latest == -1 || !l.Date.Before(logs[latest].Date) {
			latest = i
		}
	}
	return latest
}

// LastWeight returns the weight of the chronologically newest entry for the exercise. Logs may arrive out of order
// so the slice position alone does not decide.
func LastWeight(logs []LogEntry, exerciseID string) (float64, bool) {
	i := latestIndex(logs, exerciseID)
	if i == -1 {
		return 0, false
	}
	return logs[i].Weight, true
}

// IsPersonalRecordCandidate reports whether logging weight now would beat every earlier entry of the exercise.
// Without history there is no record to beat.
func IsPersonalRecordCandidate(logs []LogEntry, exerciseID string, weight float64) bool {
	hasHistory := false
	for _, l := range logs {
		if l.ExerciseID == exerciseID {
			hasHistory = true
			break
		}
	}
	return hasHistory && weight > PersonalBest(logs, exerciseID)
}

// IsNewPersonalRecord reports whether the newest entry of the exercise strictly beats all earlier ones.
func IsNewPersonalRecord(logs []LogEntry, exerciseID string) bool {
	i := latestIndex(logs, exerciseID)
	if i == -1 {
		return false
	}
	earlier := make([]LogEntry, 0, len(logs)-1)
	earlier = append(earlier, logs[:i]...)
	earlier = append(earlier, logs[i+1:]...)
	return IsPersonalRecordCandidate(earlier, exerciseID, logs[i].Weight)
}

// MuscleGroupVolume sums volume per muscle group, sorted by volume descending. Ties keep first-seen order.
func MuscleGroupVolume(logs []LogEntry) []MuscleVolume {
	index := make(map[MuscleGroup]int)
	volumes := []MuscleVolume{}
	for _, l := range logs {
		i, ok := index[l.MuscleGroup]
		if !ok {
			i = len(volumes)
			index[l.MuscleGroup] = i
			volumes = append(volumes, MuscleVolume{MuscleGroup: l.MuscleGroup, Volume: 0})
		}
		volumes[i].Volume += l.Volume()
	}
	slices.SortStableFunc(volumes, func(a, b MuscleVolume) int {
		return cmp.Compare(b.Volume, a.Volume)
	})
	return volumes
}

// DailyVolumeTimeline sums volume per UTC calendar day, ascending by day, limited to the newest TimelineDays days
// with activity. Days without logs are not filled in.
func DailyVolumeTimeline(logs []LogEntry) []DayVolume {
	byDay := make(map[string]float64)
	for _, l := range logs {
		byDay[l.Day()] += l.Volume()
	}
	timeline := make([]DayVolume, 0, len(byDay))
	for day, volume := range byDay {
		timeline = append(timeline, DayVolume{Day: day, Volume: volume})
	}
	// YYYY-MM-DD sorts lexicographically in calendar order.
	slices.SortFunc(timeline, func(a, b DayVolume) int {
		return cmp.Compare(a.Day, b.Day)
	})
	if len(timeline) > TimelineDays {
		timeline = timeline[len(timeline)-TimelineDays:]
	}
	return timeline
}

// DistinctActiveDayCount returns the number of calendar days with at least one entry.
func DistinctActiveDayCount(logs []LogEntry) int {
	days := make(map[string]struct{})
	for _, l := range logs {
		days[l.Day()] = struct{}{}
	}
	return len(days)
}

// TotalVolume returns the sum of weight × reps over all entries.
func TotalVolume(logs []LogEntry) float64 {
	total := 0.0
	for _, l := range logs {
		total += l.Volume()
	}
	return total
}

// Summarize computes the headline statistics.
func Summarize(logs []LogEntry) Summary {
	return Summary{
		TotalLogs:   len(logs),
		TotalVolume: TotalVolume(logs),
		ActiveDays:  DistinctActiveDayCount(logs),
	}
}

// Chronological returns a copy of logs sorted by date. Entries with equal dates keep their relative order.
func Chronological(logs []LogEntry) []LogEntry {
	sorted := slices.Clone(logs)
	slices.SortStableFunc(sorted, func(a, b LogEntry) int {
		return a.Date.Compare(b.Date)
	})
	return sorted
}

// ActiveOn reports whether any entry falls on the UTC calendar day of t.
func ActiveOn(logs []LogEntry, t time.Time) bool {
	day := t.UTC().Format(time.DateOnly)
	return slices.ContainsFunc(logs, func(l LogEntry) bool { return l.Day() == day })
}
