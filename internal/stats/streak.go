// Package stats keeps a user's cumulative counters consistent with their
// journal entries and computes the daily writing streak.
package stats

import (
	"math"
	"time"
)

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayDiff returns the number of calendar days from one instant to another,
// ignoring time-of-day. Rounding absorbs DST offsets.
func DayDiff(from, to time.Time) int {
	return int(math.Round(StartOfDay(to).Sub(StartOfDay(from)).Hours() / 24))
}

// NextStreak applies the daily streak transition:
//
//	no prior activity        -> 1
//	same day (or clock skew) -> unchanged
//	next day                 -> +1
//	gap of two or more days  -> reset to 1
//
// A negative day difference (backdated clock) is treated as same-day so the
// streak never decreases.
func NextStreak(current int, lastActive *time.Time, now time.Time) int {
	if lastActive == nil {
		return 1
	}
	diff := DayDiff(*lastActive, now)
	switch {
	case diff == 1:
		return current + 1
	case diff > 1:
		return 1
	default:
		return current
	}
}

// ConsecutiveDays counts how many consecutive calendar days ending at today
// have at least one entry, given the entry creation times.
func ConsecutiveDays(entryTimes []time.Time, today time.Time) int {
	seen := make(map[time.Time]bool, len(entryTimes))
	for _, t := range entryTimes {
		seen[StartOfDay(t)] = true
	}
	run := 0
	for day := StartOfDay(today); seen[day]; day = day.AddDate(0, 0, -1) {
		run++
	}
	return run
}

// Level derives the user's level from lifetime points: 100 points per level,
// starting at level 1.
func Level(points int) int {
	return points/100 + 1
}

// ProgressToNextLevel returns how far into the current level the user is, as
// a percentage clamped to [0, 100].
func ProgressToNextLevel(points int) float64 {
	progress := float64(points - (Level(points)-1)*100)
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}
