package stats

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// moodColumns maps mood labels to their counter column. Labels outside the
// map (such as "neutral") carry no counter and are silently skipped.
var moodColumns = map[string]string{
	"happy":   "mood_happy",
	"sad":     "mood_sad",
	"excited": "mood_excited",
	"calm":    "mood_calm",
	"anxious": "mood_anxious",
	"joyful":  "mood_joyful",
	"tired":   "mood_tired",
}

// MoodColumn returns the users-table counter column for a mood label.
func MoodColumn(label string) (string, bool) {
	col, ok := moodColumns[label]
	return col, ok
}

// All counter mutations below are issued as field-level atomic increments
// keyed by user id, so concurrent requests cannot lose updates the way a
// whole-record read-modify-write would. Callers pass their own transaction
// when the counter change must commit together with an entry mutation.

// ApplyNewEntry credits a freshly created entry to its owner: one more
// entry, the earned points, and one occurrence of the entry's mood. Returns
// the owner's points balance after the credit so callers can report the
// stored value rather than recompute it from a stale read.
func ApplyNewEntry(ctx context.Context, q sqlx.ExtContext, userID int, moodLabel string, pointsEarned int) (int, error) {
	set := "total_entries = total_entries + 1, points = points + $2"
	if col, ok := MoodColumn(moodLabel); ok {
		set += ", " + col + " = " + col + " + 1"
	}
	var points int
	err := sqlx.GetContext(ctx, q, &points,
		"UPDATE users SET "+set+" WHERE id = $1 RETURNING points", userID, pointsEarned)
	return points, err
}

// ReviseEntryPoints swaps an entry's previous point award for a new one.
// The balance is floored at zero even if the old award exceeds it.
func ReviseEntryPoints(ctx context.Context, q sqlx.ExtContext, userID, oldPoints, newPoints int) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET points = GREATEST(points - $2 + $3, 0) WHERE id = $1`,
		userID, oldPoints, newPoints)
	return err
}

// RemoveEntry reverses an entry's contribution to the owner's counters,
// flooring both the entry count and points at zero.
func RemoveEntry(ctx context.Context, q sqlx.ExtContext, userID, pointsEarned int) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET total_entries = GREATEST(total_entries - 1, 0), points = GREATEST(points - $2, 0) WHERE id = $1`,
		userID, pointsEarned)
	return err
}

// EvaluateStreak runs the streak transition for a streak-eligible touch at
// now and records now as the last active instant regardless of the branch
// taken. Returns the streak value after the transition.
func EvaluateStreak(ctx context.Context, q sqlx.ExtContext, userID int, now time.Time) (int, error) {
	var cur struct {
		Streak     int        `db:"streak"`
		LastActive *time.Time `db:"last_active"`
	}
	row := q.QueryRowxContext(ctx, `SELECT streak, last_active FROM users WHERE id = $1`, userID)
	if err := row.StructScan(&cur); err != nil {
		return 0, err
	}
	next := NextStreak(cur.Streak, cur.LastActive, now)
	if _, err := q.ExecContext(ctx,
		`UPDATE users SET streak = $2, last_active = $3 WHERE id = $1`,
		userID, next, now); err != nil {
		return 0, err
	}
	return next, nil
}
