package stats

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

const (
	applyEntrySQL      = "UPDATE users SET total_entries = total_entries + 1, points = points + $2 WHERE id = $1 RETURNING points"
	applyHappyEntrySQL = "UPDATE users SET total_entries = total_entries + 1, points = points + $2, mood_happy = mood_happy + 1 WHERE id = $1 RETURNING points"
	revisePointsSQL    = "UPDATE users SET points = GREATEST(points - $2 + $3, 0) WHERE id = $1"
	removeEntrySQL     = "UPDATE users SET total_entries = GREATEST(total_entries - 1, 0), points = GREATEST(points - $2, 0) WHERE id = $1"
	selectStreakSQL    = "SELECT streak, last_active FROM users WHERE id = $1"
	updateStreakSQL    = "UPDATE users SET streak = $2, last_active = $3 WHERE id = $1"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("opening sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestApplyNewEntryCreditsCountersAndMood(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(applyHappyEntrySQL).
		WithArgs(1, 15).
		WillReturnRows(sqlmock.NewRows([]string{"points"}).AddRow(105))

	points, err := ApplyNewEntry(context.Background(), db, 1, "happy", 15)
	if err != nil {
		t.Fatalf("ApplyNewEntry: %v", err)
	}
	if points != 105 {
		t.Errorf("points = %d, want 105", points)
	}
	expectationsMet(t, mock)
}

func TestApplyNewEntrySkipsUnknownMoodCounter(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(applyEntrySQL).
		WithArgs(1, 10).
		WillReturnRows(sqlmock.NewRows([]string{"points"}).AddRow(10))

	if _, err := ApplyNewEntry(context.Background(), db, 1, "neutral", 10); err != nil {
		t.Fatalf("ApplyNewEntry: %v", err)
	}
	expectationsMet(t, mock)
}

func TestApplyNewEntryAccumulatesAcrossEntries(t *testing.T) {
	db, mock := newMockDB(t)
	awards := []int{10, 25, 40}
	running := 0
	for _, p := range awards {
		running += p
		mock.ExpectQuery(applyEntrySQL).
			WithArgs(1, p).
			WillReturnRows(sqlmock.NewRows([]string{"points"}).AddRow(running))
	}

	total := 0
	for _, p := range awards {
		got, err := ApplyNewEntry(context.Background(), db, 1, "neutral", p)
		if err != nil {
			t.Fatalf("ApplyNewEntry(%d): %v", p, err)
		}
		total = got
	}
	if total != 75 {
		t.Errorf("points after all entries = %d, want 75", total)
	}
	expectationsMet(t, mock)
}

func TestReviseEntryPointsClampsInSQL(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(revisePointsSQL).
		WithArgs(1, 40, 25).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(revisePointsSQL).
		WithArgs(1, 25, 40).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// A revision and its inverse issue symmetric swaps; the floor lives in
	// the statement itself so it holds under concurrent updates too.
	if err := ReviseEntryPoints(context.Background(), db, 1, 40, 25); err != nil {
		t.Fatalf("ReviseEntryPoints: %v", err)
	}
	if err := ReviseEntryPoints(context.Background(), db, 1, 25, 40); err != nil {
		t.Fatalf("ReviseEntryPoints inverse: %v", err)
	}
	expectationsMet(t, mock)
}

func TestRemoveEntryFloorsBothCounters(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(removeEntrySQL).
		WithArgs(1, 20).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := RemoveEntry(context.Background(), db, 1, 20); err != nil {
		t.Fatalf("RemoveEntry: %v", err)
	}
	expectationsMet(t, mock)
}

func TestEvaluateStreakNextDayIncrements(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	mock.ExpectQuery(selectStreakSQL).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"streak", "last_active"}).AddRow(3, yesterday))
	mock.ExpectExec(updateStreakSQL).
		WithArgs(1, 4, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	streak, err := EvaluateStreak(context.Background(), db, 1, now)
	if err != nil {
		t.Fatalf("EvaluateStreak: %v", err)
	}
	if streak != 4 {
		t.Errorf("streak = %d, want 4", streak)
	}
	expectationsMet(t, mock)
}

func TestEvaluateStreakSameDayStillRecordsActivity(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC)
	earlier := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(selectStreakSQL).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"streak", "last_active"}).AddRow(5, earlier))
	mock.ExpectExec(updateStreakSQL).
		WithArgs(1, 5, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	streak, err := EvaluateStreak(context.Background(), db, 1, now)
	if err != nil {
		t.Fatalf("EvaluateStreak: %v", err)
	}
	if streak != 5 {
		t.Errorf("streak = %d, want 5", streak)
	}
	expectationsMet(t, mock)
}

func TestEvaluateStreakFirstActivity(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(selectStreakSQL).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"streak", "last_active"}).AddRow(0, nil))
	mock.ExpectExec(updateStreakSQL).
		WithArgs(1, 1, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	streak, err := EvaluateStreak(context.Background(), db, 1, now)
	if err != nil {
		t.Fatalf("EvaluateStreak: %v", err)
	}
	if streak != 1 {
		t.Errorf("streak = %d, want 1", streak)
	}
	expectationsMet(t, mock)
}

func TestNewEntryCreditsPointsMoodAndStreak(t *testing.T) {
	// User at 90 points with a 3-day streak last active yesterday submits a
	// happy entry worth 15 points today: 105 points, streak 4.
	db, mock := newMockDB(t)
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)

	mock.ExpectQuery(applyHappyEntrySQL).
		WithArgs(7, 15).
		WillReturnRows(sqlmock.NewRows([]string{"points"}).AddRow(105))
	mock.ExpectQuery(selectStreakSQL).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"streak", "last_active"}).AddRow(3, yesterday))
	mock.ExpectExec(updateStreakSQL).
		WithArgs(7, 4, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	points, err := ApplyNewEntry(context.Background(), db, 7, "happy", 15)
	if err != nil {
		t.Fatalf("ApplyNewEntry: %v", err)
	}
	if points != 105 {
		t.Errorf("points = %d, want 105", points)
	}
	streak, err := EvaluateStreak(context.Background(), db, 7, now)
	if err != nil {
		t.Fatalf("EvaluateStreak: %v", err)
	}
	if streak != 4 {
		t.Errorf("streak = %d, want 4", streak)
	}
	expectationsMet(t, mock)
}
