package handlers

import (
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"safespace/internal/ai"
	mw "safespace/internal/middleware"
	"safespace/internal/models"
	"safespace/internal/stats"
)

type InsightsHandler struct {
	db *sqlx.DB
	ai *ai.Dispatcher
}

func NewInsightsHandler(db *sqlx.DB, dispatcher *ai.Dispatcher) *InsightsHandler {
	return &InsightsHandler{db: db, ai: dispatcher}
}

type labelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// topCounts returns the n highest counts, breaking ties by label so the
// output is stable.
func topCounts(counts map[string]int, n int) []labelCount {
	out := make([]labelCount, 0, len(counts))
	for label, count := range counts {
		out = append(out, labelCount{Label: label, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func maxKey(counts map[string]int) string {
	best, key := 0, ""
	for k, v := range counts {
		if v > best || (v == best && (key == "" || k < key)) {
			best, key = v, k
		}
	}
	return key
}

func periodDays(r *http.Request, param string) int {
	days, _ := strconv.Atoi(r.URL.Query().Get(param))
	if days < 1 {
		days = 30
	}
	return days
}

func (h *InsightsHandler) entriesSince(userID, days int) ([]models.JournalEntry, error) {
	since := time.Now().AddDate(0, 0, -days)
	entries := []models.JournalEntry{}
	err := h.db.Select(&entries, `SELECT `+entryColumns+` FROM journal_entries
		WHERE user_id=$1 AND created_at >= $2 ORDER BY created_at DESC`, userID, since)
	return entries, err
}

func entrySummaries(entries []models.JournalEntry, limit int) []ai.EntrySummary {
	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]ai.EntrySummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, ai.EntrySummary{CreatedAt: e.CreatedAt, Content: e.Content, Mood: e.MoodPrimary})
	}
	return out
}

// Get returns the main insights view for a period: totals, sentiment
// average, activity histograms, top keywords and themes, and AI-generated
// therapeutic insights.
func (h *InsightsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	days := periodDays(r, "period")

	var user models.User
	if err := h.db.Get(&user, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID); err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	entries, err := h.entriesSince(userID, days)
	if err != nil {
		http.Error(w, "could not fetch insights", http.StatusInternalServerError)
		return
	}

	moodTrends := map[string]int{}
	entriesByDay := map[string]int{}
	entriesByHour := map[string]int{}
	keywordCounts := map[string]int{}
	themeCounts := map[string]int{}
	totalWords := 0
	sentimentSum := 0.0

	for _, e := range entries {
		moodTrends[e.MoodPrimary]++
		entriesByDay[e.CreatedAt.Format("2006-01-02")]++
		entriesByHour[strconv.Itoa(e.CreatedAt.Hour())]++
		totalWords += e.WordCount
		sentimentSum += e.SentimentScore
		for _, k := range e.Keywords {
			keywordCounts[k]++
		}
		for _, t := range e.Themes {
			themeCounts[t]++
		}
	}

	avgSentiment := 0.0
	avgWords := 0
	if len(entries) > 0 {
		avgSentiment = math.Round(sentimentSum/float64(len(entries))*100) / 100
		avgWords = totalWords / len(entries)
	}
	mostActiveHour, _ := strconv.Atoi(maxKey(entriesByHour))

	aiInsights := h.ai.GenerateInsights(r.Context(), ai.UserContext{
		Username:     user.Username,
		Streak:       user.Streak,
		TotalEntries: user.TotalEntries,
		MoodStats:    user.MoodStats,
	}, entrySummaries(entries, 10))

	writeJSON(w, http.StatusOK, map[string]any{
		"period": days,
		"overview": map[string]any{
			"total_entries":           len(entries),
			"total_words":             totalWords,
			"average_words_per_entry": avgWords,
			"average_sentiment":       avgSentiment,
			"writing_streak":          user.Streak,
		},
		"mood_trends": moodTrends,
		"patterns": map[string]any{
			"most_active_day":  maxKey(entriesByDay),
			"most_active_hour": mostActiveHour,
			"entries_by_day":   entriesByDay,
			"entries_by_hour":  entriesByHour,
		},
		"content": map[string]any{
			"top_keywords": topCounts(keywordCounts, 5),
			"top_themes":   topCounts(themeCounts, 5),
		},
		"ai_insights": aiInsights,
	})
}

type intensityPoint struct {
	Date      time.Time `json:"date"`
	Mood      string    `json:"mood"`
	Intensity int       `json:"intensity"`
}

// Mood returns mood counts for a period plus week-by-week buckets and the
// raw intensity trend.
func (h *InsightsHandler) Mood(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	days := periodDays(r, "period")

	entries, err := h.entriesSince(userID, days)
	if err != nil {
		http.Error(w, "could not fetch mood insights", http.StatusInternalServerError)
		return
	}

	moodStats := map[string]int{}
	weeklyTrends := map[string]map[string]int{}
	trend := []intensityPoint{}

	for i := len(entries) - 1; i >= 0; i-- { // oldest first
		e := entries[i]
		moodStats[e.MoodPrimary]++

		day := stats.StartOfDay(e.CreatedAt)
		weekStart := day.AddDate(0, 0, -int(day.Weekday()))
		weekKey := weekStart.Format("2006-01-02")
		if weeklyTrends[weekKey] == nil {
			weeklyTrends[weekKey] = map[string]int{
				"happy": 0, "sad": 0, "excited": 0, "calm": 0,
				"anxious": 0, "joyful": 0, "tired": 0, "neutral": 0,
			}
		}
		weeklyTrends[weekKey][e.MoodPrimary]++

		trend = append(trend, intensityPoint{Date: e.CreatedAt, Mood: e.MoodPrimary, Intensity: e.MoodIntensity})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"period":             days,
		"mood_stats":         moodStats,
		"weekly_trends":      weeklyTrends,
		"intensity_trends":   trend,
		"total_mood_entries": len(entries),
	})
}

// Patterns buckets the period's entries by weekday, hour, length, and
// reading time, and tallies tag usage.
func (h *InsightsHandler) Patterns(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	days := periodDays(r, "period")

	entries, err := h.entriesSince(userID, days)
	if err != nil {
		http.Error(w, "could not fetch writing patterns", http.StatusInternalServerError)
		return
	}

	byDayOfWeek := [7]int{}
	byHour := map[string]int{}
	byWordCount := map[string]int{"short": 0, "medium": 0, "long": 0}
	byReadingTime := map[string]int{"quick": 0, "moderate": 0, "detailed": 0}
	tagUsage := map[string]int{}

	for _, e := range entries {
		byDayOfWeek[int(e.CreatedAt.Weekday())]++
		byHour[strconv.Itoa(e.CreatedAt.Hour())]++

		switch {
		case e.WordCount < 100:
			byWordCount["short"]++
		case e.WordCount < 500:
			byWordCount["medium"]++
		default:
			byWordCount["long"]++
		}

		switch rt := e.ReadingTime(); {
		case rt < 2:
			byReadingTime["quick"]++
		case rt < 5:
			byReadingTime["moderate"]++
		default:
			byReadingTime["detailed"]++
		}

		for _, tag := range e.Tags {
			tagUsage[tag]++
		}
	}

	mostActiveDay := 0
	for i, count := range byDayOfWeek {
		if count > byDayOfWeek[mostActiveDay] {
			mostActiveDay = i
		}
	}
	mostActiveHour, _ := strconv.Atoi(maxKey(byHour))

	writeJSON(w, http.StatusOK, map[string]any{
		"period": days,
		"patterns": map[string]any{
			"by_day_of_week":  byDayOfWeek,
			"by_hour":         byHour,
			"by_word_count":   byWordCount,
			"by_reading_time": byReadingTime,
			"tag_usage":       tagUsage,
		},
		"insights": map[string]any{
			"most_active_day":  time.Weekday(mostActiveDay).String(),
			"most_active_hour": mostActiveHour,
			"top_tags":         topCounts(tagUsage, 10),
			"total_entries":    len(entries),
		},
	})
}

type monthBucket struct {
	Month        string  `json:"month"`
	Entries      int     `json:"entries"`
	Words        int     `json:"words"`
	Points       int     `json:"points"`
	AvgSentiment float64 `json:"avg_sentiment"`
}

// Progress reports lifetime journaling metrics: per-day averages, level and
// progress, a six-month rollup, and word-count growth between the ten most
// recent entries and the ten before them.
func (h *InsightsHandler) Progress(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())

	var user models.User
	if err := h.db.Get(&user, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID); err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	now := time.Now()
	totalDays := int(math.Ceil(now.Sub(user.CreatedAt).Hours() / 24))
	if totalDays < 1 {
		totalDays = 1
	}
	avgEntriesPerDay := float64(user.TotalEntries) / float64(totalDays)
	completionRate := avgEntriesPerDay * 100

	sixMonthsAgo := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -5, 0)
	rows, err := h.db.Queryx(`SELECT date_trunc('month', created_at) AS month, COUNT(*),
		COALESCE(SUM(word_count), 0), COALESCE(SUM(points_earned), 0), COALESCE(AVG(sentiment_score), 0)
		FROM journal_entries WHERE user_id=$1 AND created_at >= $2
		GROUP BY month ORDER BY month`, userID, sixMonthsAgo)
	if err != nil {
		http.Error(w, "could not fetch progress", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	byMonth := map[string]monthBucket{}
	for rows.Next() {
		var month time.Time
		var b monthBucket
		if err := rows.Scan(&month, &b.Entries, &b.Words, &b.Points, &b.AvgSentiment); err == nil {
			byMonth[month.Format("Jan 2006")] = b
		}
	}
	monthly := make([]monthBucket, 0, 6)
	for i := 5; i >= 0; i-- {
		key := now.AddDate(0, -i, 0).Format("Jan 2006")
		b := byMonth[key]
		b.Month = key
		monthly = append(monthly, b)
	}

	recentAvg, err := h.averageWords(userID, 0)
	if err != nil {
		http.Error(w, "could not fetch progress", http.StatusInternalServerError)
		return
	}
	olderAvg, err := h.averageWords(userID, 10)
	if err != nil {
		http.Error(w, "could not fetch progress", http.StatusInternalServerError)
		return
	}
	wordGrowthRate := 0.0
	if olderAvg > 0 {
		wordGrowthRate = math.Round((recentAvg-olderAvg)/olderAvg*1000) / 10
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"overview": map[string]any{
			"total_days":              totalDays,
			"average_entries_per_day": math.Round(avgEntriesPerDay*100) / 100,
			"completion_rate":         math.Round(completionRate*10) / 10,
			"current_streak":          user.Streak,
			"total_entries":           user.TotalEntries,
			"total_points":            user.Points,
			"current_level":           stats.Level(user.Points),
			"progress_to_next_level":  stats.ProgressToNextLevel(user.Points),
		},
		"monthly_progress": monthly,
		"growth": map[string]any{
			"word_growth_rate": wordGrowthRate,
			"recent_avg_words": int(math.Round(recentAvg)),
			"older_avg_words":  int(math.Round(olderAvg)),
		},
	})
}

func (h *InsightsHandler) averageWords(userID, offset int) (float64, error) {
	var avg float64
	err := h.db.Get(&avg, `SELECT COALESCE(AVG(word_count), 0) FROM (
		SELECT word_count FROM journal_entries WHERE user_id=$1
		ORDER BY created_at DESC OFFSET $2 LIMIT 10) recent`, userID, offset)
	return avg, err
}

type achievement struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func buildAchievements(totalEntries, currentStreak, totalPoints int, averagePoints float64) []achievement {
	achievements := []achievement{}
	if totalEntries >= 1 {
		achievements = append(achievements, achievement{"First Steps", "Wrote your first journal entry"})
	}
	if totalEntries >= 7 {
		achievements = append(achievements, achievement{"Week Warrior", "Completed a week of journaling"})
	}
	if currentStreak >= 7 {
		achievements = append(achievements, achievement{"Streak Master", "Maintained a 7-day writing streak"})
	}
	if currentStreak >= 30 {
		achievements = append(achievements, achievement{"Monthly Master", "Maintained a 30-day writing streak"})
	}
	if totalPoints >= 100 {
		achievements = append(achievements, achievement{"Century Club", "Earned 100 total points"})
	}
	if averagePoints >= 30 {
		achievements = append(achievements, achievement{"High Achiever", "Maintained high emotional well-being"})
	}
	return achievements
}

// Comprehensive combines the period's stats, achievements, an AI weekly
// summary, and AI insights into a single dashboard payload.
func (h *InsightsHandler) Comprehensive(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	days := periodDays(r, "days")

	var user models.User
	if err := h.db.Get(&user, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID); err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	entries, err := h.entriesSince(userID, days)
	if err != nil {
		http.Error(w, "could not fetch insights", http.StatusInternalServerError)
		return
	}

	if len(entries) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"total_entries":  0,
			"total_points":   0,
			"current_streak": 0,
			"average_points": 0,
			"mood_stats":     map[string]int{},
			"ai_insights": map[string]any{
				"emotionalPatterns": "No entries found in the selected time period.",
				"growthAreas":       "Start journaling to see your insights!",
				"recommendations":   []string{"Write your first entry today", "Set a daily journaling goal"},
			},
		})
		return
	}

	totalPoints := 0
	bestDayScore := 0
	totalWords := 0
	moodStats := map[string]int{}
	dayOfWeekCounts := map[string]int{}
	createdAts := make([]time.Time, 0, len(entries))

	for _, e := range entries {
		totalPoints += e.PointsEarned
		if e.PointsEarned > bestDayScore {
			bestDayScore = e.PointsEarned
		}
		totalWords += e.WordCount
		moodStats[e.MoodPrimary]++
		dayOfWeekCounts[e.CreatedAt.Weekday().String()]++
		createdAts = append(createdAts, e.CreatedAt)
	}

	averagePoints := float64(totalPoints) / float64(len(entries))
	currentStreak := stats.ConsecutiveDays(createdAts, time.Now())
	completionRate := float64(currentStreak) / float64(days) * 100

	// Last seven entries' points, oldest first.
	trendEntries := entries
	if len(trendEntries) > 7 {
		trendEntries = trendEntries[:7]
	}
	pointsTrend := make([]int, len(trendEntries))
	for i, e := range trendEntries {
		pointsTrend[len(trendEntries)-1-i] = e.PointsEarned
	}

	uc := ai.UserContext{
		Username:     user.Username,
		Streak:       user.Streak,
		TotalEntries: user.TotalEntries,
		MoodStats:    user.MoodStats,
	}
	weeklySummary := h.ai.GenerateWeeklySummary(r.Context(), entrySummaries(entries, 7))
	aiInsights := h.ai.GenerateInsights(r.Context(), uc, entrySummaries(entries, 10))

	writeJSON(w, http.StatusOK, map[string]any{
		"total_entries":           len(entries),
		"total_points":            totalPoints,
		"current_streak":          currentStreak,
		"average_points":          math.Round(averagePoints*100) / 100,
		"mood_stats":              moodStats,
		"most_active_day":         maxKey(dayOfWeekCounts),
		"average_words_per_entry": totalWords / len(entries),
		"completion_rate":         math.Round(completionRate),
		"best_day_score":          bestDayScore,
		"points_trend":            pointsTrend,
		"achievements":            buildAchievements(len(entries), currentStreak, totalPoints, averagePoints),
		"weekly_summary":          weeklySummary,
		"ai_insights":             aiInsights,
	})
}
