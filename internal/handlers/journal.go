package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"safespace/internal/ai"
	mw "safespace/internal/middleware"
	"safespace/internal/models"
	"safespace/internal/stats"
)

type JournalHandler struct {
	db *sqlx.DB
	ai *ai.Dispatcher
}

func NewJournalHandler(db *sqlx.DB, dispatcher *ai.Dispatcher) *JournalHandler {
	return &JournalHandler{db: db, ai: dispatcher}
}

const entryColumns = `id, user_id, title, content, mood_primary, mood_intensity, tags, is_private, is_favorite,
	word_count, sentiment, sentiment_score, keywords, themes, suggestions, points_earned, created_at, updated_at`

type entryMood struct {
	Primary   string `json:"primary"`
	Intensity int    `json:"intensity"`
}

type entryRequest struct {
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Mood      entryMood `json:"mood"`
	Tags      []string  `json:"tags"`
	IsPrivate *bool     `json:"is_private"`
}

// validate normalizes the request in place and returns a client-facing
// message when it is malformed.
func (req *entryRequest) validate() string {
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	if len(req.Title) < 1 || len(req.Title) > 100 {
		return "title must be between 1 and 100 characters"
	}
	if len(req.Content) < 1 || len(req.Content) > 10000 {
		return "content must be between 1 and 10000 characters"
	}
	if !models.ValidMood(req.Mood.Primary) {
		return "invalid primary mood"
	}
	if req.Mood.Intensity == 0 {
		req.Mood.Intensity = 5
	}
	if req.Mood.Intensity < 1 || req.Mood.Intensity > 10 {
		return "mood intensity must be between 1 and 10"
	}
	return ""
}

func toArray(xs []string) pq.StringArray {
	if xs == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(xs)
}

func clampIntensity(v, fallback int) int {
	if v < 1 || v > 10 {
		return fallback
	}
	return v
}

// applyDetectedMood lets the analyzer's verdict override the submitted mood,
// as long as it names a known label.
func applyDetectedMood(mood entryMood, analysis ai.Analysis) entryMood {
	if analysis.PrimaryMood != "" && models.ValidMood(analysis.PrimaryMood) {
		mood.Primary = analysis.PrimaryMood
	}
	if analysis.MoodIntensity != 0 {
		mood.Intensity = clampIntensity(analysis.MoodIntensity, mood.Intensity)
	}
	return mood
}

func (h *JournalHandler) userContext(user models.User) ai.UserContext {
	return ai.UserContext{
		Username:     user.Username,
		Streak:       user.Streak,
		TotalEntries: user.TotalEntries,
		MoodStats:    user.MoodStats,
	}
}

// Create analyzes the submitted entry, stores it, and credits the owner's
// counters and streak in one transaction. The AI call happens before the
// transaction opens: even under total external failure it yields a default
// analysis, so the journaling flow never blocks on the external service.
func (h *JournalHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())

	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	var user models.User
	if err := h.db.Get(&user, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID); err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	analysis := h.ai.AnalyzeEntry(r.Context(), req.Content, h.userContext(user))
	mood := applyDetectedMood(req.Mood, analysis)

	isPrivate := true
	if req.IsPrivate != nil {
		isPrivate = *req.IsPrivate
	}
	sentiment := analysis.Sentiment
	if sentiment == "" {
		sentiment = "neutral"
	}
	now := time.Now()

	tx, err := h.db.Beginx()
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	var entry models.JournalEntry
	err = tx.QueryRowx(`INSERT INTO journal_entries
		(user_id, title, content, mood_primary, mood_intensity, tags, is_private, word_count,
		 sentiment, sentiment_score, keywords, themes, suggestions, points_earned)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+entryColumns,
		userID, req.Title, req.Content, mood.Primary, mood.Intensity, toArray(req.Tags), isPrivate,
		models.CountWords(req.Content), sentiment, analysis.SentimentScore,
		toArray(analysis.Keywords), toArray(analysis.Themes), toArray(analysis.Suggestions),
		analysis.PointsEarned).StructScan(&entry)
	if err != nil {
		http.Error(w, "could not save entry", http.StatusInternalServerError)
		return
	}

	totalPoints, err := stats.ApplyNewEntry(r.Context(), tx, userID, entry.MoodPrimary, entry.PointsEarned)
	if err != nil {
		http.Error(w, "could not update stats", http.StatusInternalServerError)
		return
	}
	streak, err := stats.EvaluateStreak(r.Context(), tx, userID, now)
	if err != nil {
		http.Error(w, "could not update streak", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(); err != nil {
		http.Error(w, "could not save entry", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"entry":          entry,
		"points_earned":  entry.PointsEarned,
		"total_points":   totalPoints,
		"current_streak": streak,
		"encouragement":  analysis.Encouragement,
	})
}

type pagination struct {
	Current int  `json:"current"`
	Total   int  `json:"total"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// List returns the caller's entries with optional mood/privacy/favorite
// filters, a case-insensitive search over title, content, and tags, and
// whitelisted sorting.
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	q := r.URL.Query()

	where := "WHERE user_id=$1"
	args := []interface{}{userID}

	if mood := q.Get("mood"); mood != "" {
		if !models.ValidMood(mood) {
			http.Error(w, "invalid mood filter", http.StatusBadRequest)
			return
		}
		args = append(args, mood)
		where += fmt.Sprintf(" AND mood_primary=$%d", len(args))
	}
	if v := q.Get("is_private"); v != "" {
		args = append(args, v == "true")
		where += fmt.Sprintf(" AND is_private=$%d", len(args))
	}
	if v := q.Get("is_favorite"); v != "" {
		args = append(args, v == "true")
		where += fmt.Sprintf(" AND is_favorite=$%d", len(args))
	}
	if search := q.Get("search"); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		where += fmt.Sprintf(` AND (title ILIKE $%d OR content ILIKE $%d OR EXISTS (
			SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE $%d))`, n, n, n)
	}

	orderCol := "created_at"
	switch q.Get("sort_by") {
	case "alphabet":
		orderCol = "title"
	case "points":
		orderCol = "points_earned"
	}
	direction := "DESC"
	if q.Get("sort_order") == "asc" {
		direction = "ASC"
	}

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	var total int
	if err := h.db.Get(&total, "SELECT COUNT(*) FROM journal_entries "+where, args...); err != nil {
		http.Error(w, "could not fetch entries", http.StatusInternalServerError)
		return
	}

	query := fmt.Sprintf("SELECT %s FROM journal_entries %s ORDER BY %s %s LIMIT %d OFFSET %d",
		entryColumns, where, orderCol, direction, limit, offset)
	entries := []models.JournalEntry{}
	if err := h.db.Select(&entries, query, args...); err != nil {
		http.Error(w, "could not fetch entries", http.StatusInternalServerError)
		return
	}

	totalPages := (total + limit - 1) / limit
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"pagination": pagination{
			Current: page,
			Total:   totalPages,
			HasNext: offset+len(entries) < total,
			HasPrev: page > 1,
		},
	})
}

func (h *JournalHandler) getOwnedEntry(r *http.Request) (*models.JournalEntry, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return nil, sql.ErrNoRows
	}
	var entry models.JournalEntry
	err = h.db.Get(&entry, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1 AND user_id=$2`,
		id, mw.UserID(r.Context()))
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (h *JournalHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.getOwnedEntry(r)
	if err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entry": entry})
}

// Update rewrites an entry within its same-day edit window. A content change
// re-runs the analysis and swaps the old point award for the new one.
func (h *JournalHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	entry, err := h.getOwnedEntry(r)
	if err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if !entry.EditableOn(time.Now()) {
		http.Error(w, "you can only edit entries from today", http.StatusForbidden)
		return
	}

	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	isPrivate := entry.IsPrivate
	if req.IsPrivate != nil {
		isPrivate = *req.IsPrivate
	}

	contentChanged := req.Content != entry.Content
	if !contentChanged {
		err = h.db.QueryRowx(`UPDATE journal_entries
			SET title=$3, mood_primary=$4, mood_intensity=$5, tags=$6, is_private=$7, updated_at=NOW()
			WHERE id=$1 AND user_id=$2 RETURNING `+entryColumns,
			entry.ID, userID, req.Title, req.Mood.Primary, req.Mood.Intensity,
			toArray(req.Tags), isPrivate).StructScan(entry)
		if err != nil {
			http.Error(w, "could not update entry", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"entry": entry})
		return
	}

	var user models.User
	if err := h.db.Get(&user, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID); err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	analysis := h.ai.AnalyzeEntry(r.Context(), req.Content, h.userContext(user))
	mood := applyDetectedMood(req.Mood, analysis)
	sentiment := analysis.Sentiment
	if sentiment == "" {
		sentiment = "neutral"
	}
	oldPoints := entry.PointsEarned

	tx, err := h.db.Beginx()
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	err = tx.QueryRowx(`UPDATE journal_entries
		SET title=$3, content=$4, mood_primary=$5, mood_intensity=$6, tags=$7, is_private=$8,
		    word_count=$9, sentiment=$10, sentiment_score=$11, keywords=$12, themes=$13,
		    suggestions=$14, points_earned=$15, updated_at=NOW()
		WHERE id=$1 AND user_id=$2 RETURNING `+entryColumns,
		entry.ID, userID, req.Title, req.Content, mood.Primary, mood.Intensity,
		toArray(req.Tags), isPrivate, models.CountWords(req.Content), sentiment,
		analysis.SentimentScore, toArray(analysis.Keywords), toArray(analysis.Themes),
		toArray(analysis.Suggestions), analysis.PointsEarned).StructScan(entry)
	if err != nil {
		http.Error(w, "could not update entry", http.StatusInternalServerError)
		return
	}
	if err := stats.ReviseEntryPoints(r.Context(), tx, userID, oldPoints, analysis.PointsEarned); err != nil {
		http.Error(w, "could not update stats", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(); err != nil {
		http.Error(w, "could not update entry", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entry": entry})
}

// Delete removes an entry within its same-day window and reverses its
// contribution to the owner's counters.
func (h *JournalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	entry, err := h.getOwnedEntry(r)
	if err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if !entry.EditableOn(time.Now()) {
		http.Error(w, "you can only delete entries from today", http.StatusForbidden)
		return
	}

	tx, err := h.db.Beginx()
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM journal_entries WHERE id=$1 AND user_id=$2`, entry.ID, userID); err != nil {
		http.Error(w, "could not delete entry", http.StatusInternalServerError)
		return
	}
	if err := stats.RemoveEntry(r.Context(), tx, userID, entry.PointsEarned); err != nil {
		http.Error(w, "could not update stats", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(); err != nil {
		http.Error(w, "could not delete entry", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *JournalHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "entry not found", http.StatusNotFound)
		return
	}
	var isFavorite bool
	err = h.db.QueryRowx(`UPDATE journal_entries SET is_favorite = NOT is_favorite, updated_at=NOW()
		WHERE id=$1 AND user_id=$2 RETURNING is_favorite`, id, mw.UserID(r.Context())).Scan(&isFavorite)
	if err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		http.Error(w, "could not update favorite status", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"is_favorite": isFavorite})
}

// StatsOverview summarizes the caller's journal: mood histogram over the
// requested window, current writing streak from entry dates, and word totals.
func (h *JournalHandler) StatsOverview(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days < 1 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	rows, err := h.db.Queryx(`SELECT mood_primary, COUNT(*) FROM journal_entries
		WHERE user_id=$1 AND created_at >= $2 GROUP BY mood_primary`, userID, since)
	if err != nil {
		http.Error(w, "could not fetch statistics", http.StatusInternalServerError)
		return
	}
	defer rows.Close()
	moodStats := map[string]int{}
	for rows.Next() {
		var mood string
		var count int
		if err := rows.Scan(&mood, &count); err == nil {
			moodStats[mood] = count
		}
	}

	var createdAts []time.Time
	if err := h.db.Select(&createdAts, `SELECT created_at FROM journal_entries WHERE user_id=$1`, userID); err != nil {
		http.Error(w, "could not fetch statistics", http.StatusInternalServerError)
		return
	}

	var totalEntries, totalWords, favoriteEntries int
	if err := h.db.QueryRowx(`SELECT COUNT(*), COALESCE(SUM(word_count), 0),
		COUNT(*) FILTER (WHERE is_favorite) FROM journal_entries WHERE user_id=$1`, userID).
		Scan(&totalEntries, &totalWords, &favoriteEntries); err != nil {
		http.Error(w, "could not fetch statistics", http.StatusInternalServerError)
		return
	}

	avgWords := 0
	if totalEntries > 0 {
		avgWords = totalWords / totalEntries
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"mood_stats":              moodStats,
		"writing_streak":          stats.ConsecutiveDays(createdAts, time.Now()),
		"total_entries":           totalEntries,
		"total_words":             totalWords,
		"favorite_entries":        favoriteEntries,
		"average_words_per_entry": avgWords,
	})
}
