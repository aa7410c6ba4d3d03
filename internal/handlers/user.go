package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	mw "safespace/internal/middleware"
	"safespace/internal/models"
	"safespace/internal/stats"
)

type UserHandler struct {
	db *sqlx.DB
}

func NewUserHandler(db *sqlx.DB) *UserHandler {
	return &UserHandler{db: db}
}

func motivationalQuote(streak, points int) string {
	switch {
	case streak >= 30:
		return "A month of showing up for yourself. That is real strength. 🌟"
	case streak >= 7:
		return "A full week of reflection. Keep the momentum going! 🔥"
	case points >= 500:
		return "Your dedication to self-care is inspiring. Keep growing! 🌱"
	case points >= 100:
		return "Every entry is a step toward understanding yourself better. 💜"
	default:
		return "The journey of a thousand miles begins with a single entry. ✨"
	}
}

// Dashboard aggregates the signed-in user's headline stats, emotion
// distribution, a one-year activity heatmap, and their five most recent
// entries.
func (h *UserHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())

	var user models.User
	if err := h.db.Get(&user, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID); err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	yearAgo := time.Now().AddDate(-1, 0, 0)
	rows, err := h.db.Queryx(`SELECT created_at::date, COUNT(*) FROM journal_entries
		WHERE user_id=$1 AND created_at >= $2 GROUP BY created_at::date`, userID, yearAgo)
	if err != nil {
		http.Error(w, "could not fetch dashboard", http.StatusInternalServerError)
		return
	}
	defer rows.Close()
	heatmap := map[string]int{}
	for rows.Next() {
		var day time.Time
		var count int
		if err := rows.Scan(&day, &count); err == nil {
			heatmap[day.Format("2006-01-02")] = count
		}
	}

	recent := []models.JournalEntry{}
	if err := h.db.Select(&recent, `SELECT `+entryColumns+` FROM journal_entries
		WHERE user_id=$1 ORDER BY created_at DESC LIMIT 5`, userID); err != nil {
		http.Error(w, "could not fetch dashboard", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": user,
		"stats": map[string]any{
			"points":                 user.Points,
			"streak":                 user.Streak,
			"total_entries":          user.TotalEntries,
			"level":                  stats.Level(user.Points),
			"progress_to_next_level": stats.ProgressToNextLevel(user.Points),
			"most_common_mood":       user.MostCommon(),
		},
		"emotion_distribution": user.Labels(),
		"activity_heatmap":     heatmap,
		"recent_entries":       recent,
		"motivational_quote":   motivationalQuote(user.Streak, user.Points),
	})
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	var user models.User
	if err := h.db.Get(&user, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID); err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type profileUpdateRequest struct {
	Bio   *string `json:"bio"`
	Email *string `json:"email"`
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	var req profileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	sets := []string{}
	args := []any{}
	if req.Bio != nil {
		bio := strings.TrimSpace(*req.Bio)
		if len(bio) > 500 {
			http.Error(w, "bio must be 500 characters or fewer", http.StatusBadRequest)
			return
		}
		args = append(args, bio)
		sets = append(sets, "bio=$"+strconv.Itoa(len(args)))
	}
	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if email == "" || !strings.Contains(email, "@") {
			http.Error(w, "valid email required", http.StatusBadRequest)
			return
		}
		args = append(args, email)
		sets = append(sets, "email=$"+strconv.Itoa(len(args)))
	}
	if len(sets) == 0 {
		http.Error(w, "nothing to update", http.StatusBadRequest)
		return
	}

	args = append(args, userID)
	var user models.User
	err := h.db.QueryRowx(`UPDATE users SET `+strings.Join(sets, ", ")+
		` WHERE id=$`+strconv.Itoa(len(args))+` RETURNING `+userColumns, args...).StructScan(&user)
	if err != nil {
		http.Error(w, "could not update profile", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type leaderboardRow struct {
	Username     string `db:"username" json:"username"`
	Points       int    `db:"points" json:"points"`
	Streak       int    `db:"streak" json:"streak"`
	TotalEntries int    `db:"total_entries" json:"total_entries"`
	Rank         int    `json:"rank"`
	Level        int    `json:"level"`
}

func (h *UserHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 10
	}
	rows := []leaderboardRow{}
	err := h.db.Select(&rows, `SELECT username, points, streak, total_entries FROM users
		ORDER BY points DESC, username ASC LIMIT $1`, limit)
	if err != nil {
		http.Error(w, "could not fetch leaderboard", http.StatusInternalServerError)
		return
	}
	for i := range rows {
		rows[i].Rank = i + 1
		rows[i].Level = stats.Level(rows[i].Points)
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": rows})
}
