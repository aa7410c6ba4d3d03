package handlers

import (
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	mw "safespace/internal/middleware"
)

type AdminHandler struct {
	db *sqlx.DB
}

func NewAdminHandler(db *sqlx.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

func (h *AdminHandler) mustBeAdmin(w http.ResponseWriter, r *http.Request) bool {
	userID := mw.UserID(r.Context())
	var isAdmin bool
	if err := h.db.Get(&isAdmin, `SELECT is_admin FROM users WHERE id=$1`, userID); err != nil || !isAdmin {
		http.Error(w, "admin access required", http.StatusForbidden)
		return false
	}
	return true
}

// Overview reports platform-wide counts for the admin dashboard.
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	if !h.mustBeAdmin(w, r) {
		return
	}

	now := time.Now()
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, -1, 0)

	var totalUsers, totalEntries, activeUsersWeek, entriesWeek, entriesMonth int
	queries := []struct {
		dest  *int
		query string
		args  []any
	}{
		{&totalUsers, `SELECT COUNT(*) FROM users`, nil},
		{&totalEntries, `SELECT COUNT(*) FROM journal_entries`, nil},
		{&activeUsersWeek, `SELECT COUNT(*) FROM users WHERE last_active >= $1`, []any{weekAgo}},
		{&entriesWeek, `SELECT COUNT(*) FROM journal_entries WHERE created_at >= $1`, []any{weekAgo}},
		{&entriesMonth, `SELECT COUNT(*) FROM journal_entries WHERE created_at >= $1`, []any{monthAgo}},
	}
	for _, q := range queries {
		if err := h.db.Get(q.dest, q.query, q.args...); err != nil {
			http.Error(w, "could not fetch admin overview", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_users":       totalUsers,
		"total_entries":     totalEntries,
		"active_users_week": activeUsersWeek,
		"entries_this_week": entriesWeek,
		"entries_this_month": entriesMonth,
	})
}
