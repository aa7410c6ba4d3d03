package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type CommunityHandler struct {
	db *sqlx.DB
}

func NewCommunityHandler(db *sqlx.DB) *CommunityHandler {
	return &CommunityHandler{db: db}
}

type communityEntry struct {
	ID          int            `db:"id" json:"id"`
	Username    string         `db:"username" json:"username"`
	Title       string         `db:"title" json:"title"`
	Content     string         `db:"content" json:"content"`
	MoodPrimary string         `db:"mood_primary" json:"mood_primary"`
	Tags        pq.StringArray `db:"tags" json:"tags"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// Feed lists the most recent entries their authors chose to share publicly.
func (h *CommunityHandler) Feed(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 50 {
		limit = 20
	}
	entries := []communityEntry{}
	err := h.db.Select(&entries, `SELECT e.id, u.username, e.title, e.content, e.mood_primary, e.tags, e.created_at
		FROM journal_entries e JOIN users u ON u.id = e.user_id
		WHERE e.is_private = false ORDER BY e.created_at DESC LIMIT $1`, limit)
	if err != nil {
		http.Error(w, "could not fetch community feed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
