package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	mw "safespace/internal/middleware"
	"safespace/internal/models"
)

type AffirmationHandler struct {
	db *sqlx.DB
}

func NewAffirmationHandler(db *sqlx.DB) *AffirmationHandler {
	return &AffirmationHandler{db: db}
}

type affirmationRequest struct {
	Text string `json:"text"`
}

func (req *affirmationRequest) validate() string {
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return "text is required"
	}
	if len(req.Text) > 200 {
		return "text must be 200 characters or fewer"
	}
	return ""
}

func (h *AffirmationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	affirmations := []models.Affirmation{}
	err := h.db.Select(&affirmations, `SELECT * FROM affirmations WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		http.Error(w, "could not fetch affirmations", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"affirmations": affirmations})
}

func (h *AffirmationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	var req affirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	var affirmation models.Affirmation
	err := h.db.QueryRowx(`INSERT INTO affirmations (user_id, text) VALUES ($1, $2) RETURNING *`,
		userID, req.Text).StructScan(&affirmation)
	if err != nil {
		http.Error(w, "could not create affirmation", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, affirmation)
}

func (h *AffirmationHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req affirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	var affirmation models.Affirmation
	err = h.db.QueryRowx(`UPDATE affirmations SET text=$1, updated_at=NOW()
		WHERE id=$2 AND user_id=$3 RETURNING *`, req.Text, id, userID).StructScan(&affirmation)
	if err == sql.ErrNoRows {
		http.Error(w, "affirmation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "could not update affirmation", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, affirmation)
}

func (h *AffirmationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	res, err := h.db.Exec(`DELETE FROM affirmations WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		http.Error(w, "could not delete affirmation", http.StatusInternalServerError)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		http.Error(w, "affirmation not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
