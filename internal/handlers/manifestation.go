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

type ManifestationHandler struct {
	db *sqlx.DB
}

func NewManifestationHandler(db *sqlx.DB) *ManifestationHandler {
	return &ManifestationHandler{db: db}
}

type manifestationRequest struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Priority string `json:"priority"`
}

func (req *manifestationRequest) validate() string {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return "title is required"
	}
	if len(req.Title) > 300 {
		return "title must be 300 characters or fewer"
	}
	if req.Category == "" {
		req.Category = "personal"
	}
	if !models.ValidManifestationCategory(req.Category) {
		return "invalid category"
	}
	if req.Priority == "" {
		req.Priority = "medium"
	}
	if !models.ValidPriority(req.Priority) {
		return "invalid priority"
	}
	return ""
}

func (h *ManifestationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	manifestations := []models.Manifestation{}
	err := h.db.Select(&manifestations, `SELECT * FROM manifestations
		WHERE user_id=$1 ORDER BY fulfilled ASC, created_at DESC`, userID)
	if err != nil {
		http.Error(w, "could not fetch manifestations", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"manifestations": manifestations})
}

func (h *ManifestationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	var req manifestationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	var m models.Manifestation
	err := h.db.QueryRowx(`INSERT INTO manifestations (user_id, title, category, priority)
		VALUES ($1, $2, $3, $4) RETURNING *`, userID, req.Title, req.Category, req.Priority).StructScan(&m)
	if err != nil {
		http.Error(w, "could not create manifestation", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

type manifestationUpdateRequest struct {
	Title     *string `json:"title"`
	Category  *string `json:"category"`
	Priority  *string `json:"priority"`
	Fulfilled *bool   `json:"fulfilled"`
}

func (h *ManifestationHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req manifestationUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	sets := []string{"updated_at=NOW()"}
	args := []any{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" || len(title) > 300 {
			http.Error(w, "title must be between 1 and 300 characters", http.StatusBadRequest)
			return
		}
		args = append(args, title)
		sets = append(sets, "title=$"+strconv.Itoa(len(args)))
	}
	if req.Category != nil {
		if !models.ValidManifestationCategory(*req.Category) {
			http.Error(w, "invalid category", http.StatusBadRequest)
			return
		}
		args = append(args, *req.Category)
		sets = append(sets, "category=$"+strconv.Itoa(len(args)))
	}
	if req.Priority != nil {
		if !models.ValidPriority(*req.Priority) {
			http.Error(w, "invalid priority", http.StatusBadRequest)
			return
		}
		args = append(args, *req.Priority)
		sets = append(sets, "priority=$"+strconv.Itoa(len(args)))
	}
	if req.Fulfilled != nil {
		args = append(args, *req.Fulfilled)
		sets = append(sets, "fulfilled=$"+strconv.Itoa(len(args)))
		// Marking fulfilled stamps the date; unmarking clears it.
		if *req.Fulfilled {
			sets = append(sets, "fulfilled_date=NOW()")
		} else {
			sets = append(sets, "fulfilled_date=NULL")
		}
	}

	args = append(args, id, userID)
	var m models.Manifestation
	err = h.db.QueryRowx(`UPDATE manifestations SET `+strings.Join(sets, ", ")+
		` WHERE id=$`+strconv.Itoa(len(args)-1)+` AND user_id=$`+strconv.Itoa(len(args))+
		` RETURNING *`, args...).StructScan(&m)
	if err == sql.ErrNoRows {
		http.Error(w, "manifestation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "could not update manifestation", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *ManifestationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	res, err := h.db.Exec(`DELETE FROM manifestations WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		http.Error(w, "could not delete manifestation", http.StatusInternalServerError)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		http.Error(w, "manifestation not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
