package skills

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/skillsvault/backend/internal/httpx"
	"github.com/skillsvault/backend/internal/middleware"
	"github.com/skillsvault/backend/internal/models"
	"github.com/skillsvault/backend/internal/validation"
)

type CreateSkillRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// UpdateSkillRequest is a partial update; absent fields are left alone.
type UpdateSkillRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
}

type Handler struct {
	svc       Service
	validator *validation.Validator
	log       *slog.Logger
}

func NewHandler(svc Service, validator *validation.Validator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, validator: validator, log: log}
}

// POST /api/v1/skills
func (h *Handler) CreateSkill(w http.ResponseWriter, r *http.Request) {
	var req CreateSkillRequest
	if err := h.validator.DecodeRequest(r, validation.CreateSkill, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	sk, err := h.svc.CreateSkill(r.Context(), middleware.UserIDFromCtx(r.Context()), req.Title, req.Description, req.Category)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, sk)
}

// GET /api/v1/skills[?user_id=]
func (h *Handler) ListSkills(w http.ResponseWriter, r *http.Request) {
	owner := uuid.Nil
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		owner = id
	}
	list, err := h.svc.ListSkills(r.Context(), owner)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	if list == nil {
		list = []*models.Skill{}
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

// GET /api/v1/skills/{id}
func (h *Handler) GetSkill(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathUUID(r, "id")
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid skill id")
		return
	}
	sk, err := h.svc.GetSkill(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sk)
}

// PUT /api/v1/skills/{id}
func (h *Handler) UpdateSkill(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathUUID(r, "id")
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid skill id")
		return
	}
	var req UpdateSkillRequest
	if err := h.validator.DecodeRequest(r, validation.UpdateSkill, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	patch := SkillPatch{Title: req.Title, Description: req.Description, Category: req.Category}
	sk, err := h.svc.UpdateSkill(r.Context(), middleware.UserIDFromCtx(r.Context()), id, patch)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sk)
}

// DELETE /api/v1/skills/{id}
func (h *Handler) DeleteSkill(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathUUID(r, "id")
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid skill id")
		return
	}
	if err := h.svc.DeleteSkill(r.Context(), middleware.UserIDFromCtx(r.Context()), id); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
