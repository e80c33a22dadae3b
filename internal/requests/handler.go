package requests

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/skillsvault/backend/internal/httpx"
	"github.com/skillsvault/backend/internal/ledger"
	"github.com/skillsvault/backend/internal/middleware"
	"github.com/skillsvault/backend/internal/models"
	"github.com/skillsvault/backend/internal/repository"
	"github.com/skillsvault/backend/internal/validation"
)

// createRequestBody is the canonical body produced by
// middleware.NormalizeSkillRequest.
type createRequestBody struct {
	SkillID        string  `json:"skill_id"`
	ProviderID     string  `json:"provider_id"`
	HoursRequested int64   `json:"hours_requested"`
	Notes          *string `json:"notes"`
}

type resolveRequestBody struct {
	Status   string `json:"status"`
	Decision string `json:"decision"`
}

type Handler struct {
	svc       Service
	skills    SkillLookup
	validator *validation.Validator
	log       *slog.Logger
}

func NewHandler(svc Service, skills SkillLookup, validator *validation.Validator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, skills: skills, validator: validator, log: log}
}

// CreateRequest handles POST /api/v1/requests.
// Auth -> Normalize (via middleware) -> Validate shape -> default provider -> create.
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := h.validator.DecodeRequest(r, validation.CreateRequest, &body); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	skillID := parseOptionalUUID(body.SkillID)
	providerID := parseOptionalUUID(body.ProviderID)

	// Without an explicit provider the skill's owner is asked. An unknown
	// skill falls through to the service's missing-provider error.
	if providerID == uuid.Nil && skillID != uuid.Nil {
		sk, err := h.skills.GetByID(r.Context(), skillID)
		switch {
		case err == nil:
			providerID = sk.UserID
		case !errors.Is(err, repository.ErrNotFound):
			httpx.WriteError(w, h.log, fmt.Errorf("%w: load skill: %w", ledger.ErrDependency, err))
			return
		}
	}

	req, err := h.svc.CreateRequest(r.Context(), skillID, middleware.UserIDFromCtx(r.Context()), providerID, body.HoursRequested, body.Notes)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, req)
}

// ListRequests handles GET /api/v1/requests?type=received|sent|all.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListRequests(r.Context(), middleware.UserIDFromCtx(r.Context()), r.URL.Query().Get("type"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	if list == nil {
		list = []*models.SkillRequest{}
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

// GetRequest handles GET /api/v1/requests/{id}.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathUUID(r, "id")
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid request id")
		return
	}
	req, err := h.svc.GetRequest(r.Context(), id, middleware.UserIDFromCtx(r.Context()))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, req)
}

// ResolveRequest handles PUT /api/v1/requests/{id} with
// {"status":"accepted"|"rejected"} or {"decision":"accept"|"reject"}.
func (h *Handler) ResolveRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathUUID(r, "id")
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid request id")
		return
	}
	var body resolveRequestBody
	if err := h.validator.DecodeRequest(r, validation.ResolveRequest, &body); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	raw := body.Decision
	if raw == "" {
		raw = body.Status
	}
	decision, err := ledger.ParseDecision(raw)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	req, err := h.svc.ResolveRequest(r.Context(), id, middleware.UserIDFromCtx(r.Context()), decision)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, req)
}

// DeleteRequest handles DELETE /api/v1/requests/{id}.
func (h *Handler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathUUID(r, "id")
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid request id")
		return
	}
	if err := h.svc.DeleteRequest(r.Context(), id, middleware.UserIDFromCtx(r.Context())); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseOptionalUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
